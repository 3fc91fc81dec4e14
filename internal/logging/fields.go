package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// TrainFields 提供列车请求相关字段（命中状态、是否过期），供读路径日志复用。
func TrainFields(trainID string, cacheHit, stale bool) logrus.Fields {
	return logrus.Fields{
		"train_id":  trainID,
		"cache_hit": cacheHit,
		"stale":     stale,
	}
}
