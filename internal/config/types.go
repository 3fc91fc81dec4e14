package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"500ms" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// Config 描述整个进程的运行时行为，所有组件共享同一份参数。
type Config struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	// UpstreamBase 是 CP API 的根地址，列车详情接口挂在其下。
	UpstreamBase    string   `mapstructure:"UpstreamBase"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`

	// SnapshotPath 指向缓存快照文件；SnapshotInterval 控制周期性落盘。
	SnapshotPath     string   `mapstructure:"SnapshotPath"`
	SnapshotInterval Duration `mapstructure:"SnapshotInterval"`

	// RosterPath 指向已知列车清单（JSON），供维护任务扫描冷门列车。
	RosterPath string `mapstructure:"RosterPath"`

	// RefreshBatchSize/RefreshPause 约束后台刷新对上游的请求速率。
	RefreshBatchSize int      `mapstructure:"RefreshBatchSize"`
	RefreshPause     Duration `mapstructure:"RefreshPause"`

	// MaintenanceInterval 是维护扫描周期；ExpiryMargin 是临期判定阈值；
	// IdleSampleLimit 限制每轮维护最多补抓多少冷门列车。
	MaintenanceInterval Duration `mapstructure:"MaintenanceInterval"`
	ExpiryMargin        Duration `mapstructure:"ExpiryMargin"`
	IdleSampleLimit     int      `mapstructure:"IdleSampleLimit"`
}
