package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absSnapshot, err := filepath.Abs(cfg.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("无法解析快照路径: %w", err)
	}
	cfg.SnapshotPath = absSnapshot

	if cfg.RosterPath != "" {
		absRoster, err := filepath.Abs(cfg.RosterPath)
		if err != nil {
			return nil, fmt.Errorf("无法解析清单路径: %w", err)
		}
		cfg.RosterPath = absRoster
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("UpstreamBase", "https://www.cp.pt/sites/spring")
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("SnapshotPath", "./data/trains-cache.json")
	v.SetDefault("SnapshotInterval", "5m")
	v.SetDefault("RosterPath", "")
	v.SetDefault("RefreshBatchSize", 25)
	v.SetDefault("RefreshPause", "500ms")
	v.SetDefault("MaintenanceInterval", "60s")
	v.SetDefault("ExpiryMargin", "60s")
	v.SetDefault("IdleSampleLimit", 20)
}

// applyDefaults 兜底填充零值字段，保证即使配置显式写 0 也能运行。
func applyDefaults(cfg *Config) {
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 5000
	}
	if cfg.UpstreamTimeout.DurationValue() == 0 {
		cfg.UpstreamTimeout = Duration(30 * time.Second)
	}
	if cfg.SnapshotInterval.DurationValue() == 0 {
		cfg.SnapshotInterval = Duration(5 * time.Minute)
	}
	if cfg.RefreshBatchSize == 0 {
		cfg.RefreshBatchSize = 25
	}
	if cfg.MaintenanceInterval.DurationValue() == 0 {
		cfg.MaintenanceInterval = Duration(60 * time.Second)
	}
	if cfg.ExpiryMargin.DurationValue() == 0 {
		cfg.ExpiryMargin = Duration(60 * time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
