package config

import (
	"errors"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if err := validateUpstream(c.UpstreamBase); err != nil {
		return newFieldError("UpstreamBase", err.Error())
	}
	if c.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("UpstreamTimeout", "必须大于 0")
	}
	if strings.TrimSpace(c.SnapshotPath) == "" {
		return newFieldError("SnapshotPath", "不能为空")
	}
	if c.SnapshotInterval.DurationValue() <= 0 {
		return newFieldError("SnapshotInterval", "必须大于 0")
	}
	if c.RefreshBatchSize <= 0 {
		return newFieldError("RefreshBatchSize", "必须大于 0")
	}
	if c.RefreshPause.DurationValue() < 0 {
		return newFieldError("RefreshPause", "不能为负数")
	}
	if c.MaintenanceInterval.DurationValue() <= 0 {
		return newFieldError("MaintenanceInterval", "必须大于 0")
	}
	if c.ExpiryMargin.DurationValue() <= 0 {
		return newFieldError("ExpiryMargin", "必须大于 0")
	}
	if c.IdleSampleLimit < 0 {
		return newFieldError("IdleSampleLimit", "不能为负数")
	}

	return nil
}

func validateUpstream(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("不能为空")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.New("不是合法 URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("仅支持 http/https")
	}
	if parsed.Host == "" {
		return errors.New("缺少主机名")
	}
	return nil
}
