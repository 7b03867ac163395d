package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/dataset-hub/dataset-hub/internal/dataset"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.CacheDir == "" {
		return newFieldError("Global.CacheDir", "不能为空")
	}
	if g.FreshnessTTL.DurationValue() < 0 {
		return newFieldError("Global.FreshnessTTL", "不能为负数")
	}
	if g.MaxRetries < 1 {
		return newFieldError("Global.MaxRetries", "必须大于等于 1")
	}
	if g.InitialBackoff.DurationValue() <= 0 {
		return newFieldError("Global.InitialBackoff", "必须大于 0")
	}
	if g.BackoffCap.DurationValue() < g.InitialBackoff.DurationValue() {
		return newFieldError("Global.BackoffCap", "不能小于 InitialBackoff")
	}
	if g.RemoteBaseURL != "" {
		if err := validateEndpoint(g.RemoteBaseURL); err != nil {
			return fmt.Errorf("Global.RemoteBaseURL: %w", err)
		}
		if g.RemoteTag == "" {
			return newFieldError("Global.RemoteTag", "配置了远端仓库时不能为空")
		}
		if g.RemoteTimeout.DurationValue() <= 0 {
			return newFieldError("Global.RemoteTimeout", "必须大于 0")
		}
	}

	seen := map[string]struct{}{}
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if ds.ID == "" {
			return newFieldError("Dataset[].ID", "不能为空")
		}
		if _, exists := seen[ds.ID]; exists {
			return newFieldError(datasetField(ds.ID, "ID"), "重复")
		}
		seen[ds.ID] = struct{}{}

		if _, ok := dataset.Default().Lookup(ds.ID); !ok {
			return newFieldError(datasetField(ds.ID, "ID"), "未注册的数据集")
		}
		if ds.MaxRetries < 0 {
			return newFieldError(datasetField(ds.ID, "MaxRetries"), "不能为负数")
		}
		if ds.FreshnessTTL.DurationValue() < 0 {
			return newFieldError(datasetField(ds.ID, "FreshnessTTL"), "不能为负数")
		}
	}

	return nil
}

func validateEndpoint(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
