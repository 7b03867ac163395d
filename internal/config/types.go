package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
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

// GlobalConfig 描述全局运行时行为，所有数据集共享同一份参数。
type GlobalConfig struct {
	ListenPort     int      `mapstructure:"ListenPort"`
	LogLevel       string   `mapstructure:"LogLevel"`
	LogFilePath    string   `mapstructure:"LogFilePath"`
	LogMaxSize     int      `mapstructure:"LogMaxSize"`
	LogMaxBackups  int      `mapstructure:"LogMaxBackups"`
	LogCompress    bool     `mapstructure:"LogCompress"`
	CacheDir       string   `mapstructure:"CacheDir"`
	FreshnessTTL   Duration `mapstructure:"FreshnessTTL"`
	MaxRetries     int      `mapstructure:"MaxRetries"`
	InitialBackoff Duration `mapstructure:"InitialBackoff"`
	BackoffCap     Duration `mapstructure:"BackoffCap"`
	RemoteBaseURL  string   `mapstructure:"RemoteBaseURL"`
	RemoteTag      string   `mapstructure:"RemoteTag"`
	RemoteTimeout  Duration `mapstructure:"RemoteTimeout"`
	WriteThrough   bool     `mapstructure:"WriteThrough"`
}

// DatasetConfig 覆盖单个数据集的行为；未出现在配置中的数据集使用全局参数。
type DatasetConfig struct {
	ID           string   `mapstructure:"ID"`
	NoCache      bool     `mapstructure:"NoCache"`
	MaxRetries   int      `mapstructure:"MaxRetries"`
	FreshnessTTL Duration `mapstructure:"FreshnessTTL"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig    `mapstructure:",squash"`
	Datasets []DatasetConfig `mapstructure:"Dataset"`
}

// RemoteEnabled 表示是否配置了远端资产仓库。
func (c *Config) RemoteEnabled() bool {
	return c.Global.RemoteBaseURL != ""
}

func (c *Config) datasetOverride(id string) (DatasetConfig, bool) {
	for _, ds := range c.Datasets {
		if ds.ID == id {
			return ds, true
		}
	}
	return DatasetConfig{}, false
}

// EffectiveFreshness 返回特定数据集生效的新鲜度窗口，未覆盖时回退至全局值。
func (c *Config) EffectiveFreshness(id string) time.Duration {
	if ds, ok := c.datasetOverride(id); ok && ds.FreshnessTTL.DurationValue() > 0 {
		return ds.FreshnessTTL.DurationValue()
	}
	return c.Global.FreshnessTTL.DurationValue()
}

// EffectiveMaxRetries 返回特定数据集生效的重试上限。
func (c *Config) EffectiveMaxRetries(id string) int {
	if ds, ok := c.datasetOverride(id); ok && ds.MaxRetries > 0 {
		return ds.MaxRetries
	}
	return c.Global.MaxRetries
}

// CacheEnabled 表示是否允许将该数据集写入本地缓存。
func (c *Config) CacheEnabled(id string) bool {
	if ds, ok := c.datasetOverride(id); ok {
		return !ds.NoCache
	}
	return true
}
