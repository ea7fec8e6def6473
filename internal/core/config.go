package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/fetcher"
	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/resolvers"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// Config 应用程序配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Batch    BatchConfig    `mapstructure:"batch"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BrowserConfig 共享浏览器配置
type BrowserConfig struct {
	Bin                    string        `mapstructure:"bin"`
	Headless               bool          `mapstructure:"headless"`
	Eager                  bool          `mapstructure:"eager"` // serve启动时立即创建会话
	PageLoadTimeout        time.Duration `mapstructure:"page_load_timeout"`
	SettleTimeout          time.Duration `mapstructure:"settle_timeout"`
	ThumbnailSettleTimeout time.Duration `mapstructure:"thumbnail_settle_timeout"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	ScriptWait             time.Duration `mapstructure:"script_wait"`
	SafetyReserveMemory    int64         `mapstructure:"safety_reserve_memory"` // MB
	CPULoadThreshold       int           `mapstructure:"cpu_load_threshold"`
	MonitorInterval        time.Duration `mapstructure:"monitor_interval"`
}

// ResolverConfig 数据接口配置
type ResolverConfig struct {
	APIEndpoint string        `mapstructure:"api_endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// FetchConfig 下载配置
type FetchConfig struct {
	Root             string        `mapstructure:"root"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ThumbnailTimeout time.Duration `mapstructure:"thumbnail_timeout"`
	ChunkSize        int           `mapstructure:"chunk_size"`
	Referer          string        `mapstructure:"referer"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// BatchConfig 批量下载配置
type BatchConfig struct {
	Workers         int           `mapstructure:"workers"`
	Delay           time.Duration `mapstructure:"delay"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
}

// LoadConfig 加载配置文件
// configPath 为空时在默认位置搜索,找不到配置文件时使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".insfetch"))
		}
	}

	setDefaults(v)

	// 环境变量覆盖,如 INSFETCH_SERVER_ADDR
	v.SetEnvPrefix("INSFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.eager", true)
	v.SetDefault("browser.page_load_timeout", "30s")
	v.SetDefault("browser.settle_timeout", "3s")
	v.SetDefault("browser.thumbnail_settle_timeout", "1s")
	v.SetDefault("browser.poll_interval", "250ms")
	v.SetDefault("browser.script_wait", "3s")
	v.SetDefault("browser.safety_reserve_memory", 512)
	v.SetDefault("browser.cpu_load_threshold", 90)
	v.SetDefault("browser.monitor_interval", "30s")

	v.SetDefault("resolver.api_endpoint", resolvers.DefaultAPIEndpoint)
	v.SetDefault("resolver.api_timeout", "10s")
	v.SetDefault("resolver.user_agent", DefaultUserAgent)

	v.SetDefault("fetch.root", "downloads")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.thumbnail_timeout", "5s")
	v.SetDefault("fetch.chunk_size", fetcher.DefaultChunkSize)
	v.SetDefault("fetch.referer", fetcher.DefaultReferer)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("batch.workers", 2)
	v.SetDefault("batch.delay", "0s")
	v.SetDefault("batch.continue_on_error", true)
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr 不能为空")
	}
	if c.Fetch.Root == "" {
		return fmt.Errorf("fetch.root 不能为空")
	}
	if c.Fetch.ChunkSize <= 0 {
		return fmt.Errorf("fetch.chunk_size 必须大于0,当前值: %d", c.Fetch.ChunkSize)
	}
	if c.Browser.PollInterval <= 0 {
		return fmt.Errorf("browser.poll_interval 必须大于0,当前值: %s", c.Browser.PollInterval)
	}
	opts := c.BatchOptions()
	return opts.Validate()
}

// BrowserOptions 转换为会话参数
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Bin:             c.Browser.Bin,
		Headless:        c.Browser.Headless,
		UserAgent:       c.Resolver.UserAgent,
		PageLoadTimeout: c.Browser.PageLoadTimeout,
	}
}

// MonitorConfig 转换为资源监控参数
func (c *Config) MonitorConfig() browser.ResourceMonitorConfig {
	return browser.ResourceMonitorConfig{
		SafetyReserveMemory: c.Browser.SafetyReserveMemory * 1024 * 1024,
		CPULoadThreshold:    c.Browser.CPULoadThreshold,
	}
}

// ResolverOptions 转换为浏览器解析参数
func (c *Config) ResolverOptions() resolvers.BrowserOptions {
	return resolvers.BrowserOptions{
		SettleTimeout: c.Browser.SettleTimeout,
		PollInterval:  c.Browser.PollInterval,
		ScriptWait:    c.Browser.ScriptWait,
	}
}

// FetchOptions 转换为下载参数
func (c *Config) FetchOptions() fetcher.Options {
	return fetcher.Options{
		Root:             c.Fetch.Root,
		Timeout:          c.Fetch.Timeout,
		ThumbnailTimeout: c.Fetch.ThumbnailTimeout,
		ChunkSize:        c.Fetch.ChunkSize,
		UserAgent:        c.Resolver.UserAgent,
		Referer:          c.Fetch.Referer,
	}
}

// LogConfig 转换为日志参数
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// BatchOptions 转换为批量下载参数
func (c *Config) BatchOptions() models.BatchOptions {
	return models.BatchOptions{
		Workers:         c.Batch.Workers,
		Delay:           c.Batch.Delay,
		ContinueOnError: c.Batch.ContinueOnError,
	}
}

// MergeCLIFlags 合并命令行参数到配置
// 零值表示未指定,保留配置文件中的值
func (c *Config) MergeCLIFlags(addr, downloadDir, logLevel string, workers int, headful bool) {
	if addr != "" {
		c.Server.Addr = addr
	}
	if downloadDir != "" {
		c.Fetch.Root = downloadDir
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if workers > 0 {
		c.Batch.Workers = workers
	}
	if headful {
		c.Browser.Headless = false
	}
}
