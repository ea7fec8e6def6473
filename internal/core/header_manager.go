package core

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/InsFetch/internal/config"
	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

const (
	// DefaultUserAgent 桌面Chrome的User-Agent
	DefaultUserAgent = models.DesktopUserAgent
)

// HeaderManager 管理数据接口请求的HTTP头部
// 实现 HeaderProvider 接口,可被多个请求并发调用
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	// 配置只加载、校验一次
	once    sync.Once
	loadErr error
	merged  http.Header
}

// NewHeaderManager 创建头部管理器
// configFile 为空时使用 configs/headers.yaml;cliHeaders 为 "Name: Value" 形式
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults:     defaultHeaders(DefaultUserAgent),
		cli:          make(http.Header),
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}

	return hm, nil
}

// WithUserAgent 替换默认头部中的User-Agent
// 配置文件和命令行中的User-Agent仍然优先
func (hm *HeaderManager) WithUserAgent(ua string) *HeaderManager {
	if ua != "" {
		hm.defaults.Set("User-Agent", ua)
	}
	return hm
}

// defaultHeaders 模拟桌面浏览器的默认头部
func defaultHeaders(ua string) http.Header {
	return http.Header{
		"User-Agent":                []string{ua},
		"Accept":                    []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language":           []string{"en-US,en;q=0.5"},
		"Accept-Encoding":           []string{"gzip, deflate, br"},
		"Cache-Control":             []string{"max-age=0"},
		"Upgrade-Insecure-Requests": []string{"1"},
	}
}

// load 加载配置文件并校验全部头部
func (hm *HeaderManager) load() {
	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		hm.loadErr = err
		return
	}

	hm.config = headerConfig.ToHeader()

	if err := hm.Validate(); err != nil {
		hm.loadErr = err
		return
	}

	hm.merged = hm.GetMergedHeaders()
	utils.Debugf("HTTP头部已就绪: %s", hm.redactor.RedactToString(hm.merged))
}

// Validate 验证所有头部的合法性
// 验证顺序: 默认 → 配置 → 命令行
func (hm *HeaderManager) Validate() error {
	sources := []struct {
		name    string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.config},
		{"命令行", hm.cli},
	}
	for _, src := range sources {
		if err := hm.validator.Validate(src.headers); err != nil {
			utils.Errorf("%s头部验证失败: %v", src.name, err)
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	return models.MergeHeaders(hm.defaults, hm.config, hm.cli)
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
// 返回副本,调用方可以修改
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	hm.once.Do(hm.load)
	if hm.loadErr != nil {
		return nil, hm.loadErr
	}
	return hm.merged.Clone(), nil
}

// UserAgent 合并后的User-Agent
func (hm *HeaderManager) UserAgent() string {
	headers, err := hm.GetHeaders()
	if err != nil || headers.Get("User-Agent") == "" {
		return hm.defaults.Get("User-Agent")
	}
	return headers.Get("User-Agent")
}
