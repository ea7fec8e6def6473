package resolvers

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// BrowserOptions 浏览器解析的等待参数
type BrowserOptions struct {
	SettleTimeout time.Duration // 等待媒体元素出现的上限
	PollInterval  time.Duration // 轮询间隔
	ScriptWait    time.Duration // 网络观察脚本等待时间
}

// DefaultBrowserOptions 默认等待参数
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		SettleTimeout: 3 * time.Second,
		PollInterval:  250 * time.Millisecond,
		ScriptWait:    3 * time.Second,
	}
}

// BrowserResolver 基于共享浏览器的解析器
// 依次尝试 DOM查询 → 源码匹配 → 网络观察,整个过程持有会话使用锁
type BrowserResolver struct {
	pages browser.PageProvider
	opts  BrowserOptions
}

// NewBrowserResolver 创建浏览器解析器
func NewBrowserResolver(pages browser.PageProvider, opts BrowserOptions) *BrowserResolver {
	def := DefaultBrowserOptions()
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = def.SettleTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.ScriptWait <= 0 {
		opts.ScriptWait = def.ScriptWait
	}
	return &BrowserResolver{pages: pages, opts: opts}
}

// Resolve 在浏览器中解析媒体地址
func (r *BrowserResolver) Resolve(ctx context.Context, ref models.PostReference) models.ResolutionResult {
	logger := utils.PostLogger(ref.PostID, "").With().Str("url", ref.CanonicalURL).Logger()

	result := models.Unresolved(models.ErrResolutionNotFound)

	err := r.pages.WithPage(ctx, func(page browser.Page) error {
		if err := page.Navigate(ctx, ref.CanonicalURL); err != nil {
			return err
		}

		if !browser.WaitForAny(ctx, page, settleSelectors, r.opts.SettleTimeout, r.opts.PollInterval) {
			logger.Debug().Dur("settle", r.opts.SettleTimeout).Msg("等待媒体元素超时,继续在当前页面状态上解析")
		}

		if u, ok := lookupDOM(ctx, page); ok {
			result = models.Resolved(u, models.StrategyDOM)
			return nil
		}
		logger.Debug().Str("strategy", string(models.StrategyDOM)).Msg("DOM查询未找到媒体地址")

		if source, err := page.Source(ctx); err != nil {
			logger.Warn().Err(err).Msg("读取页面源码失败")
		} else if u, name, ok := ScanSource(source); ok {
			logger.Debug().Str("pattern", name).Msg("源码规则命中")
			result = models.Resolved(u, models.StrategyPageSource)
			return nil
		}
		logger.Debug().Str("strategy", string(models.StrategyPageSource)).Msg("页面源码中未找到媒体地址")

		if u, ok := observeNetwork(ctx, page, r.opts.ScriptWait); ok {
			result = models.Resolved(u, models.StrategyNetwork)
			return nil
		}
		logger.Debug().Str("strategy", string(models.StrategyNetwork)).Msg("网络观察未找到媒体地址")
		return nil
	})

	if err != nil {
		if errors.Is(err, models.ErrBrowserUnavailable) {
			return models.Unresolved(err)
		}
		logger.Warn().Err(err).Msg("浏览器解析失败")
		return models.Unresolved(models.ErrResolutionNotFound)
	}

	if result.Found() {
		logger.Info().Str("strategy", string(result.Strategy)).Str("media_url", result.MediaURL).Msg("浏览器解析成功")
	}
	return result
}
