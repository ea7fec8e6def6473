package resolvers

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/models"
)

// InspectReport 单个页面上各策略的匹配结果 (调试用)
type InspectReport struct {
	DOM          string `json:"dom,omitempty"`
	PageSource   string `json:"page_source,omitempty"`
	Pattern      string `json:"pattern,omitempty"` // 命中的源码规则
	Network      string `json:"network,omitempty"`
	NetworkError string `json:"network_error,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
}

// Winner 按解析链顺序返回第一个命中的浏览器策略
func (r InspectReport) Winner() (models.Strategy, string) {
	switch {
	case r.DOM != "":
		return models.StrategyDOM, r.DOM
	case r.PageSource != "":
		return models.StrategyPageSource, r.PageSource
	case r.Network != "":
		return models.StrategyNetwork, r.Network
	}
	return models.StrategyNone, ""
}

// Inspect 在当前页面上分别运行各浏览器子策略,不短路
// scriptWait<=0 时跳过网络观察
func Inspect(ctx context.Context, page browser.Page, scriptWait time.Duration) (InspectReport, error) {
	var report InspectReport

	report.DOM, _ = lookupDOM(ctx, page)

	source, err := page.Source(ctx)
	if err != nil {
		return report, err
	}
	report.PageSource, report.Pattern, _ = ScanSource(source)

	if scriptWait > 0 {
		result, err := page.RunScript(ctx, networkObserverScript, scriptWait.Milliseconds())
		switch {
		case errors.Is(err, browser.ErrScriptUnsupported):
			report.NetworkError = "unsupported"
		case err != nil:
			report.NetworkError = err.Error()
		case usableURL(result):
			report.Network = result
		}
	}

	report.Thumbnail = findThumbnail(ctx, page)
	return report, nil
}
