package resolvers

import (
	"context"

	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// Chain 解析链: 数据接口优先,失败后交给浏览器解析
type Chain struct {
	api     *APIResolver
	browser *BrowserResolver
}

// NewChain 创建解析链
func NewChain(api *APIResolver, browser *BrowserResolver) *Chain {
	return &Chain{api: api, browser: browser}
}

// Resolve 返回第一个成功的结果;全部失败时返回 ErrResolutionNotFound
func (c *Chain) Resolve(ctx context.Context, ref models.PostReference) models.ResolutionResult {
	if c.api != nil {
		if u, ok := c.api.Resolve(ctx, ref); ok {
			return models.Resolved(u, models.StrategyAPI)
		}
		utils.Infof("数据接口未找到媒体地址,改用浏览器解析: %s", ref.PostID)
	}

	if c.browser == nil {
		return models.Unresolved(models.ErrResolutionNotFound)
	}
	return c.browser.Resolve(ctx, ref)
}
