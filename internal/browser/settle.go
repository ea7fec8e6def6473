package browser

import (
	"context"
	"time"

	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// WaitForAny 轮询直到任一选择器命中或达到等待上限
// 返回是否命中;未命中不是错误,调用方继续在当前页面状态上工作
func WaitForAny(ctx context.Context, page Page, selectors []string, limit, interval time.Duration) bool {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, sel := range selectors {
			has, err := page.Has(ctx, sel)
			if err != nil {
				utils.Debugf("检查选择器失败 [%s]: %v", sel, err)
				continue
			}
			if has {
				return true
			}
		}

		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
		}
	}
}
