package resolvers

import (
	"context"
	"strings"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// domSelector DOM查询规则: 选择器与读取的属性
type domSelector struct {
	Selector string
	Attr     string
}

// mediaSelectors 按优先级排列的媒体元素选择器
var mediaSelectors = []domSelector{
	{Selector: "video", Attr: "src"},
	{Selector: "video source", Attr: "src"},
	{Selector: `meta[property="og:video"]`, Attr: "content"},
	{Selector: `meta[property="og:video:secure_url"]`, Attr: "content"},
}

// settleSelectors 页面稳定的判断依据
var settleSelectors = []string{"video", `meta[property="og:video"]`}

// isBlobURL 页面内部的blob地址无法在页面外下载
func isBlobURL(u string) bool {
	return strings.HasPrefix(u, "blob:")
}

// usableURL 非空且非blob
func usableURL(u string) bool {
	u = strings.TrimSpace(u)
	return u != "" && !isBlobURL(u)
}

// lookupDOM 按选择器顺序查找第一个可用的媒体地址
// 单个选择器出错只记录日志,继续尝试下一个
func lookupDOM(ctx context.Context, page browser.Page) (string, bool) {
	for _, rule := range mediaSelectors {
		values, err := page.Query(ctx, rule.Selector, rule.Attr)
		if err != nil {
			utils.Warnf("选择器查询失败 [%s]: %v", rule.Selector, err)
			continue
		}
		for _, v := range values {
			if usableURL(v) {
				utils.Debugf("选择器 %s 命中: %s", rule.Selector, v)
				return strings.TrimSpace(v), true
			}
		}
	}
	return "", false
}
