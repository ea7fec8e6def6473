package browser

import (
	"context"
	"errors"
)

// ErrScriptUnsupported 当前页面实现不支持执行脚本
var ErrScriptUnsupported = errors.New("页面不支持执行脚本")

// Page 解析器使用的页面能力
// 由共享浏览器会话提供,调用方不持有页面生命周期
type Page interface {
	// Navigate 导航到指定URL并等待加载完成
	Navigate(ctx context.Context, url string) error

	// Has 当前文档中是否存在匹配选择器的元素 (不等待)
	Has(ctx context.Context, selector string) (bool, error)

	// Query 返回所有匹配元素的属性值,缺失属性的元素被跳过
	Query(ctx context.Context, selector, attr string) ([]string, error)

	// Source 返回渲染后的页面源码
	Source(ctx context.Context) (string, error)

	// RunScript 执行异步脚本并返回字符串结果,结果为空时返回 ""
	RunScript(ctx context.Context, js string, args ...interface{}) (string, error)
}

// PageProvider 提供对共享页面的独占访问
// fn 执行期间持有会话使用锁
type PageProvider interface {
	WithPage(ctx context.Context, fn func(Page) error) error
}
