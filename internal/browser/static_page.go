package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// StaticPage 基于已保存HTML文档的只读页面
// 用于离线检查页面和测试,不支持执行脚本
type StaticPage struct {
	source string
	doc    *goquery.Document
	url    string
}

// NewStaticPage 从HTML读取器创建页面
func NewStaticPage(r io.Reader) (*StaticPage, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取HTML失败: %w", err)
	}

	node, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	return &StaticPage{
		source: string(raw),
		doc:    goquery.NewDocumentFromNode(node),
	}, nil
}

// NewStaticPageFromString 从HTML字符串创建页面
func NewStaticPageFromString(s string) (*StaticPage, error) {
	return NewStaticPage(bytes.NewReader([]byte(s)))
}

// LoadStaticPage 从文件加载页面
func LoadStaticPage(path string) (*StaticPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开HTML文件失败: %w", err)
	}
	defer f.Close()
	return NewStaticPage(f)
}

// Navigate 仅记录URL,文档内容不变
func (p *StaticPage) Navigate(ctx context.Context, url string) error {
	p.url = url
	return ctx.Err()
}

// URL 最近一次导航的地址
func (p *StaticPage) URL() string {
	return p.url
}

// Has 检查选择器是否命中
func (p *StaticPage) Has(ctx context.Context, selector string) (bool, error) {
	return p.doc.Find(selector).Length() > 0, nil
}

// Query 读取匹配元素的属性
func (p *StaticPage) Query(ctx context.Context, selector, attr string) ([]string, error) {
	var values []string
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			values = append(values, v)
		}
	})
	return values, nil
}

// Source 返回原始HTML
func (p *StaticPage) Source(ctx context.Context) (string, error) {
	return p.source, nil
}

// RunScript 静态页面无法执行脚本
func (p *StaticPage) RunScript(ctx context.Context, js string, args ...interface{}) (string, error) {
	return "", ErrScriptUnsupported
}
