package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// maxCleanFailures 页面清理连续失败达到该次数后重建页面
const maxCleanFailures = 3

// cleanScript 清理页面存储状态
const cleanScript = `() => {
	if (typeof localStorage !== 'undefined' && localStorage !== null) {
		try { localStorage.clear(); } catch (e) {}
	}
	if (typeof sessionStorage !== 'undefined' && sessionStorage !== null) {
		try { sessionStorage.clear(); } catch (e) {}
	}
	document.querySelectorAll('video').forEach(v => { try { v.pause(); } catch (e) {} });
	return true;
}`

// rodPage 基于go-rod的页面实现
type rodPage struct {
	page        *rod.Page
	loadTimeout time.Duration
}

// Navigate 导航并等待load事件,受页面加载超时约束
func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx).Timeout(p.loadTimeout)
	defer pg.CancelTimeout()

	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("导航失败 [%s]: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败 [%s]: %w", url, err)
	}
	return nil
}

// Has 检查选择器是否命中
func (p *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.page.Context(ctx).Has(selector)
	return has, err
}

// Query 读取匹配元素的属性
func (p *rodPage) Query(ctx context.Context, selector, attr string) ([]string, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(els))
	for _, el := range els {
		v, err := el.Attribute(attr)
		if err != nil {
			utils.Debugf("读取属性失败 [%s@%s]: %v", selector, attr, err)
			continue
		}
		if v != nil {
			values = append(values, *v)
		}
	}
	return values, nil
}

// Source 返回当前DOM序列化后的HTML
func (p *rodPage) Source(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// RunScript 执行脚本并等待Promise完成
func (p *rodPage) RunScript(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", err
	}
	if res == nil || res.Value.Nil() {
		return "", nil
	}
	return res.Value.Str(), nil
}

// rodSession 持有浏览器进程与复用的标签页
type rodSession struct {
	launcher      *launcher.Launcher
	browser       *rod.Browser
	page          *rodPage
	opts          Options
	cleanFailures int
}

// launchRod 启动无头浏览器并创建隐身页面
func launchRod(opts Options) (*Session, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")

	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	rs := &rodSession{
		launcher: l,
		browser:  browser,
		opts:     opts,
	}
	if err := rs.newPage(); err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, err
	}

	utils.Debugf("浏览器已启动: %s", controlURL)

	return &Session{
		CreatedAt: time.Now(),
		page:      rs.page,
		release:   rs.release,
		close:     rs.close,
	}, nil
}

// newPage 创建隐藏自动化特征的标签页
func (rs *rodSession) newPage() error {
	page, err := stealth.Page(rs.browser)
	if err != nil {
		return fmt.Errorf("创建标签页失败: %w", err)
	}

	if rs.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: rs.opts.UserAgent}); err != nil {
			utils.Warnf("设置User-Agent失败: %v", err)
		}
	}

	if rs.page == nil {
		rs.page = &rodPage{loadTimeout: rs.opts.PageLoadTimeout}
	}
	rs.page.page = page
	return nil
}

// release 一次解析结束后清理页面状态
// 连续清理失败达到上限时重建页面
func (rs *rodSession) release(ctx context.Context) error {
	_, err := rs.page.page.Context(ctx).Evaluate(&rod.EvalOptions{JS: cleanScript})
	if err == nil {
		rs.cleanFailures = 0
		return nil
	}

	rs.cleanFailures++
	utils.Warnf("清理标签页状态失败 (第%d次失败): %v", rs.cleanFailures, err)
	if rs.cleanFailures < maxCleanFailures {
		return nil
	}

	utils.Warnf("清理失败达到%d次,重建标签页", maxCleanFailures)
	if err := rs.page.page.Close(); err != nil {
		utils.Warnf("关闭标签页失败: %v", err)
	}
	rs.cleanFailures = 0
	// 重建失败时沿用旧的页面引用,下一次使用会直接报错
	return rs.newPage()
}

// close 关闭浏览器并结束进程
func (rs *rodSession) close() error {
	err := rs.browser.Close()
	rs.launcher.Kill()
	utils.Debugf("浏览器已关闭")
	return err
}
