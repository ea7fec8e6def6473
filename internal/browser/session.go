package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// Options 浏览器会话参数
type Options struct {
	Bin             string        // 浏览器可执行文件路径 (为空时自动下载/查找)
	Headless        bool          // 无头模式
	UserAgent       string        // 覆盖User-Agent
	PageLoadTimeout time.Duration // 页面加载超时
}

// DefaultOptions 默认会话参数
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		PageLoadTimeout: 30 * time.Second,
	}
}

// LaunchFunc 创建浏览器会话
type LaunchFunc func(opts Options) (*Session, error)

// Session 进程级共享的浏览器会话
type Session struct {
	CreatedAt time.Time

	page    Page
	release func(ctx context.Context) error
	close   func() error
}

// Status 会话状态快照 (用于健康检查)
type Status struct {
	Ready     bool          `json:"ready"`
	Closed    bool          `json:"closed"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Memory    *MemoryStatus `json:"memory,omitempty"`
}

// Manager 共享浏览器会话管理器
// 职责: 懒创建唯一会话,串行化整个浏览器解析过程,进程退出时关闭一次
type Manager struct {
	opts    Options
	launch  LaunchFunc
	monitor *ResourceMonitor

	// 保护会话创建
	mu        sync.Mutex
	session   *Session
	launchErr error
	closed    bool

	// 一次完整的浏览器解析期间持有
	useMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewManager 创建会话管理器
// monitor 可为nil
func NewManager(opts Options, monitor *ResourceMonitor) *Manager {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = DefaultOptions().PageLoadTimeout
	}
	return &Manager{
		opts:    opts,
		launch:  launchRod,
		monitor: monitor,
	}
}

// Acquire 获取共享会话,首次调用时创建
// 创建失败会被记录,之后的调用直接返回同一错误
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: 会话已关闭", models.ErrBrowserUnavailable)
	}
	if m.session != nil {
		return m.session, nil
	}
	if m.launchErr != nil {
		return nil, m.launchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.monitor != nil {
		if ok, reason := m.monitor.CheckResourceAvailability(); !ok {
			utils.Warnf("系统资源紧张,仍尝试启动浏览器: %s", reason)
		}
	}

	utils.Info("正在启动共享浏览器会话...")
	session, err := m.launch(m.opts)
	if err != nil {
		m.launchErr = fmt.Errorf("%w: %v", models.ErrBrowserUnavailable, err)
		utils.Logger.Error().Err(err).Msg("浏览器会话创建失败,后续请求将不再重试")
		return nil, m.launchErr
	}

	m.session = session
	utils.Infof("共享浏览器会话已就绪 (页面加载超时 %s)", m.opts.PageLoadTimeout)
	return session, nil
}

// WithPage 在持有使用锁的情况下执行fn
// 同一时刻只有一个浏览器解析在进行
func (m *Manager) WithPage(ctx context.Context, fn func(Page) error) (err error) {
	session, err := m.Acquire(ctx)
	if err != nil {
		return err
	}

	m.useMu.Lock()
	defer m.useMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("浏览器操作panic: %v", r)
			utils.Errorf("捕获panic: 错误=%v, 类型=panic恢复", r)
		}
		if session.release != nil {
			if relErr := session.release(context.Background()); relErr != nil {
				utils.Warnf("释放页面失败: %v", relErr)
			}
		}
	}()

	return fn(session.page)
}

// Status 返回当前会话状态
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Ready:  m.session != nil && !m.closed,
		Closed: m.closed,
	}
	if m.session != nil {
		created := m.session.CreatedAt
		st.CreatedAt = &created
	}
	if m.launchErr != nil {
		st.LastError = m.launchErr.Error()
	}
	if m.monitor != nil {
		mem := m.monitor.GetMemoryStatus()
		st.Memory = &mem
	}
	return st
}

// Close 关闭会话,仅执行一次
// 等待正在进行的解析结束
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.useMu.Lock()
		defer m.useMu.Unlock()

		m.mu.Lock()
		defer m.mu.Unlock()

		m.closed = true
		if m.monitor != nil {
			m.monitor.StopMonitoring()
		}
		if m.session == nil {
			return
		}
		if m.session.close != nil {
			m.closeErr = m.session.close()
		}
		m.session = nil
		utils.Info("共享浏览器会话已关闭")
	})
	return m.closeErr
}
