package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/fetcher"
	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/resolvers"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// mediaResolver 媒体地址解析链
type mediaResolver interface {
	Resolve(ctx context.Context, ref models.PostReference) models.ResolutionResult
}

// thumbnailFinder 缩略图解析
type thumbnailFinder interface {
	Resolve(ctx context.Context, ref models.PostReference) (string, bool)
}

// mediaFetcher 媒体下载
type mediaFetcher interface {
	Fetch(ctx context.Context, mediaURL, postID string, progress fetcher.ProgressFunc) (*models.DownloadArtifact, error)
	Root() string
}

// sessionController 共享浏览器会话的生命周期
type sessionController interface {
	Acquire(ctx context.Context) (*browser.Session, error)
	Status() browser.Status
	Close() error
}

// Service prepare/start 两个核心操作的协调器
type Service struct {
	resolver   mediaResolver
	thumbnails thumbnailFinder
	fetcher    mediaFetcher
	session    sessionController
}

// NewService 按配置组装解析链、缩略图解析器和下载管线
// headers 可为nil,此时数据接口请求只使用默认头部
func NewService(cfg *Config, headers *HeaderManager) *Service {
	ua := cfg.Resolver.UserAgent
	var provider models.HeaderProvider
	if headers != nil {
		headers.WithUserAgent(ua)
		ua = headers.UserAgent()
		provider = headers
	}

	monitor := browser.NewResourceMonitor(cfg.MonitorConfig())
	if cfg.Browser.MonitorInterval > 0 {
		monitor.StartMonitoring(cfg.Browser.MonitorInterval)
	}

	browserOpts := cfg.BrowserOptions()
	browserOpts.UserAgent = ua
	manager := browser.NewManager(browserOpts, monitor)

	fetchOpts := cfg.FetchOptions()
	fetchOpts.UserAgent = ua
	pipeline := fetcher.NewPipeline(fetchOpts)

	chain := resolvers.NewChain(
		resolvers.NewAPIResolver(cfg.Resolver.APIEndpoint, cfg.Resolver.APITimeout, provider),
		resolvers.NewBrowserResolver(manager, cfg.ResolverOptions()),
	)
	thumbnails := resolvers.NewThumbnailResolver(manager, pipeline,
		cfg.Browser.ThumbnailSettleTimeout, cfg.Browser.PollInterval)

	return newService(chain, thumbnails, pipeline, manager)
}

func newService(resolver mediaResolver, thumbnails thumbnailFinder, f mediaFetcher, session sessionController) *Service {
	return &Service{
		resolver:   resolver,
		thumbnails: thumbnails,
		fetcher:    f,
		session:    session,
	}
}

// Prepare 解析并保存缩略图
// 找不到缩略图时返回 ErrThumbnailNotFound
func (s *Service) Prepare(ctx context.Context, rawURL string) (*models.PrepareResult, error) {
	logger := utils.RequestLogger("prepare", rawURL)

	ref, err := models.NormalizePostURL(rawURL)
	if err != nil {
		logger.Info().Err(err).Msg("URL校验失败")
		return nil, err
	}
	logger = logger.With().Str("post_id", ref.PostID).Logger()
	logger.Info().Msg("开始准备缩略图")

	thumbnailPath, ok := s.thumbnails.Resolve(ctx, ref)
	if !ok {
		logger.Warn().Msg("未能获取缩略图")
		return nil, models.ErrThumbnailNotFound
	}

	logger.Info().Str("thumbnail", thumbnailPath).Msg("缩略图已就绪")
	return &models.PrepareResult{
		PostID:        ref.PostID,
		ThumbnailPath: thumbnailPath,
	}, nil
}

// Start 解析媒体地址并下载到本地
// progress 可为nil
func (s *Service) Start(ctx context.Context, rawURL string, progress fetcher.ProgressFunc) (*models.StartResult, error) {
	logger := utils.RequestLogger("start", rawURL)

	ref, err := models.NormalizePostURL(rawURL)
	if err != nil {
		logger.Info().Err(err).Msg("URL校验失败")
		return nil, err
	}
	logger = logger.With().Str("post_id", ref.PostID).Logger()
	logger.Info().Msg("开始解析媒体地址")

	result := s.resolver.Resolve(ctx, ref)
	if !result.Found() {
		if errors.Is(result.Err, models.ErrBrowserUnavailable) {
			logger.Error().Err(result.Err).Msg("浏览器不可用")
		} else {
			logger.Warn().Msg("所有解析策略均未找到媒体地址")
		}
		return nil, result.Err
	}
	logger.Info().
		Str("strategy", string(result.Strategy)).
		Str("media_url", result.MediaURL).
		Msg("媒体地址解析成功")

	artifact, err := s.fetcher.Fetch(ctx, result.MediaURL, ref.PostID, progress)
	if err != nil {
		logger.Error().Err(err).Msg("下载媒体文件失败")
		return nil, err
	}

	logger.Info().
		Str("file", artifact.LocalPath).
		Int64("bytes", artifact.ByteSize).
		Msg("下载完成")
	return &models.StartResult{
		PostID:       ref.PostID,
		DownloadPath: artifact.ServePath,
		Filename:     artifact.Filename,
		ByteSize:     artifact.ByteSize,
		Strategy:     result.Strategy,
	}, nil
}

// Warmup 提前创建共享浏览器会话
func (s *Service) Warmup(ctx context.Context) error {
	if s.session == nil {
		return nil
	}
	if _, err := s.session.Acquire(ctx); err != nil {
		return fmt.Errorf("预热浏览器会话失败: %w", err)
	}
	return nil
}

// SessionStatus 浏览器会话状态
func (s *Service) SessionStatus() browser.Status {
	if s.session == nil {
		return browser.Status{}
	}
	return s.session.Status()
}

// DownloadRoot 下载根目录
func (s *Service) DownloadRoot() string {
	return s.fetcher.Root()
}

// Close 关闭共享浏览器会话,可重复调用
func (s *Service) Close() error {
	if s.session == nil {
		return nil
	}
	return s.session.Close()
}
