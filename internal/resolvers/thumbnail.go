package resolvers

import (
	"context"
	"strings"
	"time"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// cdnMarker 帖子图片所在CDN域名的特征
const cdnMarker = "scontent"

// ThumbnailSaver 下载并保存缩略图,返回对外访问路径
type ThumbnailSaver interface {
	SaveThumbnail(ctx context.Context, thumbnailURL, postID string) (string, error)
}

// ThumbnailResolver 缩略图解析器
type ThumbnailResolver struct {
	pages         browser.PageProvider
	saver         ThumbnailSaver
	settleTimeout time.Duration
	pollInterval  time.Duration
}

// NewThumbnailResolver 创建缩略图解析器
func NewThumbnailResolver(pages browser.PageProvider, saver ThumbnailSaver, settleTimeout, pollInterval time.Duration) *ThumbnailResolver {
	if settleTimeout <= 0 {
		settleTimeout = time.Second
	}
	return &ThumbnailResolver{
		pages:         pages,
		saver:         saver,
		settleTimeout: settleTimeout,
		pollInterval:  pollInterval,
	}
}

// Resolve 查找并保存缩略图
// 任何失败都记录日志并返回 found=false
func (r *ThumbnailResolver) Resolve(ctx context.Context, ref models.PostReference) (string, bool) {
	var thumbnailURL string

	err := r.pages.WithPage(ctx, func(page browser.Page) error {
		if err := page.Navigate(ctx, ref.CanonicalURL); err != nil {
			return err
		}
		browser.WaitForAny(ctx, page, []string{`meta[property="og:image"]`, "video", "img"}, r.settleTimeout, r.pollInterval)

		thumbnailURL = findThumbnail(ctx, page)
		return nil
	})
	if err != nil {
		utils.Warnf("提取缩略图失败 [%s]: %v", ref.PostID, err)
		return "", false
	}
	if thumbnailURL == "" {
		utils.Infof("未找到缩略图: %s", ref.PostID)
		return "", false
	}

	servePath, err := r.saver.SaveThumbnail(ctx, thumbnailURL, ref.PostID)
	if err != nil {
		utils.Warnf("保存缩略图失败 [%s]: %v", ref.PostID, err)
		return "", false
	}
	return servePath, true
}

// findThumbnail 按 og:image → 视频封面 → 帖子图片 的顺序查找
func findThumbnail(ctx context.Context, page browser.Page) string {
	if values, err := page.Query(ctx, `meta[property="og:image"]`, "content"); err == nil && len(values) > 0 {
		if v := strings.TrimSpace(values[0]); v != "" {
			utils.Debugf("从meta标签找到缩略图")
			return v
		}
	}

	if values, err := page.Query(ctx, "video", "poster"); err == nil && len(values) > 0 {
		if v := strings.TrimSpace(values[0]); v != "" {
			utils.Debugf("从视频封面找到缩略图")
			return v
		}
	}

	if values, err := page.Query(ctx, `img[class*="post"]`, "src"); err == nil {
		for _, v := range values {
			if strings.Contains(v, cdnMarker) {
				utils.Debugf("从帖子图片找到缩略图")
				return v
			}
		}
	}

	return ""
}
