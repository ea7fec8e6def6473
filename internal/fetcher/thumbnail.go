package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gocolly/colly/v2"

	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// SaveThumbnail 下载缩略图到 {root}/{ts}/thumbnail_{post_id}.jpg
// 返回对外访问路径 /downloads/thumbnail_{post_id}.jpg
func (p *Pipeline) SaveThumbnail(ctx context.Context, thumbnailURL, postID string) (string, error) {
	filename := fmt.Sprintf("thumbnail_%s.jpg", filepath.Base(postID))

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(p.opts.ThumbnailTimeout)

	c.OnRequest(func(r *colly.Request) {
		if p.opts.UserAgent != "" {
			r.Headers.Set("User-Agent", p.opts.UserAgent)
		}
		r.Headers.Set("Referer", p.opts.Referer)
	})

	var saveErr error
	var savedPath string
	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			saveErr = fmt.Errorf("缩略图请求返回 HTTP %d", r.StatusCode)
			return
		}
		dir, _, err := p.allocate("")
		if err != nil {
			saveErr = err
			return
		}
		savedPath = filepath.Join(dir, filename)
		saveErr = r.Save(savedPath)
	})

	if err := c.Visit(thumbnailURL); err != nil {
		return "", fmt.Errorf("下载缩略图失败: %w", err)
	}
	if saveErr != nil {
		return "", saveErr
	}

	utils.Debugf("缩略图已保存: %s", savedPath)
	return models.ServePathFor(filename), nil
}
