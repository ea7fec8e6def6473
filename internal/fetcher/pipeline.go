package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

const (
	// DefaultReferer 请求媒体资源时携带的Referer
	DefaultReferer = "https://www.instagram.com/"

	// DefaultChunkSize 流式写入的块大小 (8KB)
	DefaultChunkSize = 8192
)

// Options 下载参数
type Options struct {
	Root             string        // 下载根目录
	Timeout          time.Duration // 媒体下载总超时
	ThumbnailTimeout time.Duration // 缩略图下载超时
	ChunkSize        int           // 写入块大小
	UserAgent        string
	Referer          string
}

// DefaultOptions 默认下载参数
func DefaultOptions() Options {
	return Options{
		Root:             "downloads",
		Timeout:          30 * time.Second,
		ThumbnailTimeout: 5 * time.Second,
		ChunkSize:        DefaultChunkSize,
		Referer:          DefaultReferer,
	}
}

// ProgressFunc 返回写入进度的Writer,total 未知时为 -1
type ProgressFunc func(total int64) io.Writer

// Pipeline 媒体下载与落盘
type Pipeline struct {
	opts   Options
	client *http.Client
	now    func() time.Time

	// 保护时间戳目录的分配
	allocMu sync.Mutex
}

// NewPipeline 创建下载管线
func NewPipeline(opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.Root == "" {
		opts.Root = def.Root
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.ThumbnailTimeout <= 0 {
		opts.ThumbnailTimeout = def.ThumbnailTimeout
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.Referer == "" {
		opts.Referer = def.Referer
	}

	return &Pipeline{
		opts:   opts,
		client: &http.Client{},
		now:    time.Now,
	}
}

// Root 下载根目录
func (p *Pipeline) Root() string {
	return p.opts.Root
}

// Fetch 下载媒体文件到 {root}/{ts}/video_{ts}.mp4
// 非200状态在写入前返回;写入后按 存在 → 非空 → 不小于1KB 的顺序校验,失败时删除文件
func (p *Pipeline) Fetch(ctx context.Context, mediaURL, postID string, progress ProgressFunc) (*models.DownloadArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, &models.FetchError{Kind: models.FetchIO, Cause: err}
	}
	p.setHeaders(req)

	utils.Infof("开始下载媒体文件: %s", mediaURL)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		utils.Errorf("下载媒体文件失败: HTTP %d [%s]", resp.StatusCode, postID)
		return nil, &models.FetchError{Kind: models.FetchBadStatus, StatusCode: resp.StatusCode}
	}

	dir, ts, err := p.allocate("video_%d.mp4")
	if err != nil {
		return nil, &models.FetchError{Kind: models.FetchIO, Cause: err}
	}
	filename := fmt.Sprintf("video_%d.mp4", ts)
	localPath := filepath.Join(dir, filename)

	var sink io.Writer
	if progress != nil {
		sink = progress(resp.ContentLength)
	}

	total, err := p.stream(resp.Body, localPath, sink)
	if err != nil {
		_ = os.Remove(localPath)
		utils.Errorf("写入媒体文件失败: %v", err)
		return nil, classifyError(ctx, err)
	}

	info, statErr := os.Stat(localPath)
	if statErr != nil {
		utils.Errorf("媒体文件未创建: %s", localPath)
		return nil, &models.FetchError{Kind: models.FetchNotCreated, Cause: statErr}
	}
	if info.Size() == 0 {
		utils.Errorf("媒体文件为空: %s", localPath)
		_ = os.Remove(localPath)
		return nil, &models.FetchError{Kind: models.FetchEmpty}
	}
	if err := models.ValidateSize(total); err != nil {
		utils.Errorf("媒体文件过小: %d 字节", total)
		_ = os.Remove(localPath)
		return nil, err
	}

	utils.Infof("媒体文件下载完成: %s (大小: %d 字节)", localPath, total)
	return &models.DownloadArtifact{
		LocalPath: localPath,
		ServePath: models.ServePathFor(filename),
		Filename:  filename,
		ByteSize:  total,
		SourceURL: mediaURL,
		CreatedAt: p.now(),
	}, nil
}

// stream 按块写入文件,返回写入字节数
func (p *Pipeline) stream(body io.Reader, localPath string, progress io.Writer) (int64, error) {
	f, err := os.Create(localPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var w io.Writer = f
	if progress != nil {
		w = io.MultiWriter(f, progress)
	}

	buf := make([]byte, p.opts.ChunkSize)
	var total int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, readErr
		}
	}
	return total, f.Sync()
}

// maxAllocateAttempts 同一次分配最多尝试的时间戳个数
const maxAllocateAttempts = 60

// allocate 创建 {root}/{ts} 目录
// nameFormat 对应的文件已存在时 (同一秒内多次下载) 递增时间戳
func (p *Pipeline) allocate(nameFormat string) (string, int64, error) {
	p.allocMu.Lock()
	defer p.allocMu.Unlock()

	start := p.now().Unix()
	var lastErr error
	for ts := start; ts < start+maxAllocateAttempts; ts++ {
		dir := filepath.Join(p.opts.Root, strconv.FormatInt(ts, 10))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", 0, fmt.Errorf("创建下载目录失败: %w", err)
		}
		if nameFormat == "" {
			return dir, ts, nil
		}
		// O_EXCL 占位,防止并发下载得到同一文件名
		target := filepath.Join(dir, fmt.Sprintf(nameFormat, ts))
		f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return dir, ts, nil
		}
		lastErr = err
	}
	return "", 0, fmt.Errorf("%d 次尝试后仍无法分配文件名: %w", maxAllocateAttempts, lastErr)
}

// setHeaders 设置浏览器UA和Referer
// 不设置Accept-Encoding,由传输层处理压缩
func (p *Pipeline) setHeaders(req *http.Request) {
	if p.opts.UserAgent != "" {
		req.Header.Set("User-Agent", p.opts.UserAgent)
	}
	req.Header.Set("Referer", p.opts.Referer)
}

// classifyError 将网络错误转换为FetchError
func classifyError(ctx context.Context, err error) error {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &models.FetchError{Kind: models.FetchTimeout, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &models.FetchError{Kind: models.FetchTimeout, Cause: err}
	}
	return &models.FetchError{Kind: models.FetchIO, Cause: err}
}
