package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/InsFetch/internal/models"
)

const testUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func newTestPipeline(t *testing.T, timeout time.Duration) *Pipeline {
	t.Helper()
	p := NewPipeline(Options{
		Root:             t.TempDir(),
		Timeout:          timeout,
		ThumbnailTimeout: time.Second,
		UserAgent:        testUA,
	})
	fixed := time.Unix(1700000000, 0)
	p.now = func() time.Time { return fixed }
	return p
}

func serveBytes(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// countFiles 统计根目录下的所有文件
func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestFetchSuccess(t *testing.T) {
	body := bytes.Repeat([]byte{0x42}, 50000)
	srv := serveBytes(t, http.StatusOK, body)
	p := newTestPipeline(t, 5*time.Second)

	art, err := p.Fetch(context.Background(), srv.URL+"/v.mp4", "ABC", nil)
	if err != nil {
		t.Fatalf("下载失败: %v", err)
	}

	if art.ByteSize != 50000 {
		t.Errorf("大小错误: 期望 50000, 得到 %d", art.ByteSize)
	}
	if art.Filename != "video_1700000000.mp4" {
		t.Errorf("文件名错误: %s", art.Filename)
	}
	if art.ServePath != "/downloads/video_1700000000.mp4" {
		t.Errorf("访问路径错误: %s", art.ServePath)
	}
	wantPath := filepath.Join(p.Root(), "1700000000", "video_1700000000.mp4")
	if art.LocalPath != wantPath {
		t.Errorf("本地路径错误: 期望 %s, 得到 %s", wantPath, art.LocalPath)
	}
	data, err := os.ReadFile(art.LocalPath)
	if err != nil || !bytes.Equal(data, body) {
		t.Errorf("文件内容不一致: %v", err)
	}
}

func TestFetchValidation(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		size     int
		wantKind models.FetchErrorKind
		wantMsg  string
	}{
		{"过小文件", http.StatusOK, 500, models.FetchTooSmall, "Downloaded file is too small"},
		{"空文件", http.StatusOK, 0, models.FetchEmpty, "Downloaded file is empty"},
		{"404状态", http.StatusNotFound, 2048, models.FetchBadStatus, "Failed to download video file: HTTP 404"},
		{"403状态", http.StatusForbidden, 0, models.FetchBadStatus, "Failed to download video file: HTTP 403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveBytes(t, tt.status, bytes.Repeat([]byte{1}, tt.size))
			p := newTestPipeline(t, 5*time.Second)

			art, err := p.Fetch(context.Background(), srv.URL, "ABC", nil)
			if art != nil {
				t.Fatalf("不应返回下载结果: %+v", art)
			}
			var fe *models.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("期望 FetchError, 得到 %v", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("错误类型不符: 期望 %s, 得到 %s", tt.wantKind, fe.Kind)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("错误信息不符: 期望 %q, 得到 %q", tt.wantMsg, err.Error())
			}
			if n := countFiles(t, p.Root()); n != 0 {
				t.Errorf("失败后不应残留文件, 实际 %d 个", n)
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(bytes.Repeat([]byte{1}, 2048))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	p := newTestPipeline(t, 200*time.Millisecond)
	_, err := p.Fetch(context.Background(), srv.URL, "ABC", nil)

	var fe *models.FetchError
	if !errors.As(err, &fe) || fe.Kind != models.FetchTimeout {
		t.Fatalf("期望超时错误, 得到 %v", err)
	}
	if err.Error() != "Download timed out" {
		t.Errorf("错误信息不符: %q", err.Error())
	}
	if n := countFiles(t, p.Root()); n != 0 {
		t.Errorf("超时后应删除不完整文件, 实际残留 %d 个", n)
	}
}

func TestFetchSendsHeaders(t *testing.T) {
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write(bytes.Repeat([]byte{1}, 4096))
	}))
	t.Cleanup(srv.Close)

	p := newTestPipeline(t, 5*time.Second)
	if _, err := p.Fetch(context.Background(), srv.URL, "ABC", nil); err != nil {
		t.Fatalf("下载失败: %v", err)
	}
	if gotUA != testUA {
		t.Errorf("User-Agent错误: %q", gotUA)
	}
	if gotReferer != DefaultReferer {
		t.Errorf("Referer错误: %q", gotReferer)
	}
}

func TestFetchSameSecondDoesNotOverwrite(t *testing.T) {
	srv := serveBytes(t, http.StatusOK, bytes.Repeat([]byte{7}, 4096))
	p := newTestPipeline(t, 5*time.Second)

	first, err := p.Fetch(context.Background(), srv.URL, "A", nil)
	if err != nil {
		t.Fatalf("第一次下载失败: %v", err)
	}
	second, err := p.Fetch(context.Background(), srv.URL, "B", nil)
	if err != nil {
		t.Fatalf("第二次下载失败: %v", err)
	}
	if first.LocalPath == second.LocalPath {
		t.Errorf("同一秒内的下载不应覆盖: %s", first.LocalPath)
	}
	if second.Filename != "video_1700000001.mp4" {
		t.Errorf("第二个文件名应递增时间戳: %s", second.Filename)
	}
}

func TestFetchProgress(t *testing.T) {
	srv := serveBytes(t, http.StatusOK, bytes.Repeat([]byte{1}, 10000))
	p := newTestPipeline(t, 5*time.Second)

	var buf bytes.Buffer
	var gotTotal int64
	_, err := p.Fetch(context.Background(), srv.URL, "A", func(total int64) io.Writer {
		gotTotal = total
		return &buf
	})
	if err != nil {
		t.Fatalf("下载失败: %v", err)
	}
	if buf.Len() != 10000 {
		t.Errorf("进度写入字节数错误: %d", buf.Len())
	}
	if gotTotal != 10000 {
		t.Errorf("总大小错误: %d", gotTotal)
	}
}

func TestFetchProgressUnknownLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 先刷新响应头,正文以分块编码发送
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		_, _ = w.Write(bytes.Repeat([]byte{1}, 10000))
	}))
	t.Cleanup(srv.Close)
	p := newTestPipeline(t, 5*time.Second)

	var buf bytes.Buffer
	gotTotal := int64(0)
	art, err := p.Fetch(context.Background(), srv.URL, "A", func(total int64) io.Writer {
		gotTotal = total
		return &buf
	})
	if err != nil {
		t.Fatalf("下载失败: %v", err)
	}
	if gotTotal != -1 {
		t.Errorf("未知长度时总大小应为 -1, 得到 %d", gotTotal)
	}
	if art.ByteSize != 10000 || buf.Len() != 10000 {
		t.Errorf("写入字节数错误: 文件 %d, 进度 %d", art.ByteSize, buf.Len())
	}
}

func TestAllocateGivesUp(t *testing.T) {
	p := newTestPipeline(t, 5*time.Second)
	// 每个时间戳目录都被同名目录占用,文件无法创建
	for i := 0; i <= maxAllocateAttempts; i++ {
		ts := 1700000000 + i
		name := filepath.Join(p.Root(), strconv.Itoa(ts), fmt.Sprintf("video_%d.mp4", ts))
		if err := os.MkdirAll(name, 0755); err != nil {
			t.Fatal(err)
		}
	}

	_, _, err := p.allocate("video_%d.mp4")
	if err == nil {
		t.Fatal("所有时间戳都不可用时应返回错误")
	}
}

func TestFetchAllocateFailure(t *testing.T) {
	srv := serveBytes(t, http.StatusOK, bytes.Repeat([]byte{1}, 4096))
	p := newTestPipeline(t, 5*time.Second)
	// 下载根目录是一个普通文件,无法创建子目录
	blocker := filepath.Join(t.TempDir(), "root")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	p.opts.Root = blocker

	_, err := p.Fetch(context.Background(), srv.URL, "A", nil)
	var fe *models.FetchError
	if !errors.As(err, &fe) || fe.Kind != models.FetchIO {
		t.Errorf("期望 FetchIO 错误, 得到 %v", err)
	}
}

func TestSaveThumbnail(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpegdata"))
	}))
	t.Cleanup(srv.Close)

	p := newTestPipeline(t, 5*time.Second)
	path, err := p.SaveThumbnail(context.Background(), srv.URL+"/t.jpg", "ABC123")
	if err != nil {
		t.Fatalf("保存缩略图失败: %v", err)
	}
	if path != "/downloads/thumbnail_ABC123.jpg" {
		t.Errorf("访问路径错误: %s", path)
	}
	if gotReferer != DefaultReferer {
		t.Errorf("Referer错误: %q", gotReferer)
	}

	data, err := os.ReadFile(filepath.Join(p.Root(), "1700000000", "thumbnail_ABC123.jpg"))
	if err != nil || string(data) != "jpegdata" {
		t.Errorf("缩略图内容错误: %v", err)
	}
}

func TestSaveThumbnailBadStatus(t *testing.T) {
	srv := serveBytes(t, http.StatusForbidden, []byte("denied"))
	p := newTestPipeline(t, 5*time.Second)

	_, err := p.SaveThumbnail(context.Background(), srv.URL, "ABC123")
	if err == nil || !strings.Contains(err.Error(), "缩略图") {
		t.Errorf("非200状态应返回错误, 得到 %v", err)
	}
	if n := countFiles(t, p.Root()); n != 0 {
		t.Errorf("失败时不应保存文件, 实际 %d 个", n)
	}
}
