package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/fetcher"
	"github.com/RecoveryAshes/InsFetch/internal/models"
)

// fakeOps 可控的核心操作
type fakeOps struct {
	root       string
	prepareRes *models.PrepareResult
	startRes   *models.StartResult
	err        error
	gotURL     string
}

func (f *fakeOps) Prepare(ctx context.Context, rawURL string) (*models.PrepareResult, error) {
	f.gotURL = rawURL
	return f.prepareRes, f.err
}

func (f *fakeOps) Start(ctx context.Context, rawURL string, progress fetcher.ProgressFunc) (*models.StartResult, error) {
	f.gotURL = rawURL
	return f.startRes, f.err
}

func (f *fakeOps) SessionStatus() browser.Status {
	return browser.Status{Ready: true}
}

func (f *fakeOps) DownloadRoot() string {
	return f.root
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var payload map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("响应不是合法JSON: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, payload
}

func TestPrepareSuccess(t *testing.T) {
	ops := &fakeOps{prepareRes: &models.PrepareResult{PostID: "ABC", ThumbnailPath: "/downloads/thumbnail_ABC.jpg"}}
	h := New(":0", ops, 0).Handler()

	rec, payload := do(t, h, http.MethodPost, "/prepare-download", `{"url":"https://www.instagram.com/p/ABC/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("期望200, 得到 %d", rec.Code)
	}
	want := map[string]string{
		"status":        "success",
		"message":       "Video ready for download",
		"thumbnail_url": "/downloads/thumbnail_ABC.jpg",
		"post_id":       "ABC",
	}
	for k, v := range want {
		if payload[k] != v {
			t.Errorf("%s 错误: 期望 %q, 得到 %v", k, v, payload[k])
		}
	}
	if ops.gotURL != "https://www.instagram.com/p/ABC/" {
		t.Errorf("URL未正确传递: %s", ops.gotURL)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("缺少CORS头")
	}
}

func TestStartSuccess(t *testing.T) {
	ops := &fakeOps{startRes: &models.StartResult{
		PostID:       "ABC",
		DownloadPath: "/downloads/video_1700000000.mp4",
		Filename:     "video_1700000000.mp4",
		ByteSize:     50000,
		Strategy:     models.StrategyAPI,
	}}
	h := New(":0", ops, 0).Handler()

	rec, payload := do(t, h, http.MethodPost, "/start-download", `{"url":"https://www.instagram.com/p/ABC/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("期望200, 得到 %d", rec.Code)
	}
	if payload["message"] != "Video downloaded successfully (50000 bytes)" {
		t.Errorf("message 错误: %v", payload["message"])
	}
	if payload["download_url"] != "/downloads/video_1700000000.mp4" {
		t.Errorf("download_url 错误: %v", payload["download_url"])
	}
	if payload["filename"] != "video_1700000000.mp4" {
		t.Errorf("filename 错误: %v", payload["filename"])
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"非法URL", &models.InvalidURLError{Reason: models.ReasonNotSiteURL}, 400, "Not an Instagram URL"},
		{"未解析", models.ErrResolutionNotFound, 400, models.ErrResolutionNotFound.Error()},
		{"无缩略图", models.ErrThumbnailNotFound, 400, "Could not prepare video for download"},
		{"上游状态码", &models.FetchError{Kind: models.FetchBadStatus, StatusCode: 403}, 400, "Failed to download video file: HTTP 403"},
		{"超时", &models.FetchError{Kind: models.FetchTimeout}, 500, "Download timed out"},
		{"过小", &models.FetchError{Kind: models.FetchTooSmall}, 500, "Downloaded file is too small"},
		{"浏览器不可用", fmt.Errorf("%w: no chrome", models.ErrBrowserUnavailable), 503, "browser session unavailable: no chrome"},
		{"未知错误", fmt.Errorf("boom"), 500, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(":0", &fakeOps{err: tt.err}, 0).Handler()
			rec, payload := do(t, h, http.MethodPost, "/start-download", `{"url":"https://www.instagram.com/p/A/"}`)
			if rec.Code != tt.status {
				t.Errorf("期望状态码 %d, 得到 %d", tt.status, rec.Code)
			}
			if payload["error"] != tt.msg {
				t.Errorf("期望错误 %q, 得到 %v", tt.msg, payload["error"])
			}
		})
	}
}

func TestMissingURL(t *testing.T) {
	h := New(":0", &fakeOps{}, 0).Handler()

	for _, body := range []string{``, `{}`, `not json`, `{"link":"x"}`} {
		for _, path := range []string{"/prepare-download", "/start-download"} {
			rec, payload := do(t, h, http.MethodPost, path, body)
			if rec.Code != http.StatusBadRequest || payload["error"] != "Missing URL in request" {
				t.Errorf("%s %q: 期望400缺少URL, 得到 %d %v", path, body, rec.Code, payload)
			}
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(":0", &fakeOps{}, 0).Handler()
	rec, _ := do(t, h, http.MethodGet, "/start-download", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET应返回405, 得到 %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := New(":0", &fakeOps{}, 0).Handler()
	rec, _ := do(t, h, http.MethodOptions, "/start-download", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("预检请求应返回204, 得到 %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "POST") {
		t.Error("预检响应缺少允许的方法")
	}
}

func TestServeDownload(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "1700000000")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "video_1700000000.mp4"), []byte("videodata"), 0644); err != nil {
		t.Fatal(err)
	}
	h := New(":0", &fakeOps{root: root}, 0).Handler()

	t.Run("在子目录中找到文件", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/downloads/video_1700000000.mp4", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("期望200, 得到 %d", rec.Code)
		}
		body, _ := io.ReadAll(rec.Body)
		if string(body) != "videodata" {
			t.Errorf("文件内容错误: %s", body)
		}
		cd := rec.Header().Get("Content-Disposition")
		if !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "video_1700000000.mp4") {
			t.Errorf("应作为附件返回: %s", cd)
		}
	})

	t.Run("文件不存在", func(t *testing.T) {
		rec, payload := do(t, h, http.MethodGet, "/downloads/missing.mp4", "")
		if rec.Code != http.StatusNotFound || payload["error"] != "File not found" {
			t.Errorf("期望404, 得到 %d %v", rec.Code, payload)
		}
	})

	t.Run("根目录不存在", func(t *testing.T) {
		h := New(":0", &fakeOps{root: filepath.Join(root, "nope")}, 0).Handler()
		rec, _ := do(t, h, http.MethodGet, "/downloads/video_1700000000.mp4", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("期望404, 得到 %d", rec.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	h := New(":0", &fakeOps{}, 0).Handler()
	rec, payload := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || payload["status"] != "ok" {
		t.Errorf("健康检查失败: %d %v", rec.Code, payload)
	}
	browserStatus, ok := payload["browser"].(map[string]interface{})
	if !ok || browserStatus["ready"] != true {
		t.Errorf("缺少浏览器状态: %v", payload["browser"])
	}
}

func TestRunShutdown(t *testing.T) {
	s := New("127.0.0.1:0", &fakeOps{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("优雅关闭不应返回错误: %v", err)
	}
}
