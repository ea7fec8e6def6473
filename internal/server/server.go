// Package server 提供 prepare/start 两阶段下载的HTTP接口
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/fetcher"
	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

const (
	// maxBodySize 请求体上限
	maxBodySize = 1 << 20

	msgMissingURL   = "Missing URL in request"
	msgFileNotFound = "File not found"
)

// Operations 服务端依赖的核心操作
type Operations interface {
	Prepare(ctx context.Context, rawURL string) (*models.PrepareResult, error)
	Start(ctx context.Context, rawURL string, progress fetcher.ProgressFunc) (*models.StartResult, error)
	SessionStatus() browser.Status
	DownloadRoot() string
}

// Server HTTP服务
type Server struct {
	ops             Operations
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// New 创建HTTP服务
func New(addr string, ops Operations, shutdownTimeout time.Duration) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	s := &Server{ops: ops, shutdownTimeout: shutdownTimeout}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler 返回带CORS和访问日志的路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /prepare-download", s.handlePrepare)
	mux.HandleFunc("POST /start-download", s.handleStart)
	mux.HandleFunc("GET /downloads/{filename}", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return withCORS(withAccessLog(mux))
}

// Run 启动服务,ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		utils.Infof("🌐 HTTP服务已启动: %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Info("正在关闭HTTP服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

type urlRequest struct {
	URL *string `json:"url"`
}

// decodeURL 读取请求体中的url字段
func decodeURL(r *http.Request) (string, bool) {
	var req urlRequest
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(&req); err != nil {
		return "", false
	}
	if req.URL == nil {
		return "", false
	}
	return *req.URL, true
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgMissingURL)
		return
	}

	res, err := s.ops.Prepare(r.Context(), rawURL)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "success",
		"message":       models.PrepareMessage,
		"thumbnail_url": res.ThumbnailPath,
		"post_id":       res.PostID,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeURL(r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgMissingURL)
		return
	}

	res, err := s.ops.Start(r.Context(), rawURL, nil)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "success",
		"message":      res.Message(),
		"download_url": res.DownloadPath,
		"filename":     res.Filename,
		"byte_size":    res.ByteSize,
		"strategy":     res.Strategy,
	})
}

// handleDownload 在下载根目录的任意子目录中查找文件并作为附件返回
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	path, err := findFile(s.ops.DownloadRoot(), filename)
	if err != nil {
		utils.Errorf("查找文件失败: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if path == "" {
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

// findFile 返回第一个同名文件的路径,找不到时返回空串
func findFile(root, filename string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() && d.Name() == filename {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found, err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.ops.SessionStatus()
	status := "ok"
	if st.LastError != "" || st.Closed {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"browser": st,
	})
}

// statusFor 错误到HTTP状态码的映射
func statusFor(err error) int {
	var fe *models.FetchError
	switch {
	case errors.Is(err, models.ErrInvalidURL),
		errors.Is(err, models.ErrResolutionNotFound),
		errors.Is(err, models.ErrThumbnailNotFound):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrBrowserUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &fe):
		if fe.IsClientSide() {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		utils.Warnf("写入响应失败: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// withCORS 允许任意来源
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := utils.Logger.Info()
		if rec.status >= http.StatusInternalServerError {
			event = utils.Logger.Error()
		}
		event.
			Str("access_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP请求")
	})
}
