package models

import (
	"errors"
	"fmt"
)

// 面向调用方的错误原因 (与HTTP响应中的文案保持一致)
const (
	ReasonInvalidFormat = "Invalid URL format"
	ReasonNotSiteURL    = "Not an Instagram URL"
	ReasonNoPostID      = "Could not extract post ID from URL"
)

var (
	// ErrInvalidURL 输入URL不是可识别的帖子地址
	ErrInvalidURL = errors.New("invalid post url")

	// ErrResolutionNotFound 所有解析策略均未找到媒体地址
	ErrResolutionNotFound = errors.New("Could not find video URL. Please make sure:\n" +
		"1. The URL is correct\n" +
		"2. The post is public\n" +
		"3. The post contains a video")

	// ErrBrowserUnavailable 共享浏览器会话无法创建
	ErrBrowserUnavailable = errors.New("browser session unavailable")

	// ErrThumbnailNotFound 未能获取缩略图
	ErrThumbnailNotFound = errors.New("Could not prepare video for download")
)

// InvalidURLError URL校验失败
type InvalidURLError struct {
	URL    string
	Reason string
}

// Error 实现error接口
func (e *InvalidURLError) Error() string {
	return e.Reason
}

// Is 支持 errors.Is(err, ErrInvalidURL)
func (e *InvalidURLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// FetchErrorKind 下载失败类型
type FetchErrorKind int

const (
	FetchBadStatus FetchErrorKind = iota + 1
	FetchTimeout
	FetchNotCreated
	FetchEmpty
	FetchTooSmall
	FetchIO
)

// String 返回失败类型名称 (用于日志)
func (k FetchErrorKind) String() string {
	switch k {
	case FetchBadStatus:
		return "bad_status"
	case FetchTimeout:
		return "timeout"
	case FetchNotCreated:
		return "not_created"
	case FetchEmpty:
		return "empty"
	case FetchTooSmall:
		return "too_small"
	case FetchIO:
		return "io"
	default:
		return "unknown"
	}
}

// FetchError 媒体下载与落盘错误
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Cause      error
}

// Error 实现error接口
func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchBadStatus:
		return fmt.Sprintf("Failed to download video file: HTTP %d", e.StatusCode)
	case FetchTimeout:
		return "Download timed out"
	case FetchNotCreated:
		return "Failed to create video file"
	case FetchEmpty:
		return "Downloaded file is empty"
	case FetchTooSmall:
		return "Downloaded file is too small"
	default:
		if e.Cause != nil {
			return fmt.Sprintf("Download failed: %v", e.Cause)
		}
		return "Download failed"
	}
}

// Unwrap 支持errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsClientSide 该错误是否由上游资源本身导致 (非本地故障)
func (e *FetchError) IsClientSide() bool {
	return e.Kind == FetchBadStatus
}
