package models

import (
	"path"
	"time"
)

const (
	// MinMediaSize 媒体文件最小有效大小 (1KB)
	MinMediaSize = 1024

	// ServePrefix 对外提供下载文件的路径前缀
	ServePrefix = "/downloads/"
)

// DownloadArtifact 已通过校验并落盘的媒体文件
type DownloadArtifact struct {
	LocalPath string    `json:"local_path"` // 本地存储路径
	ServePath string    `json:"serve_path"` // 对外访问路径 (/downloads/{filename})
	Filename  string    `json:"filename"`   // 文件名
	ByteSize  int64     `json:"byte_size"`  // 文件大小(字节)
	SourceURL string    `json:"source_url"` // 媒体源地址
	CreatedAt time.Time `json:"created_at"` // 创建时间
}

// ServePathFor 返回文件名对应的对外访问路径
func ServePathFor(filename string) string {
	return ServePrefix + path.Base(filename)
}

// ValidateSize 按顺序校验落盘文件大小
// 返回: 不满足时返回对应的FetchError
func ValidateSize(size int64) error {
	if size == 0 {
		return &FetchError{Kind: FetchEmpty}
	}
	if size < MinMediaSize {
		return &FetchError{Kind: FetchTooSmall}
	}
	return nil
}
