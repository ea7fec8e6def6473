package models

import "fmt"

// PrepareMessage prepare成功时返回给调用方的提示
const PrepareMessage = "Video ready for download"

// Strategy 成功解析媒体地址的策略
type Strategy string

const (
	StrategyNone       Strategy = "none"
	StrategyAPI        Strategy = "api"
	StrategyDOM        Strategy = "dom"
	StrategyPageSource Strategy = "page_source"
	StrategyNetwork    Strategy = "network"
)

// ResolutionResult 解析链的最终结果
// MediaURL 与 Err 有且仅有一个被设置
type ResolutionResult struct {
	MediaURL string
	Strategy Strategy
	Err      error
}

// Found 是否解析成功
func (r ResolutionResult) Found() bool {
	return r.Err == nil && r.MediaURL != ""
}

// Resolved 构造成功结果
func Resolved(mediaURL string, strategy Strategy) ResolutionResult {
	return ResolutionResult{MediaURL: mediaURL, Strategy: strategy}
}

// Unresolved 构造失败结果
func Unresolved(err error) ResolutionResult {
	if err == nil {
		err = ErrResolutionNotFound
	}
	return ResolutionResult{Strategy: StrategyNone, Err: err}
}

// PrepareResult prepare操作结果
type PrepareResult struct {
	PostID        string `json:"post_id"`
	ThumbnailPath string `json:"thumbnail_url"`
}

// StartResult start操作结果
type StartResult struct {
	PostID       string   `json:"post_id"`
	DownloadPath string   `json:"download_url"`
	Filename     string   `json:"filename"`
	ByteSize     int64    `json:"byte_size"`
	Strategy     Strategy `json:"strategy"`
}

// Message 返回给调用方的提示
func (r *StartResult) Message() string {
	return fmt.Sprintf("Video downloaded successfully (%d bytes)", r.ByteSize)
}
