package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // 待执行
	TaskStatusRunning   TaskStatus = "running"   // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败
)

// BatchOptions 批量下载参数
type BatchOptions struct {
	Workers         int           `json:"workers"`           // 并发数 (默认:2)
	Delay           time.Duration `json:"delay"`             // 每个URL开始前的延迟
	ContinueOnError bool          `json:"continue_on_error"` // 遇到错误继续
}

// Validate 验证批量参数
func (o *BatchOptions) Validate() error {
	if o.Workers < 1 || o.Workers > 16 {
		return fmt.Errorf("并发数必须在1-16之间,当前值: %d", o.Workers)
	}
	if o.Delay < 0 || o.Delay > time.Minute {
		return fmt.Errorf("批量延迟必须在0-60秒之间,当前值: %s", o.Delay)
	}
	return nil
}

// DownloadTask 单个下载任务
type DownloadTask struct {
	ID          string     `json:"id"`                     // 任务唯一ID (UUID)
	SourceURL   string     `json:"source_url"`             // 输入的页面URL
	PostID      string     `json:"post_id,omitempty"`      // 解析出的帖子ID
	CreatedAt   time.Time  `json:"created_at"`             // 创建时间
	CompletedAt *time.Time `json:"completed_at,omitempty"` // 完成时间

	Status       TaskStatus `json:"status"`
	Strategy     Strategy   `json:"strategy,omitempty"`      // 解析成功的策略
	DownloadPath string     `json:"download_url,omitempty"`  // 对外访问路径
	ByteSize     int64      `json:"byte_size,omitempty"`     // 文件大小
	ErrorMessage string     `json:"error_message,omitempty"` // 错误消息
	Duration     float64    `json:"duration"`                // 耗时(秒)
}

// NewDownloadTask 创建新任务
func NewDownloadTask(sourceURL string) *DownloadTask {
	return &DownloadTask{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
		CreatedAt: time.Now(),
		Status:    TaskStatusPending,
	}
}

// Complete 标记任务成功
func (t *DownloadTask) Complete(res *StartResult) {
	now := time.Now()
	t.CompletedAt = &now
	t.Status = TaskStatusCompleted
	t.PostID = res.PostID
	t.Strategy = res.Strategy
	t.DownloadPath = res.DownloadPath
	t.ByteSize = res.ByteSize
	t.Duration = now.Sub(t.CreatedAt).Seconds()
}

// Fail 标记任务失败
func (t *DownloadTask) Fail(err error) {
	now := time.Now()
	t.CompletedAt = &now
	t.Status = TaskStatusFailed
	if err != nil {
		t.ErrorMessage = err.Error()
	}
	t.Duration = now.Sub(t.CreatedAt).Seconds()
}
