package models

import (
	"encoding/json"
	"time"
)

// BatchReport 批量下载报告
type BatchReport struct {
	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 统计信息
	TotalURLs    int   `json:"total_urls"`
	SuccessCount int   `json:"success_count"`
	FailCount    int   `json:"fail_count"`
	TotalSize    int64 `json:"total_size"` // 字节

	// 按策略统计成功次数
	ByStrategy map[Strategy]int `json:"by_strategy"`

	Tasks []*DownloadTask `json:"tasks"`

	// 配置快照
	Options BatchOptions `json:"options"`
}

// NewBatchReport 汇总任务列表生成报告
func NewBatchReport(tasks []*DownloadTask, opts BatchOptions, start time.Time) *BatchReport {
	r := &BatchReport{
		StartTime:  start,
		EndTime:    time.Now(),
		TotalURLs:  len(tasks),
		ByStrategy: make(map[Strategy]int),
		Tasks:      tasks,
		Options:    opts,
	}
	r.Duration = r.EndTime.Sub(start).Seconds()

	for _, t := range tasks {
		switch t.Status {
		case TaskStatusCompleted:
			r.SuccessCount++
			r.TotalSize += t.ByteSize
			r.ByStrategy[t.Strategy]++
		case TaskStatusFailed:
			r.FailCount++
		}
	}
	return r
}

// Failed 返回失败的任务
func (r *BatchReport) Failed() []*DownloadTask {
	var failed []*DownloadTask
	for _, t := range r.Tasks {
		if t.Status == TaskStatusFailed {
			failed = append(failed, t)
		}
	}
	return failed
}

// ToJSON 序列化为JSON
func (r *BatchReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
