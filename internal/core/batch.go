package core

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/RecoveryAshes/InsFetch/internal/fetcher"
	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// starter 执行单个start操作
type starter interface {
	Start(ctx context.Context, rawURL string, progress fetcher.ProgressFunc) (*models.StartResult, error)
}

// BatchDownloader 批量下载器
type BatchDownloader struct {
	service  starter
	opts     models.BatchOptions
	reporter *utils.Reporter
	bar      *progressbar.ProgressBar
}

// NewBatchDownloader 创建批量下载器
// reporter 为nil时不写报告文件
func NewBatchDownloader(service *Service, opts models.BatchOptions, reporter *utils.Reporter) (*BatchDownloader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &BatchDownloader{
		service:  service,
		opts:     opts,
		reporter: reporter,
	}, nil
}

// WithProgress 每完成一个URL推进一次进度条
func (bd *BatchDownloader) WithProgress(bar *progressbar.ProgressBar) *BatchDownloader {
	bd.bar = bar
	return bd
}

// Run 并发下载URL列表
// ContinueOnError=false 时第一个失败会取消尚未开始的任务,并返回该错误
func (bd *BatchDownloader) Run(ctx context.Context, urls []string) (*models.BatchReport, error) {
	utils.Infof("🚀 开始批量下载: %d个URL (并发: %d)", len(urls), bd.opts.Workers)
	start := time.Now()

	tasks := make([]*models.DownloadTask, len(urls))
	for i, u := range urls {
		tasks[i] = models.NewDownloadTask(u)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bd.opts.Workers)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if gctx.Err() != nil {
				// 已取消,保持pending
				return nil
			}
			if i > 0 && bd.opts.Delay > 0 {
				select {
				case <-gctx.Done():
					return nil
				case <-time.After(bd.opts.Delay):
				}
			}
			return bd.runTask(gctx, i, len(tasks), task)
		})
	}

	runErr := g.Wait()

	report := models.NewBatchReport(tasks, bd.opts, start)
	if bd.reporter != nil {
		if err := bd.reporter.GenerateBatchReport(report); err != nil {
			utils.Errorf("生成批量报告失败: %v", err)
		}
	}
	printSummary(report)

	return report, runErr
}

// runTask 执行单个任务并记录结果
func (bd *BatchDownloader) runTask(ctx context.Context, index, total int, task *models.DownloadTask) error {
	utils.Infof("[%d/%d] %s", index+1, total, task.SourceURL)
	task.Status = models.TaskStatusRunning

	res, err := bd.service.Start(ctx, task.SourceURL, nil)
	if bd.bar != nil {
		_ = bd.bar.Add(1)
	}

	if err != nil {
		task.Fail(err)
		utils.Errorf("❌ 下载失败 [%s]: %v", task.SourceURL, err)
		if !bd.opts.ContinueOnError {
			utils.Warn("批量下载中止 (--continue-on-error=false)")
			return fmt.Errorf("下载 %s 失败: %w", task.SourceURL, err)
		}
		return nil
	}

	task.Complete(res)
	utils.Infof("✅ %s → %s (%d 字节, 策略: %s)", task.SourceURL, res.DownloadPath, res.ByteSize, res.Strategy)
	return nil
}

// printSummary 打印批量下载摘要
func printSummary(report *models.BatchReport) {
	utils.Info("==================================================")
	utils.Info("📊 批量下载摘要")
	utils.Info("==================================================")
	utils.Infof("总URL数: %d", report.TotalURLs)
	utils.Infof("✅ 成功: %d", report.SuccessCount)
	utils.Infof("❌ 失败: %d", report.FailCount)
	if skipped := report.TotalURLs - report.SuccessCount - report.FailCount; skipped > 0 {
		utils.Infof("⏭️  未执行: %d", skipped)
	}
	for strategy, n := range report.ByStrategy {
		utils.Infof("   策略 %s: %d", strategy, n)
	}
	utils.Infof("📦 总大小: %.2f MB", float64(report.TotalSize)/(1024*1024))
	utils.Infof("⏱️  总耗时: %.2f秒", report.Duration)
	utils.Info("==================================================")

	if failed := report.Failed(); len(failed) > 0 {
		utils.Warn("失败的URL:")
		for _, t := range failed {
			utils.Warnf("  - %s: %s", t.SourceURL, t.ErrorMessage)
		}
	}
}
