package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/InsFetch/internal/core"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

var (
	targetURL       string
	urlFile         string
	workers         int
	batchDelay      int
	continueOnError bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "下载单个或批量视频",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateDownloadFlags(targetURL, urlFile, workers, batchDelay); err != nil {
			return err
		}
		appConfig.MergeCLIFlags("", downloadDir, "", workers, headful)

		headerManager, err := newHeaderManager()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		service := core.NewService(appConfig, headerManager)
		defer func() {
			if err := service.Close(); err != nil {
				utils.Warnf("关闭浏览器会话失败: %v", err)
			}
		}()

		if urlFile != "" {
			return runBatch(ctx, cmd, service)
		}
		return runSingle(ctx, service)
	},
}

// runSingle 下载单个URL并显示字节进度
func runSingle(ctx context.Context, service *core.Service) error {
	rawURL, err := NormalizeURL(targetURL)
	if err != nil {
		return fmt.Errorf("无效的目标URL: %w", err)
	}

	var bar *progressbar.ProgressBar
	progress := func(total int64) io.Writer {
		bar = utils.NewBytesProgressBar(total, "⬇️  下载中")
		return bar
	}

	res, err := service.Start(ctx, rawURL, progress)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("下载失败: %w", err)
	}

	fmt.Println("\n==================================================")
	fmt.Println("📊 下载结果")
	fmt.Println("==================================================")
	fmt.Printf("✅ 帖子ID: %s\n", res.PostID)
	fmt.Printf("✅ 解析策略: %s\n", res.Strategy)
	fmt.Printf("✅ 文件: %s\n", res.Filename)
	fmt.Printf("📦 大小: %.2f MB\n", float64(res.ByteSize)/(1024*1024))
	fmt.Printf("🔗 服务路径: %s\n", res.DownloadPath)
	fmt.Println("==================================================")
	return nil
}

// runBatch 从文件读取URL并批量下载
func runBatch(ctx context.Context, cmd *cobra.Command, service *core.Service) error {
	urls, err := utils.ReadURLsFromFile(urlFile)
	if err != nil {
		return fmt.Errorf("读取URL文件失败: %w", err)
	}

	opts := appConfig.BatchOptions()
	if cmd.Flags().Changed("batch-delay") {
		opts.Delay = time.Duration(batchDelay) * time.Second
	}
	if cmd.Flags().Changed("continue-on-error") {
		opts.ContinueOnError = continueOnError
	}

	downloader, err := core.NewBatchDownloader(service, opts, utils.NewReporter(appConfig.Fetch.Root))
	if err != nil {
		return err
	}
	bar := utils.NewProgressBar(len(urls), "批量下载")
	downloader.WithProgress(bar)

	_, err = downloader.Run(ctx, urls)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("批量下载失败: %w", err)
	}

	utils.Info("✨ 批量下载任务完成!")
	return nil
}

func init() {
	downloadCmd.Flags().StringVarP(&targetURL, "url", "u", "", "帖子或Reel的URL")
	downloadCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径")
	downloadCmd.Flags().StringVarP(&downloadDir, "download-dir", "o", "", "下载目录 (默认 downloads)")
	downloadCmd.Flags().BoolVar(&headful, "headful", false, "显示浏览器窗口")

	// 批量处理参数
	downloadCmd.Flags().IntVar(&workers, "workers", 0, "批量下载并发数 (1-16)")
	downloadCmd.Flags().IntVar(&batchDelay, "batch-delay", 0, "批量处理URL间延迟(秒)")
	downloadCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理")
}
