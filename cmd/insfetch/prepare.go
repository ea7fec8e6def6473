package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/InsFetch/internal/core"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <url>",
	Short: "只获取帖子缩略图",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawURL, err := NormalizeURL(args[0])
		if err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
		appConfig.MergeCLIFlags("", downloadDir, "", 0, headful)

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

		res, err := service.Prepare(ctx, rawURL)
		if err != nil {
			return err
		}

		fmt.Printf("✅ 帖子ID: %s\n", res.PostID)
		fmt.Printf("🖼️  缩略图: %s (目录 %s)\n", res.ThumbnailPath, service.DownloadRoot())
		return nil
	},
}

func init() {
	prepareCmd.Flags().StringVarP(&downloadDir, "download-dir", "o", "", "下载目录 (默认 downloads)")
	prepareCmd.Flags().BoolVar(&headful, "headful", false, "显示浏览器窗口")
}
