package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/InsFetch/internal/core"
	"github.com/RecoveryAshes/InsFetch/internal/server"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

var (
	serveAddr   string
	downloadDir string
	headful     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP下载服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig.MergeCLIFlags(serveAddr, downloadDir, "", 0, headful)

		headerManager, err := newHeaderManager()
		if err != nil {
			return err
		}

		// 设置信号处理(Ctrl+C优雅退出)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		service := core.NewService(appConfig, headerManager)
		defer func() {
			if err := service.Close(); err != nil {
				utils.Warnf("关闭浏览器会话失败: %v", err)
			}
		}()

		if appConfig.Browser.Eager {
			if err := service.Warmup(ctx); err != nil {
				utils.Warnf("%v, 浏览器解析策略将不可用", err)
			}
		}

		utils.Infof("📁 下载目录: %s", service.DownloadRoot())
		return server.New(appConfig.Server.Addr, service, appConfig.Server.ShutdownTimeout).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "监听地址 (默认 :8000)")
	serveCmd.Flags().StringVarP(&downloadDir, "download-dir", "o", "", "下载目录 (默认 downloads)")
	serveCmd.Flags().BoolVar(&headful, "headful", false, "显示浏览器窗口")
}
