package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/InsFetch/internal/core"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers           []string // 自定义HTTP请求头
	headersConfigFile string   // 头部配置文件
	validateConfig    bool     // 验证配置文件
)

// appConfig 由 PersistentPreRunE 加载,子命令共享
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "insfetch",
	Short: "Instagram视频下载工具",
	Long: `InsFetch - Instagram帖子/Reel视频下载工具 (Go版本)

支持:
  • 数据接口 + 共享浏览器的多策略媒体地址解析
  • prepare/start 两阶段HTTP下载服务
  • 批量URL下载与报告
  • 自定义HTTP请求头

示例:
  # 启动HTTP服务
  insfetch serve --addr :8000

  # 下载单个视频
  insfetch download -u https://www.instagram.com/reel/ABC123/

  # 批量下载
  insfetch download -f urls.txt --workers 2

  # 验证头部配置
  insfetch --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 命令行参数覆盖配置文件
		config.MergeCLIFlags("", "", logLevel, 0, false)
		if verbose && logLevel == "" {
			config.Logging.Level = "debug"
		}

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !validateConfig {
			return cmd.Help()
		}

		utils.Info("🔍 验证HTTP头部配置...")
		headerManager, err := newHeaderManager()
		if err != nil {
			return err
		}

		// 显示合并后的头部(脱敏)
		safeHeaders := headerManager.GetSafeHeaders()
		names := make([]string, 0, len(safeHeaders))
		for name := range safeHeaders {
			names = append(names, name)
		}
		sort.Strings(names)

		utils.Info("✅ 配置验证通过!")
		utils.Infof("当前有效的HTTP头部 (%d个):", len(names))
		for _, name := range names {
			utils.Infof("  %s: %s", name, safeHeaders[name])
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不需要加载配置
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("InsFetch %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// newHeaderManager 按命令行参数创建并校验头部管理器
func newHeaderManager() (*core.HeaderManager, error) {
	headerManager, err := core.NewHeaderManager(headersConfigFile, headers)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	headerManager.WithUserAgent(appConfig.Resolver.UserAgent)
	// 触发加载配置文件并校验全部头部
	if _, err := headerManager.GetHeaders(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return headerManager, nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headersConfigFile, "headers-config", "", "HTTP头部配置文件 (默认 configs/headers.yaml)")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 添加子命令
	rootCmd.AddCommand(versionCmd, serveCmd, downloadCmd, prepareCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
