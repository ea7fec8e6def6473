package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/resolvers"
)

var (
	inspectHTML string
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "离线检查已保存的页面,显示各解析策略的匹配结果",
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectHTML == "" {
			return fmt.Errorf("必须指定 --html")
		}

		page, err := browser.LoadStaticPage(inspectHTML)
		if err != nil {
			return err
		}

		report, err := resolvers.Inspect(context.Background(), page, appConfig.Browser.ScriptWait)
		if err != nil {
			return fmt.Errorf("检查页面失败: %w", err)
		}

		if inspectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		strategy, mediaURL := report.Winner()
		fmt.Println("==================================================")
		fmt.Printf("🔍 页面: %s\n", inspectHTML)
		fmt.Println("==================================================")
		fmt.Printf("DOM:        %s\n", orNone(report.DOM))
		fmt.Printf("页面源码:   %s\n", orNone(report.PageSource))
		if report.Pattern != "" {
			fmt.Printf("  命中规则: %s\n", report.Pattern)
		}
		if report.NetworkError != "" {
			fmt.Printf("网络观察:   (%s)\n", report.NetworkError)
		} else {
			fmt.Printf("网络观察:   %s\n", orNone(report.Network))
		}
		fmt.Printf("缩略图:     %s\n", orNone(report.Thumbnail))
		fmt.Println("--------------------------------------------------")
		fmt.Printf("✅ 生效策略: %s %s\n", strategy, mediaURL)
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	inspectCmd.Flags().StringVar(&inspectHTML, "html", "", "已保存的HTML文件")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "以JSON格式输出")
}
