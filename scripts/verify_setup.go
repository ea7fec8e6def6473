package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/shirou/gopsutil/v3/mem"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  InsFetch 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	fmt.Printf("✅ Go版本: %s\n", runtime.Version())
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 检查浏览器
	if path, found := launcher.LookPath(); found {
		fmt.Printf("✅ 已找到浏览器: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到本地Chrome/Chromium - 首次启动时将自动下载")
		fmt.Println("   也可以在配置文件中设置 browser.bin")
	}

	// 检查内存
	if vm, err := mem.VirtualMemory(); err == nil {
		availMB := vm.Available / 1024 / 1024
		if availMB < 512 {
			fmt.Printf("⚠️  可用内存较少: %dMB (浏览器至少需要约512MB)\n", availMB)
		} else {
			fmt.Printf("✅ 可用内存: %dMB\n", availMB)
		}
	} else {
		fmt.Printf("⚠️  无法读取内存信息: %v\n", err)
	}

	// 检查下载目录是否可写
	fmt.Println()
	fmt.Println("检查目录...")
	for _, dir := range []string{"downloads", "logs"} {
		if err := checkWritable(dir); err != nil {
			fmt.Printf("❌ %s/ 不可写: %v\n", dir, err)
			allOK = false
		} else {
			fmt.Printf("✅ %s/\n", dir)
		}
	}

	// 检查项目结构
	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredDirs := []string{
		"cmd/insfetch",
		"internal/browser",
		"internal/core",
		"internal/fetcher",
		"internal/resolvers",
		"internal/server",
		"internal/utils",
		"internal/models",
		"configs",
	}

	for _, dir := range requiredDirs {
		if _, err := os.Stat(dir); err == nil {
			fmt.Printf("✅ %s/\n", dir)
		} else {
			fmt.Printf("❌ %s/ 不存在\n", dir)
			allOK = false
		}
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build -o insfetch ./cmd/insfetch' 构建项目")
		fmt.Println("  2. 运行 './insfetch serve' 启动服务")
		os.Exit(0)
	} else {
		fmt.Println("❌ 环境验证失败,请解决上述问题。")
		os.Exit(1)
	}
}

// checkWritable 创建目录并写入临时文件
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return err
	}
	return os.Remove(probe)
}
