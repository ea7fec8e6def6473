package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/InsFetch/internal/models"
)

// ValidateURL 验证URL格式
func ValidateURL(urlStr string) error {
	return models.ValidateURL(urlStr)
}

// ValidateDownloadFlags 验证download命令的标志
// workers 为0表示使用配置文件中的值
func ValidateDownloadFlags(targetURL, urlFile string, workers, batchDelay int) error {
	if targetURL == "" && urlFile == "" {
		return fmt.Errorf("必须指定 --url 或 --url-file")
	}
	if targetURL != "" && urlFile != "" {
		return fmt.Errorf("--url 和 --url-file 不能同时使用")
	}

	if urlFile != "" {
		if err := ValidateURLFile(urlFile); err != nil {
			return err
		}
	}

	// 验证并发数
	if workers < 0 || workers > 16 {
		return fmt.Errorf("并发数必须在1-16之间,当前值: %d", workers)
	}

	// 验证延迟
	if batchDelay < 0 || batchDelay > 60 {
		return fmt.Errorf("批量延迟必须在0-60秒之间,当前值: %d", batchDelay)
	}

	return nil
}

// ValidateURLFile 验证URL文件路径
func ValidateURLFile(filepath string) error {
	if strings.TrimSpace(filepath) == "" {
		return fmt.Errorf("URL文件路径不能为空")
	}
	// 文件存在性检查将在运行时进行
	return nil
}

// NormalizeURL 规范化URL
func NormalizeURL(urlStr string) (string, error) {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return "", fmt.Errorf("URL不能为空")
	}

	// 如果没有协议,默认使用https
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	if err := ValidateURL(parsed.String()); err != nil {
		return "", err
	}

	return parsed.String(), nil
}
