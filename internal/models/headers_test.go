package models

import (
	"net/http"
	"strings"
	"testing"
)

func TestCliHeaders_Parse(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		header    string
		want      string
		expectErr bool
	}{
		{"名称前后空格", []string{"  User-Agent  : Mozilla/5.0"}, "User-Agent", "Mozilla/5.0", false},
		{"值前后空格", []string{"User-Agent:  Mozilla/5.0  "}, "User-Agent", "Mozilla/5.0", false},
		{"值中间空格保留", []string{"X-Custom: value with spaces"}, "X-Custom", "value with spaces", false},
		{"值中包含冒号", []string{"X-URL: https://example.com:8080/path"}, "X-URL", "https://example.com:8080/path", false},
		{"多个冒号按第一个分割", []string{"Authorization: Bearer: token"}, "Authorization", "Bearer: token", false},
		{"空值允许", []string{"User-Agent:"}, "User-Agent", "", false},
		{"缺少冒号", []string{"User-Agent Mozilla/5.0"}, "", "", true},
		{"缺少名称", []string{":value"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, err := CliHeaders(tt.input).Parse()
			if tt.expectErr {
				if err == nil {
					t.Error("期望返回错误, 但成功了")
				}
				return
			}
			if err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			if got := headers.Get(tt.header); got != tt.want {
				t.Errorf("期望 %s='%s', 实际='%s'", tt.header, tt.want, got)
			}
		})
	}
}

func TestCliHeaders_Empty(t *testing.T) {
	var nilHeaders CliHeaders
	if _, err := nilHeaders.Parse(); err != nil {
		t.Errorf("nil数组应该无错误, 得到: %v", err)
	}
	if _, err := CliHeaders([]string{}).Parse(); err != nil {
		t.Errorf("空数组应该无错误, 得到: %v", err)
	}
}

func TestCliHeaders_ErrorPosition(t *testing.T) {
	_, err := CliHeaders([]string{"X-Ok: 1", "broken"}).Parse()
	if err == nil || !strings.Contains(err.Error(), "第2项") {
		t.Errorf("错误信息应指出出错位置, 得到: %v", err)
	}
}

func TestMergeHeaders(t *testing.T) {
	defaults := http.Header{"User-Agent": {"default"}, "Accept": {"*/*"}}
	config := (&HeaderConfig{Headers: map[string]string{"user-agent": "config", "x-ig-app-id": "936619743392459"}}).ToHeader()
	cli := http.Header{"User-Agent": {"cli"}}

	merged := MergeHeaders(defaults, config, cli)
	if merged.Get("User-Agent") != "cli" {
		t.Errorf("命令行应覆盖配置文件: %s", merged.Get("User-Agent"))
	}
	if merged.Get("X-Ig-App-Id") != "936619743392459" {
		t.Errorf("配置文件头部名称应被规范化: %v", merged)
	}
	if merged.Get("Accept") != "*/*" {
		t.Errorf("缺少默认头部: %v", merged)
	}

	// 修改结果不影响输入
	merged.Set("Accept", "changed")
	if defaults.Get("Accept") != "*/*" {
		t.Error("合并结果不应与输入共享切片")
	}

	if got := MergeHeaders(); len(got) != 0 {
		t.Errorf("无输入时应返回空头部: %v", got)
	}
}
