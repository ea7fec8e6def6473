package utils

import (
	"net/http"
	"strings"
	"testing"
)

func TestHeaderRedactor_Redact(t *testing.T) {
	redactor := NewHeaderRedactor()

	t.Run("部分匹配敏感模式", func(t *testing.T) {
		tests := []struct {
			name  string
			value string
		}{
			{"Authorization", "Bearer token123"},
			{"X-Token", "longtoken123456789"},
			{"X-Api-Key", "key12345678"},
			{"X-Secret", "password123456"},
		}

		for _, tt := range tests {
			headers := http.Header{}
			headers.Set(tt.name, tt.value)
			redacted := redactor.Redact(headers)

			// 检查是否被识别为敏感头部
			if !redactor.IsSensitiveHeader(tt.name) {
				t.Errorf("应该被识别为敏感头部: %s", tt.name)
				continue
			}

			redactedValue, exists := redacted[tt.name]
			if !exists {
				t.Errorf("头部应该存在于脱敏结果中: %s", tt.name)
				continue
			}

			if redactedValue == tt.value {
				t.Errorf("敏感头部应该被脱敏: %s (原值: %s, 脱敏后: %s)", tt.name, tt.value, redactedValue)
			}
			if !strings.Contains(redactedValue, "*") {
				t.Errorf("脱敏后应该包含星号: %s -> %s", tt.value, redactedValue)
			}
		}
	})

	t.Run("非敏感头部不应脱敏", func(t *testing.T) {
		tests := []struct {
			name  string
			value string
		}{
			{"User-Agent", "Mozilla/5.0"},
			{"Accept", "*/*"},
			{"X-Custom", "value"},
		}

		for _, tt := range tests {
			headers := http.Header{}
			headers.Set(tt.name, tt.value)
			redacted := redactor.Redact(headers)
			redactedValue := redacted[tt.name]

			if redactedValue != tt.value {
				t.Errorf("非敏感头部不应被脱敏: %s", tt.name)
			}
		}
	})

	t.Run("空值脱敏", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Authorization", "")
		redacted := redactor.Redact(headers)
		redactedValue := redacted["Authorization"]

		if redactedValue != "***" {
			t.Errorf("空敏感头部应该显示为***, 得到: %s", redactedValue)
		}
	})
}

func TestHeaderRedactor_Cookie(t *testing.T) {
	redactor := NewHeaderRedactor()

	got := redactor.RedactHeaderValue("Cookie", "sessionid=abc123; csrftoken=xyz")
	if got != "sessionid=***; csrftoken=***" {
		t.Errorf("Cookie应只保留名称, 得到: %s", got)
	}

	headers := http.Header{}
	headers.Set("X-B", "2")
	headers.Set("X-A", "1")
	if s := redactor.RedactToString(headers); s != "X-A: 1, X-B: 2" {
		t.Errorf("输出应按名称排序, 得到: %s", s)
	}
}
