package models

import (
	"fmt"
	"net/url"
	"strings"
)

// PostKind 帖子类型 (URL路径中的标记段)
type PostKind string

const (
	// KindPost 普通帖子永久链接 /p/{id}/
	KindPost PostKind = "p"
	// KindReel 短视频 /reel/{id}/
	KindReel PostKind = "reel"
)

const (
	// DesktopUserAgent 桌面Chrome的User-Agent
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"

	// SiteHost 目标站点主机名
	SiteHost = "instagram.com"

	// CanonicalBase 规范化URL前缀
	CanonicalBase = "https://www.instagram.com"
)

// PostReference 从页面URL解析出的帖子引用
// 由输入URL唯一确定,创建后不可变
type PostReference struct {
	PostID       string   `json:"post_id"`
	CanonicalURL string   `json:"canonical_url"`
	Kind         PostKind `json:"kind"`
}

// NormalizePostURL 校验并规范化帖子页面URL
// 查询串、片段和结尾斜杠会被忽略,因此只有这些部分不同的URL得到相同结果
func NormalizePostURL(raw string) (PostReference, error) {
	trimmed := strings.TrimSpace(raw)
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.TrimRight(trimmed, "/")

	// 粘贴时常省略协议,主机属于站点时补全
	if !strings.Contains(trimmed, "://") {
		if host, _, _ := strings.Cut(trimmed, "/"); isSiteHost(host) {
			trimmed = "https://" + trimmed
		}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return PostReference{}, &InvalidURLError{URL: raw, Reason: ReasonInvalidFormat}
	}

	if !isSiteHost(parsed.Hostname()) {
		return PostReference{}, &InvalidURLError{URL: raw, Reason: ReasonNotSiteURL}
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")

	// 优先查找 p 段,其次 reel 段
	for _, kind := range []PostKind{KindPost, KindReel} {
		for i, seg := range segments {
			if seg != string(kind) {
				continue
			}
			if i+1 >= len(segments) || segments[i+1] == "" {
				return PostReference{}, &InvalidURLError{URL: raw, Reason: ReasonNoPostID}
			}
			id := segments[i+1]
			return PostReference{
				PostID:       id,
				CanonicalURL: fmt.Sprintf("%s/%s/%s/", CanonicalBase, kind, id),
				Kind:         kind,
			}, nil
		}
	}

	return PostReference{}, &InvalidURLError{URL: raw, Reason: ReasonNoPostID}
}

func isSiteHost(host string) bool {
	host = strings.ToLower(host)
	return host == SiteHost || strings.HasSuffix(host, "."+SiteHost)
}

// ValidateURL 只检查协议和主机名,不要求是帖子地址
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}
