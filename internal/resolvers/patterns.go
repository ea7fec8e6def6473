package resolvers

import (
	"regexp"
	"strings"
)

// ExtractionPattern 页面源码中的媒体地址匹配规则
// Nested 不为空时,先用 Pattern 截取片段,再用 Nested 从片段中取地址
type ExtractionPattern struct {
	Name    string
	Pattern *regexp.Regexp
	Nested  *regexp.Regexp
}

// sourcePatterns 按优先级排列,第一个得到可用地址的规则生效
var sourcePatterns = []ExtractionPattern{
	{Name: "video_url", Pattern: regexp.MustCompile(`"video_url":"([^"]+)"`)},
	{Name: "playbackUrl", Pattern: regexp.MustCompile(`"playbackUrl":"([^"]+)"`)},
	{Name: "contentUrl", Pattern: regexp.MustCompile(`"contentUrl":"([^"]+)"`)},
	{Name: "video.url", Pattern: regexp.MustCompile(`"video":\{"url":"([^"]+)"`)},
	{Name: "og:video", Pattern: regexp.MustCompile(`<meta property="og:video" content="([^"]+)"`)},
	{Name: "og:video:secure_url", Pattern: regexp.MustCompile(`<meta property="og:video:secure_url" content="([^"]+)"`)},
	{
		Name:    "video_versions",
		Pattern: regexp.MustCompile(`video_versions":\[(.*?)\]`),
		Nested:  regexp.MustCompile(`"url":"([^"]+)"`),
	},
}

// jsonUnescaper 还原内嵌JSON中的转义
var jsonUnescaper = strings.NewReplacer(`\u0026`, "&", `\/`, "/")

// UnescapeMediaURL 还原 \u0026 和 \/ 转义
func UnescapeMediaURL(s string) string {
	return jsonUnescaper.Replace(s)
}

// extract 返回该规则的第一个匹配 (只检查第一个匹配)
func (p ExtractionPattern) extract(source string) (string, bool) {
	m := p.Pattern.FindStringSubmatch(source)
	if m == nil {
		return "", false
	}
	candidate := m[1]

	if p.Nested != nil {
		nm := p.Nested.FindStringSubmatch(candidate)
		if nm == nil {
			return "", false
		}
		candidate = nm[1]
	}

	return UnescapeMediaURL(candidate), true
}

// ScanSource 按规则顺序扫描页面源码
// 返回地址和命中的规则名;blob地址被跳过,继续下一条规则
func ScanSource(source string) (string, string, bool) {
	for _, p := range sourcePatterns {
		u, ok := p.extract(source)
		if !ok || !usableURL(u) {
			continue
		}
		return u, p.Name, true
	}
	return "", "", false
}
