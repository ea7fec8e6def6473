package resolvers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/RecoveryAshes/InsFetch/internal/models"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

const (
	// DefaultAPIEndpoint 半公开数据接口,{post_id} 会被替换
	DefaultAPIEndpoint = "https://www.instagram.com/p/{post_id}/?__a=1&__d=dis"

	// PostIDPlaceholder 接口模板中的帖子ID占位符
	PostIDPlaceholder = "{post_id}"
)

// apiPayload 数据接口响应中用到的字段
type apiPayload struct {
	Items []struct {
		VideoVersions []struct {
			URL string `json:"url"`
		} `json:"video_versions"`
	} `json:"items"`
	GraphQL *struct {
		ShortcodeMedia *struct {
			VideoURL string `json:"video_url"`
		} `json:"shortcode_media"`
	} `json:"graphql"`
}

// APIResolver 通过数据接口解析媒体地址,不使用浏览器
type APIResolver struct {
	endpoint string
	timeout  time.Duration
	headers  models.HeaderProvider
}

// NewAPIResolver 创建接口解析器
// headers 可为nil
func NewAPIResolver(endpoint string, timeout time.Duration, headers models.HeaderProvider) *APIResolver {
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIResolver{
		endpoint: endpoint,
		timeout:  timeout,
		headers:  headers,
	}
}

// Resolve 请求数据接口并提取媒体地址
// 任何失败 (网络、状态码、解析、字段缺失) 都返回 found=false
func (r *APIResolver) Resolve(ctx context.Context, ref models.PostReference) (string, bool) {
	apiURL := strings.ReplaceAll(r.endpoint, PostIDPlaceholder, ref.PostID)
	logger := utils.PostLogger(ref.PostID, string(models.StrategyAPI))

	// 头部提供者缺失或出错时仍以桌面浏览器身份请求
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.UserAgent(models.DesktopUserAgent),
	)
	c.SetRequestTimeout(r.timeout)

	c.OnRequest(func(req *colly.Request) {
		if r.headers == nil {
			return
		}
		headers, err := r.headers.GetHeaders()
		if err != nil {
			logger.Warn().Err(err).Msg("获取HTTP头部失败")
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				req.Headers.Set(name, values[0])
			}
		}
	})

	var body []byte
	c.OnResponse(func(resp *colly.Response) {
		body = resp.Body
		if enc := resp.Headers.Get("Content-Encoding"); enc != "" {
			decoded, err := decodeBody(enc, resp.Body)
			if err != nil {
				logger.Debug().Err(err).Str("encoding", enc).Msg("解码接口响应失败,使用原始内容")
			} else {
				body = decoded
			}
		}
	})

	logger.Debug().Str("url", apiURL).Msg("请求数据接口")
	if err := c.Visit(apiURL); err != nil {
		logger.Info().Err(err).Str("url", apiURL).Msg("数据接口请求失败")
		return "", false
	}

	mediaURL, ok := parseAPIPayload(body)
	if !ok {
		logger.Info().Msg("数据接口响应中没有媒体地址")
		return "", false
	}

	logger.Info().Str("media_url", mediaURL).Msg("从数据接口找到媒体地址")
	return mediaURL, true
}

// parseAPIPayload 按优先级提取媒体地址
// items 中第一个带 video_versions 的条目优先,其次 graphql.shortcode_media.video_url
func parseAPIPayload(body []byte) (string, bool) {
	var payload apiPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		utils.Debugf("解析接口响应失败: %v", err)
		return "", false
	}

	for _, item := range payload.Items {
		if len(item.VideoVersions) > 0 && item.VideoVersions[0].URL != "" {
			return item.VideoVersions[0].URL, true
		}
	}

	if payload.GraphQL != nil && payload.GraphQL.ShortcodeMedia != nil &&
		payload.GraphQL.ShortcodeMedia.VideoURL != "" {
		return payload.GraphQL.ShortcodeMedia.VideoURL, true
	}

	return "", false
}
