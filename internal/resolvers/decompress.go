package resolvers

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodeBody 按Content-Encoding解码接口响应
// gzip 由colly读取响应时解压,这里只处理 br 和 deflate
func decodeBody(contentEncoding string, body []byte) ([]byte, error) {
	var reader io.Reader
	switch enc := strings.ToLower(strings.TrimSpace(contentEncoding)); enc {
	case "", "identity", "gzip":
		return body, nil
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	case "deflate":
		// 规范上是zlib封装,部分服务端直接发送裸deflate流
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			fr := flate.NewReader(bytes.NewReader(body))
			defer fr.Close()
			reader = fr
		} else {
			defer zr.Close()
			reader = zr
		}
	default:
		return nil, fmt.Errorf("不支持的Content-Encoding: %s", enc)
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("解码%s响应失败: %w", contentEncoding, err)
	}
	return decoded, nil
}
