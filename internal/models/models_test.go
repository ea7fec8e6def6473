package models

import (
	"errors"
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://example.com/path/to/resource", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizePostURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantID    string
		wantKind  PostKind
		wantCanon string
	}{
		{"普通帖子", "https://www.instagram.com/p/ABC123/", "ABC123", KindPost, "https://www.instagram.com/p/ABC123/"},
		{"带查询参数", "https://www.instagram.com/p/ABC123/?utm_source=ig_web", "ABC123", KindPost, "https://www.instagram.com/p/ABC123/"},
		{"无结尾斜杠", "https://instagram.com/p/ABC123", "ABC123", KindPost, "https://www.instagram.com/p/ABC123/"},
		{"短视频", "https://www.instagram.com/reel/XYZ789/", "XYZ789", KindReel, "https://www.instagram.com/reel/XYZ789/"},
		{"用户名前缀", "https://www.instagram.com/someone/p/ABC123/", "ABC123", KindPost, "https://www.instagram.com/p/ABC123/"},
		{"带片段", "https://www.instagram.com/reel/XYZ789#comments", "XYZ789", KindReel, "https://www.instagram.com/reel/XYZ789/"},
		{"http协议", "http://m.instagram.com/p/Q1/", "Q1", KindPost, "https://www.instagram.com/p/Q1/"},
		{"省略协议", "www.instagram.com/p/ABC123/", "ABC123", KindPost, "https://www.instagram.com/p/ABC123/"},
		{"省略协议和www", "instagram.com/reel/XYZ/?igsh=1", "XYZ", KindReel, "https://www.instagram.com/reel/XYZ/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := NormalizePostURL(tt.url)
			if err != nil {
				t.Fatalf("规范化失败: %v", err)
			}
			if ref.PostID != tt.wantID {
				t.Errorf("PostID错误: 期望 %q, 得到 %q", tt.wantID, ref.PostID)
			}
			if ref.Kind != tt.wantKind {
				t.Errorf("Kind错误: 期望 %q, 得到 %q", tt.wantKind, ref.Kind)
			}
			if ref.CanonicalURL != tt.wantCanon {
				t.Errorf("CanonicalURL错误: 期望 %q, 得到 %q", tt.wantCanon, ref.CanonicalURL)
			}
		})
	}
}

func TestNormalizePostURL_Equivalence(t *testing.T) {
	a, errA := NormalizePostURL("https://www.instagram.com/p/ABC123/?x=1")
	b, errB := NormalizePostURL("https://www.instagram.com/p/ABC123")
	if errA != nil || errB != nil {
		t.Fatalf("规范化失败: %v / %v", errA, errB)
	}
	if a != b {
		t.Errorf("仅查询串和结尾斜杠不同的URL应得到相同结果: %+v != %+v", a, b)
	}
}

func TestNormalizePostURL_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantReason string
	}{
		{"其他站点", "https://example.com/p/ABC123/", ReasonNotSiteURL},
		{"仿冒域名", "https://notinstagram.com/p/ABC123/", ReasonNotSiteURL},
		{"无帖子段", "https://www.instagram.com/someone/", ReasonNoPostID},
		{"p段后无ID", "https://www.instagram.com/p/", ReasonNoPostID},
		{"站点首页", "https://www.instagram.com", ReasonNoPostID},
		{"非http协议", "ftp://www.instagram.com/p/ABC/", ReasonInvalidFormat},
		{"省略协议的其他站点", "example.com/p/ABC123/", ReasonInvalidFormat},
		{"空字符串", "", ReasonInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizePostURL(tt.url)
			if err == nil {
				t.Fatal("期望返回错误")
			}
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("错误应匹配 ErrInvalidURL: %v", err)
			}
			var invalid *InvalidURLError
			if !errors.As(err, &invalid) {
				t.Fatalf("错误类型应为 *InvalidURLError: %T", err)
			}
			if invalid.Reason != tt.wantReason {
				t.Errorf("错误原因不符: 期望 %q, 得到 %q", tt.wantReason, invalid.Reason)
			}
		})
	}
}

func TestValidateSize(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		wantKind FetchErrorKind
	}{
		{"空文件", 0, FetchEmpty},
		{"过小文件", 500, FetchTooSmall},
		{"临界值", 1023, FetchTooSmall},
		{"刚好1KB", 1024, 0},
		{"正常文件", 50000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSize(tt.size)
			if tt.wantKind == 0 {
				if err != nil {
					t.Errorf("不应返回错误: %v", err)
				}
				return
			}
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("期望 FetchError, 得到 %v", err)
			}
			if fe.Kind != tt.wantKind {
				t.Errorf("错误类型不符: 期望 %s, 得到 %s", tt.wantKind, fe.Kind)
			}
		})
	}
}

func TestFetchErrorMessages(t *testing.T) {
	tests := []struct {
		err  *FetchError
		want string
	}{
		{&FetchError{Kind: FetchBadStatus, StatusCode: 404}, "Failed to download video file: HTTP 404"},
		{&FetchError{Kind: FetchTimeout}, "Download timed out"},
		{&FetchError{Kind: FetchNotCreated}, "Failed to create video file"},
		{&FetchError{Kind: FetchEmpty}, "Downloaded file is empty"},
		{&FetchError{Kind: FetchTooSmall}, "Downloaded file is too small"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("%s: 期望 %q, 得到 %q", tt.err.Kind, tt.want, got)
		}
	}

	cause := errors.New("disk full")
	wrapped := &FetchError{Kind: FetchIO, Cause: cause}
	if !errors.Is(wrapped, cause) {
		t.Error("FetchError应支持Unwrap")
	}
}

func TestResolutionResult(t *testing.T) {
	ok := Resolved("https://cdn.example.com/v.mp4", StrategyDOM)
	if !ok.Found() || ok.Err != nil {
		t.Errorf("成功结果状态错误: %+v", ok)
	}

	miss := Unresolved(nil)
	if miss.Found() || miss.MediaURL != "" {
		t.Errorf("失败结果不应包含地址: %+v", miss)
	}
	if !errors.Is(miss.Err, ErrResolutionNotFound) {
		t.Errorf("默认错误应为 ErrResolutionNotFound: %v", miss.Err)
	}
}

func TestBatchOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    BatchOptions
		wantErr bool
	}{
		{"有效配置", BatchOptions{Workers: 2, Delay: time.Second}, false},
		{"并发过小", BatchOptions{Workers: 0}, true},
		{"并发过大", BatchOptions{Workers: 100}, true},
		{"延迟为负", BatchOptions{Workers: 1, Delay: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewBatchReport(t *testing.T) {
	ok := NewDownloadTask("https://www.instagram.com/p/A/")
	ok.Complete(&StartResult{PostID: "A", ByteSize: 2048, Strategy: StrategyAPI, DownloadPath: "/downloads/video_1.mp4"})

	failed := NewDownloadTask("https://www.instagram.com/p/B/")
	failed.Fail(ErrResolutionNotFound)

	report := NewBatchReport([]*DownloadTask{ok, failed}, BatchOptions{Workers: 1}, time.Now().Add(-time.Second))

	if report.SuccessCount != 1 || report.FailCount != 1 {
		t.Errorf("统计错误: 成功=%d, 失败=%d", report.SuccessCount, report.FailCount)
	}
	if report.TotalSize != 2048 {
		t.Errorf("总大小错误: 得到 %d", report.TotalSize)
	}
	if report.ByStrategy[StrategyAPI] != 1 {
		t.Errorf("策略统计错误: %v", report.ByStrategy)
	}
	if got := report.Failed(); len(got) != 1 || got[0].PostID != "" {
		t.Errorf("失败任务列表错误: %+v", got)
	}
	if ok.ID == "" || ok.ID == failed.ID {
		t.Error("任务ID应唯一")
	}
}
