package resolvers

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/InsFetch/internal/browser"
	"github.com/RecoveryAshes/InsFetch/internal/utils"
)

// networkObserverScript 监听资源加载并强制播放页面内视频
// 等待 waitMs 毫秒后返回第一个视频类资源地址,没有则返回null
const networkObserverScript = `(waitMs) => new Promise((resolve) => {
	const isVideo = (entry) => entry.initiatorType === 'video' ||
		entry.name.includes('.mp4') ||
		entry.name.includes('/video/');
	let videoUrl = null;
	const observer = new PerformanceObserver((list) => {
		for (const entry of list.getEntries()) {
			if (videoUrl === null && isVideo(entry)) {
				videoUrl = entry.name;
				break;
			}
		}
	});
	observer.observe({ entryTypes: ['resource'] });

	for (const video of document.getElementsByTagName('video')) {
		try {
			video.currentTime = 1;
			if (video.paused) {
				video.play().catch(() => {});
			}
		} catch (e) {}
	}

	setTimeout(() => {
		observer.disconnect();
		if (videoUrl === null) {
			const loaded = performance.getEntriesByType('resource').find(isVideo);
			if (loaded) {
				videoUrl = loaded.name;
			}
		}
		resolve(videoUrl);
	}, waitMs);
})`

// observeNetwork 在页面中注入观察脚本,返回观察到的媒体地址
func observeNetwork(ctx context.Context, page browser.Page, wait time.Duration) (string, bool) {
	// 脚本自身等待 wait,额外留出执行余量
	scriptCtx, cancel := context.WithTimeout(ctx, wait+5*time.Second)
	defer cancel()

	result, err := page.RunScript(scriptCtx, networkObserverScript, wait.Milliseconds())
	if err != nil {
		if errors.Is(err, browser.ErrScriptUnsupported) {
			utils.Debugf("当前页面不支持网络观察")
		} else {
			utils.Warnf("网络观察脚本执行失败: %v", err)
		}
		return "", false
	}

	if !usableURL(result) {
		return "", false
	}
	return result, true
}
