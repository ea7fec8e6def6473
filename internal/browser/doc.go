// Package browser 管理进程级共享的自动化浏览器会话
//
// # 概述
//
// 整个进程只持有一个浏览器实例和一个复用的标签页。会话在首次需要时创建
// (或在服务启动时预热),创建过程由互斥锁保护;创建失败会被记录下来,
// 之后的所有调用直接得到同一个错误,不会逐次重试。
//
// # 核心组件
//
// ## Manager
//
// WithPage 在整个回调期间持有使用锁,因此一次完整的浏览器解析
// (导航、等待、DOM查询、源码扫描、网络观察)不会与其他请求交错。
//
//	mgr := NewManager(DefaultOptions(), monitor)
//	defer mgr.Close()
//
//	err := mgr.WithPage(ctx, func(p Page) error {
//	    if err := p.Navigate(ctx, url); err != nil {
//	        return err
//	    }
//	    WaitForAny(ctx, p, []string{"video"}, 3*time.Second, 250*time.Millisecond)
//	    return nil
//	})
//
// ## Page
//
// 解析器只依赖 Page 接口。rodPage 基于go-rod和go-rod/stealth实现;
// StaticPage 基于goquery解析已保存的HTML,用于离线检查和测试。
//
// ## ResourceMonitor
//
// 周期采样系统可用内存和CPU负载 (gopsutil)。启动浏览器前检查资源,
// 资源紧张时只记录警告;健康检查接口读取其快照。
package browser
