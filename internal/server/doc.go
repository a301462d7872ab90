/*
包 server 在一次调度运行期间暴露 Prometheus 指标。

# 核心类型

  - Manager：封装 http.Server 与 net.Listener，提供非阻塞 Start、
    幂等 Shutdown、Errors 异步错误通道与 Addr 实际监听地址。
  - Handler：/metrics（promhttp）与 /healthz 路由。

CLI 在设置 --metrics-addr 或 metrics.listen_addr 时启动该服务器，
运行结束后关闭。
*/
package server
