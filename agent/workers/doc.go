/*
Package workers 提供 worker 能力抽象与按标识懒加载的 worker 注册表。

# 概述

执行引擎只依赖 Worker（RunTask）与可选的 Setupper（Setup）能力面，
从不关心实例如何被构建。构建方式由 Locator 描述：

  - FactoryLocator — 进程内构造函数
  - PluginLocator  — 按路径加载 Go plugin 并查找导出符号
  - RemoteLocator  — OpenAI 兼容的 chat completions 远程服务

# Registry

Registry 将标识映射到 Spec，并在首次使用时构建实例：

  - 快路径直接返回缓存实例
  - 否则按标识按需创建锁，加锁后二次检查缓存
  - 构建失败返回 LoadError，不做负缓存，下一次调用会重试
  - 构建成功后执行一次 Setup，再缓存实例

同一标识无论多少并发调用，构建与 Setup 都只发生一次，所有调用方拿到同一个实例。
实例不会被淘汰，生命周期与进程一致。
*/
package workers
