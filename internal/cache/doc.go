/*
包 cache 封装 go-redis 客户端，为 redis 报告存储提供连接管理。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Get/GetJSON/Delete，
    以及 SetJSONIndexed（值与有序集合索引在同一事务中写入）、
    IndexMembers/IndexRemove 等索引操作。
  - Config：地址、密码、连接池、默认 TTL 与健康检查间隔，
    可由 config.RedisConfig 通过 FromRedisConfig 构造。

# 错误语义

键不存在时返回 ErrCacheMiss，可用 IsCacheMiss 判断。
*/
package cache
