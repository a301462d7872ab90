/*
包 database 为 sql 报告存储提供基于 GORM 的连接管理。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB(ctx)、Ping、
    WithTransaction 与 Close。
  - PoolConfig：最大空闲/打开连接数、连接生命周期与健康检查间隔。

# 驱动

Open 根据 config.DatabaseConfig.Driver 选择方言：sqlite（纯 Go 的
glebarez/sqlite）、postgres、mysql。
*/
package database
