/*
包 persistence 保存运行结束后的报告。

# 核心接口

  - ReportStore: Save / Load / List / Close，按 run ID 存取报告。
    Save 对同一 run ID 覆盖写入；RunID 为空时自动生成。
  - ReportSummary: List 的返回项，不含执行树，按保存时间倒序。

# 后端实现

  - Memory: 内存实现，适合测试与一次性运行。
  - File: 每次运行一个 <run_id>.json，临时文件 + rename 原子写入。
  - Redis: 通过 internal/cache 写入 <prefix>report:<run_id>，
    并维护 <prefix>reports 有序集合索引；可设置 TTL。
  - SQL: 通过 internal/database 使用 GORM 写入 report_records 表，
    支持 sqlite、postgres、mysql。

# 使用方式

	store, err := persistence.NewReportStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	err = store.Save(ctx, report.FromExecution(exec))

所有错误都带有 STORE 错误码，并可用 errors.Is 匹配 ErrNotFound 等哨兵错误。
*/
package persistence
