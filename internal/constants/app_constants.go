package constants

import "time"

const (
	// DefaultTable 记录表名
	DefaultTable = "docvectors"

	// QueryCacheDuration 查询向量缓存默认时长
	QueryCacheDuration = 24 * time.Hour
	// IngestLockDuration 导入锁默认过期时间，防止进程崩溃后锁永不释放
	IngestLockDuration = 2 * time.Hour

	// CandidateStoredEventType 入库事件类型
	CandidateStoredEventType = "candidate.stored"
)
