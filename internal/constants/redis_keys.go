package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// SearchModulePrefix 检索模块
	SearchModulePrefix = "search"
	// IngestModulePrefix 导入模块
	IngestModulePrefix = "ingest"

	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityVector 向量实体
	EntityVector = "vector"

	// KeyQueryVector 查询向量缓存 (HASH)
	// 格式: app:search:vector:{sha256(model + query)}
	KeyQueryVector = AppPrefix + ":" + SearchModulePrefix + ":" + EntityVector + ":%s"

	// KeyIngestLock 导入锁 (STRING)，同一来源同时只允许一个导入任务
	// 格式: app:ingest:lock:{source}
	KeyIngestLock = AppPrefix + ":" + IngestModulePrefix + ":" + EntityLock + ":%s"
)
