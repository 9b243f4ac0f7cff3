package storage

import (
	"context"
	"fmt"
	"time"

	"candidate-search/internal/config"
	"candidate-search/internal/metrics"
	"candidate-search/internal/storage/models"
	"candidate-search/internal/types"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const driverPostgres = "postgres"

// nearestRow 最近邻查询的结果行
type nearestRow struct {
	ID            int64   `gorm:"column:id"`
	FileName      string  `gorm:"column:filename"`
	CandidateName string  `gorm:"column:candidatename"`
	Email         string  `gorm:"column:email"`
	Skillset      string  `gorm:"column:skillset"`
	Distance      float64 `gorm:"column:distance"`
}

// PostgresStore 基于 pgvector 的记录存储，距离由数据库计算
type PostgresStore struct {
	db     *gorm.DB
	opts   StoreOptions
	logger zerolog.Logger
}

var _ RecordStore = (*PostgresStore)(nil)

// PostgresOption PostgresStore 配置选项
type PostgresOption func(*PostgresStore)

// WithPostgresLogger 设置日志
func WithPostgresLogger(l zerolog.Logger) PostgresOption {
	return func(s *PostgresStore) { s.logger = l }
}

// NewPostgresStore 连接数据库，连接在整个运行期间复用
func NewPostgresStore(ctx context.Context, cfg *config.PostgresConfig, opts StoreOptions, options ...PostgresOption) (*PostgresStore, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, fmt.Errorf("%w: PostgreSQL连接串不能为空", types.ErrInvalidConfig)
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:      logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, types.NewStorageError(driverPostgres, "connect", err)
	}
	return newPostgresStoreWithDB(ctx, db, cfg, opts, options...)
}

func newPostgresStoreWithDB(ctx context.Context, db *gorm.DB, cfg *config.PostgresConfig, opts StoreOptions, options ...PostgresOption) (*PostgresStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, types.NewStorageError(driverPostgres, "ping", err)
	}

	if err := db.Use(NewGormTracingPlugin(db.Migrator().CurrentDatabase(), "postgresql")); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	s := &PostgresStore{db: db, opts: opts, logger: zerolog.Nop()}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// EnsureSchema 启用 vector 扩展并建表；已有表的向量维度与配置不一致时返回维度错误
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	defer metrics.ObserveStore(driverPostgres, "ensure_schema", time.Now())
	db := s.db.WithContext(ctx)

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return types.NewStorageError(driverPostgres, "create_extension", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	filename TEXT NOT NULL,
	candidatename TEXT,
	email TEXT,
	contactnumber TEXT,
	academics TEXT,
	experience TEXT,
	certification TEXT,
	address TEXT,
	projects TEXT,
	internship TEXT,
	skillset TEXT,
	programming_languages TEXT,
	spoken_languages TEXT,
	summary TEXT,
	vector vector(%d) NOT NULL
)`, s.opts.Table, s.opts.Dimensions)
	if err := db.Exec(ddl).Error; err != nil {
		return types.NewStorageError(driverPostgres, "create_table", err)
	}

	// pgvector 把维度保存在 atttypmod 中
	var dims int
	err := db.Raw(`SELECT atttypmod FROM pg_attribute WHERE attrelid = ?::regclass AND attname = 'vector'`, s.opts.Table).
		Scan(&dims).Error
	if err != nil {
		return types.NewStorageError(driverPostgres, "inspect_schema", err)
	}
	if dims > 0 && dims != s.opts.Dimensions {
		return types.NewDimensionError(s.opts.Table, dims, s.opts.Dimensions)
	}
	s.logger.Debug().Str("table", s.opts.Table).Int("dimensions", s.opts.Dimensions).Msg("数据表已就绪")
	return nil
}

// Insert 单条 INSERT，本身即为原子操作
func (s *PostgresStore) Insert(ctx context.Context, record *types.CandidateRecord) (int64, error) {
	defer metrics.ObserveStore(driverPostgres, "insert", time.Now())
	if err := checkDimension(record.SourceFileName, record.Embedding, s.opts.Dimensions); err != nil {
		return 0, err
	}

	row := models.CandidateVector{
		SourceFileName:   record.SourceFileName,
		CandidateColumns: models.FromTypes(record.Fields.Columns()),
		Embedding:        pgvector.NewVector(record.Embedding),
	}
	if err := s.db.WithContext(ctx).Table(s.opts.Table).Create(&row).Error; err != nil {
		return 0, types.NewStorageError(record.SourceFileName, "insert", err)
	}
	return row.ID, nil
}

// NearestNeighbor ORDER BY 距离 LIMIT 1
func (s *PostgresStore) NearestNeighbor(ctx context.Context, query []float32) (*types.QueryResult, error) {
	defer metrics.ObserveStore(driverPostgres, "nearest", time.Now())
	if err := checkDimension("query", query, s.opts.Dimensions); err != nil {
		return nil, err
	}

	op := "<->"
	if s.opts.Metric == config.MetricCosine {
		op = "<=>"
	}
	sql := fmt.Sprintf(
		"SELECT id, filename, candidatename, email, skillset, vector %s ? AS distance FROM %s ORDER BY distance LIMIT 1",
		op, s.opts.Table)

	var rows []nearestRow
	if err := s.db.WithContext(ctx).Raw(sql, pgvector.NewVector(query)).Scan(&rows).Error; err != nil {
		return nil, types.NewStorageError("query", "nearest_neighbor", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return resultFromColumns(r.ID, r.FileName, r.CandidateName, r.Email, r.Skillset, r.Distance), nil
}

// ExistsByFilename 是否已有同名文件
func (s *PostgresStore) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var exists bool
	sql := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE filename = ?)", s.opts.Table)
	if err := s.db.WithContext(ctx).Raw(sql, filename).Scan(&exists).Error; err != nil {
		return false, types.NewStorageError(filename, "exists", err)
	}
	return exists, nil
}

// Count 记录总数
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Table(s.opts.Table).Count(&n).Error; err != nil {
		return 0, types.NewStorageError(driverPostgres, "count", err)
	}
	return n, nil
}

// Close 关闭连接
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
