package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"candidate-search/internal/config"
	"candidate-search/internal/metrics"
	"candidate-search/internal/storage/models"
	"candidate-search/internal/types"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const driverMySQL = "mysql"

// MySQLStore 向量以 JSON 保存，最近邻在进程内逐行计算
type MySQLStore struct {
	db       *gorm.DB
	opts     StoreOptions
	distance func(a, b []float32) float64
	logger   zerolog.Logger
}

var _ RecordStore = (*MySQLStore)(nil)

// MySQLOption MySQLStore 配置选项
type MySQLOption func(*MySQLStore)

// WithMySQLLogger 设置日志
func WithMySQLLogger(l zerolog.Logger) MySQLOption {
	return func(s *MySQLStore) { s.logger = l }
}

// mysqlDSN 构建DSN，包含超时设置
func mysqlDSN(cfg *config.MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)
}

// NewMySQLStore 连接 MySQL 并配置连接池
func NewMySQLStore(ctx context.Context, cfg *config.MySQLConfig, opts StoreOptions, options ...MySQLOption) (*MySQLStore, error) {
	if cfg == nil || cfg.Host == "" || cfg.Database == "" {
		return nil, fmt.Errorf("%w: MySQL主机和数据库名不能为空", types.ErrInvalidConfig)
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: logger.New(
			log.New(log.Writer(), "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormLogLevel(cfg.LogLevel),
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		PrepareStmt: true,
	}

	db, err := gorm.Open(mysql.Open(mysqlDSN(cfg)), gormConfig)
	if err != nil {
		return nil, types.NewStorageError(driverMySQL, "connect", err)
	}

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
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, types.NewStorageError(driverMySQL, "ping", err)
	}

	if err := db.Use(NewGormTracingPlugin(cfg.Database, "mysql").WithDisableErrSkip(true)); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	s := &MySQLStore{
		db:       db,
		opts:     opts,
		distance: distanceFunc(opts.Metric),
		logger:   zerolog.Nop(),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// EnsureSchema 建表，已存在时不做任何事
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	defer metrics.ObserveStore(driverMySQL, "ensure_schema", time.Now())
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
		"id BIGINT AUTO_INCREMENT PRIMARY KEY,"+
		"filename VARCHAR(512) NOT NULL,"+
		"candidatename TEXT,"+
		"email TEXT,"+
		"contactnumber TEXT,"+
		"academics TEXT,"+
		"experience TEXT,"+
		"certification TEXT,"+
		"address TEXT,"+
		"projects TEXT,"+
		"internship TEXT,"+
		"skillset TEXT,"+
		"programming_languages TEXT,"+
		"spoken_languages TEXT,"+
		"summary TEXT,"+
		"vector JSON NOT NULL,"+
		"INDEX idx_filename (filename)"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", s.opts.Table)
	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return types.NewStorageError(driverMySQL, "create_table", err)
	}
	s.logger.Debug().Str("table", s.opts.Table).Msg("数据表已就绪")
	return nil
}

// Insert 单条写入
func (s *MySQLStore) Insert(ctx context.Context, record *types.CandidateRecord) (int64, error) {
	defer metrics.ObserveStore(driverMySQL, "insert", time.Now())
	if err := checkDimension(record.SourceFileName, record.Embedding, s.opts.Dimensions); err != nil {
		return 0, err
	}
	vec, err := json.Marshal(record.Embedding)
	if err != nil {
		return 0, fmt.Errorf("序列化向量失败: %w", err)
	}

	row := models.CandidateVectorMySQL{
		SourceFileName:   record.SourceFileName,
		CandidateColumns: models.FromTypes(record.Fields.Columns()),
		Embedding:        datatypes.JSON(vec),
	}
	if err := s.db.WithContext(ctx).Table(s.opts.Table).Create(&row).Error; err != nil {
		return 0, types.NewStorageError(record.SourceFileName, "insert", err)
	}
	return row.ID, nil
}

type mysqlScanRow struct {
	ID            int64          `gorm:"column:id"`
	FileName      string         `gorm:"column:filename"`
	CandidateName string         `gorm:"column:candidatename"`
	Email         string         `gorm:"column:email"`
	Skillset      string         `gorm:"column:skillset"`
	Vector        datatypes.JSON `gorm:"column:vector"`
}

// NearestNeighbor 按 id 顺序逐行计算距离，距离相同时保留 id 较小的记录
func (s *MySQLStore) NearestNeighbor(ctx context.Context, query []float32) (*types.QueryResult, error) {
	defer metrics.ObserveStore(driverMySQL, "nearest", time.Now())
	if err := checkDimension("query", query, s.opts.Dimensions); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	rows, err := db.Table(s.opts.Table).
		Select("id, filename, candidatename, email, skillset, vector").
		Order("id").
		Rows()
	if err != nil {
		return nil, types.NewStorageError("query", "nearest_neighbor", err)
	}
	defer rows.Close()

	var (
		best     *mysqlScanRow
		bestDist float64
	)
	for rows.Next() {
		var row mysqlScanRow
		if err := db.ScanRows(rows, &row); err != nil {
			return nil, types.NewStorageError("query", "scan", err)
		}
		var vec []float32
		if err := json.Unmarshal(row.Vector, &vec); err != nil {
			return nil, types.NewStorageError(row.FileName, "decode_vector", err)
		}
		if len(vec) != len(query) {
			return nil, types.NewDimensionError(row.FileName, len(vec), len(query))
		}
		d := s.distance(query, vec)
		if best == nil || d < bestDist {
			r := row
			best, bestDist = &r, d
		}
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("query", "iterate", err)
	}
	if best == nil {
		return nil, nil
	}
	return resultFromColumns(best.ID, best.FileName, best.CandidateName, best.Email, best.Skillset, bestDist), nil
}

// ExistsByFilename 是否已有同名文件
func (s *MySQLStore) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Table(s.opts.Table).Where("filename = ?", filename).Limit(1).Count(&n).Error
	if err != nil {
		return false, types.NewStorageError(filename, "exists", err)
	}
	return n > 0, nil
}

// Count 记录总数
func (s *MySQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Table(s.opts.Table).Count(&n).Error; err != nil {
		return 0, types.NewStorageError(driverMySQL, "count", err)
	}
	return n, nil
}

// Close 关闭数据库连接
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
