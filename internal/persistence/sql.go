package persistence

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spec-kit/bi-triage-agent/internal/config"
)

// SQL wraps a gorm connection used by the sqlite and mysql drivers.
type SQL struct {
	DB *gorm.DB
}

// NewSQL opens a gorm connection for the configured driver. Errors are
// translated so duplicate keys surface as gorm.ErrDuplicatedKey.
func NewSQL(cfg config.StoreConfig, log *zap.Logger) (*SQL, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLDSN)
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.SQLDSN)
	default:
		return nil, fmt.Errorf("persistence: driver %q is not a gorm driver", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == config.DriverSQLite {
		// sqlite allows one writer; a single connection also keeps :memory: databases shared.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("persistence: sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("connected to sql store", zap.String("driver", cfg.Driver))
	return &SQL{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *SQL) Close() {
	if s == nil || s.DB == nil {
		return
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
