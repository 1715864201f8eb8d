package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"productcatalog/internal/models"
)

// Open connects to postgres with dsn, migrates the schema and returns the
// handle. The caller owns it and must call Close.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	return OpenDialector(postgres.Open(dsn), log)
}

// OpenDialector is Open for an arbitrary gorm dialector.
func OpenDialector(d gorm.Dialector, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(d, Config(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := models.Migrate(gdb); err != nil {
		_ = Close(gdb)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return gdb, nil
}

// Config is the gorm configuration shared by every dialector. Driver errors
// are translated so duplicate keys surface as gorm.ErrDuplicatedKey.
func Config(log *zap.Logger) *gorm.Config {
	if log == nil {
		log = zap.NewNop()
	}
	return &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(zap.NewStdLog(log.Named("gorm")), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Ping checks the connection.
func Ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
