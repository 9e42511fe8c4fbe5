// Package database opens the recipebox store, migrates its schema and seeds
// the admin account.
package database

import (
	"errors"
	"fmt"

	"github.com/recipebox/recipebox/config"
	"github.com/recipebox/recipebox/database/model"
	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/util/crypto"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func initModels(db *gorm.DB) error {
	models := []any{
		&model.User{},
		&model.Recipe{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			logger.Errorf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

// initAdmin creates the admin account when no admin exists yet. An empty
// password leaves the store untouched.
func initAdmin(db *gorm.DB, password string) error {
	if password == "" {
		return nil
	}
	var count int64
	if err := db.Model(&model.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := crypto.HashPasswordAsBcrypt(password)
	if err != nil {
		return err
	}
	return db.Create(&model.User{
		Username:     model.AdminUsername,
		PasswordHash: hash,
		IsAdmin:      true,
	}).Error
}

// Open connects gorm to the given dialector. SQL is only logged in debug mode.
func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	var gormLogger gormlogger.Interface
	if debug {
		gormLogger = gormlogger.Default
	} else {
		gormLogger = gormlogger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
	return gorm.Open(dialector, c)
}

// InitDB opens the configured database, migrates the schema and seeds the
// admin account.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Type {
	case config.DatabaseTypePostgreSQL:
		dialector = postgres.Open(cfg.Database.GetDSN())
	case config.DatabaseTypeSQLite:
		if err := cfg.Database.EnsureDirectoryExists(); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(cfg.Database.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	db, err := Open(dialector, cfg.Debug)
	if err != nil {
		return nil, err
	}

	if cfg.Database.IsSQLite() {
		if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
			return nil, err
		}
	}

	if err := initModels(db); err != nil {
		return nil, err
	}
	if err := initAdmin(db, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	return db, nil
}

// CloseDB closes the underlying connection pool, checkpointing the SQLite WAL first.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if db.Dialector.Name() == "sqlite" {
		if err := db.Exec("PRAGMA wal_checkpoint;").Error; err != nil {
			logger.Warningf("error executing checkpoint: %v", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsNotFound reports whether err means the queried row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
