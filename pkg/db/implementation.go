package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type database struct {
	db *gorm.DB
}

// New creates a new sql backed key-value store
func New(ctx context.Context, dialect string, dsn string, config *gorm.Config) (Database, error) {
	if config == nil {
		config = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	}

	var db *gorm.DB
	var err error

	switch dialect {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(dsn), config)
	case "mysql":
		db, err = gorm.Open(mysql.Open(dsn), config)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err != nil {
		return nil, err
	}

	db = db.WithContext(ctx)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}

	return &database{
		db: db,
	}, nil
}

func (d *database) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	sql := d.db.WithContext(ctx).Where("`key` = ?", key).Take(&entry)
	if sql.Error != nil {
		if errors.Is(sql.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, sql.Error
	}
	return entry.Value, nil
}

func (d *database) Put(ctx context.Context, key string, value []byte) error {
	entry := Entry{
		Key:   key,
		Value: value,
	}
	sql := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry)
	return sql.Error
}

func (d *database) Delete(ctx context.Context, key string) error {
	sql := d.db.WithContext(ctx).Where("`key` = ?", key).Delete(&Entry{})
	if sql.Error != nil {
		return sql.Error
	}
	if sql.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *database) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	sql := d.db.WithContext(ctx).Model(&Entry{}).
		Where("`key` LIKE ? ESCAPE '!'", escapeLike(prefix)+"%").
		Order("`key`").
		Pluck("key", &keys)
	return keys, sql.Error
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
