package db

import (
	"time"
)

type Entry struct {
	Key       string `gorm:"primaryKey;size:512"`
	Value     []byte `gorm:"type:longblob"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}
