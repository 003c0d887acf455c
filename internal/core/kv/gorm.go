package kv

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one row of the kv_entries table.
type Entry struct {
	Key   string `gorm:"primaryKey;size:191"`
	Value []byte `gorm:"not null"`
}

func (Entry) TableName() string { return "kv_entries" }

// key 是 mysql 保留字，交给方言去加引号
func keyEq(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

type Gorm struct{ db *gorm.DB }

func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

// Migrate creates the kv_entries table if needed.
func (g *Gorm) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return oops.In("kv").Code("KV_MIGRATE_FAILED").Wrap(err)
	}
	return nil
}

func (g *Gorm) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := g.db.WithContext(ctx).Where(keyEq(key)).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.In("kv").Code("KV_GET_FAILED").With("key", key).Wrap(err)
	}
	return e.Value, nil
}

func (g *Gorm) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Entry{Key: key, Value: value}).Error
	if err != nil {
		return oops.In("kv").Code("KV_SET_FAILED").With("key", key).Wrap(err)
	}
	return nil
}

func (g *Gorm) Delete(ctx context.Context, key string) error {
	if err := g.db.WithContext(ctx).Where(keyEq(key)).Delete(&Entry{}).Error; err != nil {
		return oops.In("kv").Code("KV_DELETE_FAILED").With("key", key).Wrap(err)
	}
	return nil
}
