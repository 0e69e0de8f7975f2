package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cinehub/internal/models"
)

// GormStore keeps each collection as one row of collection_documents. Open
// the *gorm.DB with TranslateError enabled so duplicate inserts surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, name string) (Snapshot, error) {
	var doc models.CollectionDocument
	err := s.db.WithContext(ctx).First(&doc, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{Data: emptyArray}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", name, err)
	}
	return Snapshot{Data: normalize([]byte(doc.Data)), Version: doc.Version}, nil
}

func (s *GormStore) Save(ctx context.Context, name string, data []byte, expected uint64) (uint64, error) {
	db := s.db.WithContext(ctx)
	next := expected + 1

	if expected == 0 {
		doc := models.CollectionDocument{Name: name, Version: next, Data: string(data)}
		err := db.Create(&doc).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrConflict
		}
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", name, err)
		}
		return next, nil
	}

	res := db.Model(&models.CollectionDocument{}).
		Where("name = ? AND version = ?", name, expected).
		Updates(map[string]any{
			"data":       string(data),
			"version":    next,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("update %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrConflict
	}
	return next, nil
}
