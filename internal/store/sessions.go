package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"parking-billing-backend/internal/model"
)

// OpenSession returns nil without error when no open session has this id.
func (s *gormStore) OpenSession(ctx context.Context, id string) (*model.SessionOpen, error) {
	open, err := read(ctx, s, func(db *gorm.DB) (*model.SessionOpen, error) {
		var o model.SessionOpen
		if err := db.Where("id = ?", id).First(&o).Error; err != nil {
			return nil, err
		}
		return &o, nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return open, err
}

// ClosedSession returns nil without error when the ledger has no such id.
func (s *gormStore) ClosedSession(ctx context.Context, id string) (*model.SessionHistory, error) {
	closed, err := read(ctx, s, func(db *gorm.DB) (*model.SessionHistory, error) {
		var h model.SessionHistory
		if err := db.Where("id = ?", id).First(&h).Error; err != nil {
			return nil, err
		}
		return &h, nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return closed, err
}
