package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/model"
)

// Store defines the interface for all database operations outside the
// atomic boundaries owned by the session lifecycle.
type Store interface {
	DB() *gorm.DB
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	Facility(ctx context.Context, id int64) (model.Facility, error)
	Facilities(ctx context.Context) ([]model.Facility, error)
	OccupancyCounts(ctx context.Context) (map[int64]int64, error)
	TariffPlan(ctx context.Context, id int64) (*model.TariffPlan, error)
	TariffPlans(ctx context.Context) ([]model.TariffPlan, error)
	Vehicle(ctx context.Context, plate string) (*model.Vehicle, error)

	OpenSession(ctx context.Context, id string) (*model.SessionOpen, error)
	ClosedSession(ctx context.Context, id string) (*model.SessionHistory, error)

	UpsertCatalog(ctx context.Context, facilities []model.Facility, tariffs []model.TariffPlan) error
	UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db       *gorm.DB
	maxTries uint
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, maxTries: 3}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn in a single database transaction. Any error rolls the
// transaction back; storage failures are reported as transient.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn)
	if err == nil || apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	return apperr.Transient(err)
}

// read retries op on storage failures. Not-found and classified errors
// end the retry immediately.
func read[T any](ctx context.Context, s *gormStore, op func(db *gorm.DB) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	result, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op(s.db.WithContext(ctx))
		if err == nil {
			return v, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) || apperr.KindOf(err) != apperr.KindUnknown ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.maxTries))

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return result, apperr.Transient(err)
	}
	return result, err
}

// IsUniqueViolation reports whether err was caused by a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value violates unique constraint") || // postgres
		strings.Contains(msg, "SQLSTATE 23505")
}
