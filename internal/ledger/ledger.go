// Package ledger is the history of parking sessions: closed sessions are
// appended once and never changed, open sessions are read for the
// "currently inside" views.
package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/model"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Filter narrows listClosed and Summary. Zero values mean "no filter".
type Filter struct {
	Plate  string
	From   time.Time // exit time, inclusive
	To     time.Time // exit time, exclusive
	Limit  int
	Offset int
}

// Summary aggregates closed sessions.
type Summary struct {
	FacilityID int64 `json:"facilityId"`
	Sessions   int64 `json:"sessions"`
	Revenue    int64 `json:"revenue"`
	Suggested  int64 `json:"suggested"`
	FreeExits  int64 `json:"freeExits"`
}

// Ledger reads and appends session history.
type Ledger struct {
	db *gorm.DB
}

// New creates a ledger over db.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Append records a closed session through the caller's transaction.
func (l *Ledger) Append(ctx context.Context, tx *gorm.DB, record *model.SessionHistory) error {
	if err := tx.WithContext(ctx).Create(record).Error; err != nil {
		return apperr.Transient(fmt.Errorf("failed to append session %s to ledger: %w", record.ID, err))
	}
	return nil
}

// ListOpen returns the vehicles currently inside facilityID, earliest
// entry first.
func (l *Ledger) ListOpen(ctx context.Context, facilityID int64) ([]model.Session, error) {
	var rows []model.SessionOpen
	if err := l.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Order("entry_time ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Transient(fmt.Errorf("failed to list open sessions of facility %d: %w", facilityID, err))
	}

	sessions := make([]model.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.View())
	}
	return sessions, nil
}

// ListClosed returns closed sessions of facilityID, latest exit first.
func (l *Ledger) ListClosed(ctx context.Context, facilityID int64, f Filter) ([]model.Session, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var rows []model.SessionHistory
	if err := l.filtered(ctx, facilityID, f).
		Order("exit_time DESC").Order("id ASC").
		Limit(limit).Offset(f.Offset).
		Find(&rows).Error; err != nil {
		return nil, apperr.Transient(fmt.Errorf("failed to list closed sessions of facility %d: %w", facilityID, err))
	}

	sessions := make([]model.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.View())
	}
	return sessions, nil
}

// Summary totals the closed sessions matching f. Limit and Offset are ignored.
func (l *Ledger) Summary(ctx context.Context, facilityID int64, f Filter) (Summary, error) {
	var agg struct {
		Sessions  int64
		Revenue   int64
		Suggested int64
		FreeExits int64
	}
	if err := l.filtered(ctx, facilityID, f).
		Select("COUNT(*) AS sessions, " +
			"COALESCE(SUM(amount_paid), 0) AS revenue, " +
			"COALESCE(SUM(suggested_amount), 0) AS suggested, " +
			"COALESCE(SUM(CASE WHEN amount_paid = 0 THEN 1 ELSE 0 END), 0) AS free_exits").
		Scan(&agg).Error; err != nil {
		return Summary{}, apperr.Transient(fmt.Errorf("failed to summarize facility %d: %w", facilityID, err))
	}
	return Summary{
		FacilityID: facilityID,
		Sessions:   agg.Sessions,
		Revenue:    agg.Revenue,
		Suggested:  agg.Suggested,
		FreeExits:  agg.FreeExits,
	}, nil
}

func (l *Ledger) filtered(ctx context.Context, facilityID int64, f Filter) *gorm.DB {
	q := l.db.WithContext(ctx).Model(&model.SessionHistory{}).Where("facility_id = ?", facilityID)
	if f.Plate != "" {
		q = q.Where("plate = ?", f.Plate)
	}
	if !f.From.IsZero() {
		q = q.Where("exit_time >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("exit_time < ?", f.To.UTC())
	}
	return q
}
