// Package session drives a parking session from entry to exit.
//
// A session is Open from entry until it is closed; the live fee is a
// read-only projection of an open session and is recomputed on every
// Quote. Closed is terminal. Opening and closing are serialized per
// facility and per plate, and each runs in one database transaction.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/billing"
	"parking-billing-backend/internal/clock"
	"parking-billing-backend/internal/ledger"
	"parking-billing-backend/internal/lock"
	"parking-billing-backend/internal/model"
	"parking-billing-backend/internal/parse"
	"parking-billing-backend/internal/spot"
	"parking-billing-backend/internal/store"
	"parking-billing-backend/internal/tariff"
)

const maxObservationsLength = 512

// Notifier is told about spots freed by a closed session.
type Notifier interface {
	SpotFreed(facilityID int64, spot int)
}

// Service is the session lifecycle.
type Service struct {
	store    store.Store
	catalog  tariff.Catalog
	spots    *spot.Allocator
	ledger   *ledger.Ledger
	policy   billing.Policy
	clock    clock.Clock
	locks    *lock.KeyedMutex
	notifier Notifier
}

// Option customizes a Service.
type Option func(*Service)

// WithClock sets the clock used for entry times.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithNotifier sets the receiver of spot-freed events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService wires a lifecycle over st.
func NewService(st store.Store, catalog tariff.Catalog, policy billing.Policy, opts ...Option) *Service {
	s := &Service{
		store:   st,
		catalog: catalog,
		spots:   spot.NewAllocator(st.DB()),
		ledger:  ledger.New(st.DB()),
		policy:  policy,
		clock:   clock.Real(),
		locks:   lock.NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the charge policy in force.
func (s *Service) Policy() billing.Policy { return s.policy }

// Clock returns the service clock.
func (s *Service) Clock() clock.Clock { return s.clock }

// Ledger returns the session history.
func (s *Service) Ledger() *ledger.Ledger { return s.ledger }

func facilityKey(id int64) string  { return fmt.Sprintf("facility:%d", id) }
func plateKey(plate string) string { return "plate:" + plate }

// OpenRequest registers a vehicle entering a facility.
type OpenRequest struct {
	FacilityID int64
	Plate      string
	// Spot is the requested spot; 0 lets the allocator choose.
	Spot int
	// TariffPlanID overrides the plan resolved from the vehicle registry.
	TariffPlanID *int64
	Observations string
}

// Open registers an entry and returns the new open session.
func (s *Service) Open(ctx context.Context, req OpenRequest) (model.Session, error) {
	plate, err := parse.NormalizePlate(req.Plate)
	if err != nil {
		return model.Session{}, err
	}
	observations := strings.TrimSpace(req.Observations)
	if len(observations) > maxObservationsLength {
		return model.Session{}, fmt.Errorf("%w: observations longer than %d bytes", apperr.ErrInvalidRequest, maxObservationsLength)
	}

	facility, err := s.store.Facility(ctx, req.FacilityID)
	if err != nil {
		return model.Session{}, err
	}
	plan, err := s.resolvePlan(ctx, facility, plate, req.TariffPlanID)
	if err != nil {
		return model.Session{}, err
	}

	unlock := s.locks.LockAll(facilityKey(facility.ID), plateKey(plate))
	defer unlock()

	var row model.SessionOpen
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var inside []model.SessionOpen
		if err := tx.Where("plate = ?", plate).Limit(1).Find(&inside).Error; err != nil {
			return apperr.Transient(err)
		}
		if len(inside) > 0 {
			return fmt.Errorf("%w: %s is in facility %d spot %d", apperr.ErrVehicleAlreadyInside, plate, inside[0].FacilityID, inside[0].Spot)
		}

		spotNumber, err := s.spots.Reserve(ctx, tx, facility, req.Spot, plate)
		if err != nil {
			return err
		}

		row = model.SessionOpen{
			ID:           uuid.NewString(),
			Plate:        plate,
			FacilityID:   facility.ID,
			Spot:         spotNumber,
			TariffPlanID: plan.ID,
			BillingMode:  plan.BillingMode,
			EntryTime:    s.clock.Now().UTC(),
			Observations: observations,
		}
		if err := tx.Create(&row).Error; err != nil {
			if store.IsUniqueViolation(err) {
				// Another process got there first; the unique indexes are the
				// last line behind the in-process locks.
				if strings.Contains(err.Error(), "plate") {
					return fmt.Errorf("%w: %s", apperr.ErrVehicleAlreadyInside, plate)
				}
				return fmt.Errorf("%w: spot %d of facility %d", apperr.ErrAlreadyOccupied, spotNumber, facility.ID)
			}
			return apperr.Transient(err)
		}
		return nil
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("open session for %s: %w", plate, err)
	}

	log.Printf("Session %s opened: %s in facility %d spot %d (plan %d, %s)", row.ID, plate, facility.ID, row.Spot, plan.ID, plan.BillingMode)
	return row.View(), nil
}

// resolvePlan picks the tariff for an entry: the operator override, then
// the registered vehicle's plan, then the facility's walk-in fallback.
func (s *Service) resolvePlan(ctx context.Context, facility model.Facility, plate string, override *int64) (model.TariffPlan, error) {
	if override != nil {
		return s.catalog.Plan(ctx, *override)
	}

	vehicle, err := s.catalog.Vehicle(ctx, plate)
	if err != nil {
		return model.TariffPlan{}, err
	}
	if vehicle != nil {
		return s.catalog.Plan(ctx, vehicle.TariffPlanID)
	}

	if facility.FallbackTariffID == nil {
		return model.TariffPlan{}, fmt.Errorf("%w: %s is not registered and facility %d has no walk-in tariff", apperr.ErrTariffNotConfigured, plate, facility.ID)
	}
	return s.catalog.Plan(ctx, *facility.FallbackTariffID)
}

// openSession loads an open session or explains why there is none.
func (s *Service) openSession(ctx context.Context, id string) (*model.SessionOpen, error) {
	open, err := s.store.OpenSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return open, nil
	}

	closed, err := s.store.ClosedSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if closed != nil {
		return nil, fmt.Errorf("%w: session %s closed at %s", apperr.ErrSessionNotOpen, id, closed.ExitTime.Format(time.RFC3339))
	}
	return nil, fmt.Errorf("%w: %s", apperr.ErrSessionNotFound, id)
}

// planFor returns the plan a session was opened with. Periodic sessions
// never charge, so their plan is not looked up.
func (s *Service) planFor(ctx context.Context, mode model.BillingMode, planID int64) (model.TariffPlan, error) {
	if mode == model.BillingPeriodic {
		return model.TariffPlan{ID: planID, BillingMode: model.BillingPeriodic}, nil
	}
	return s.catalog.Plan(ctx, planID)
}

// LiveQuote prices an open session already in hand at now.
func (s *Service) LiveQuote(ctx context.Context, open model.Session, now time.Time) (billing.Quote, error) {
	if !open.Open() {
		return billing.Quote{}, fmt.Errorf("%w: %s", apperr.ErrSessionNotOpen, open.ID)
	}
	plan, err := s.planFor(ctx, open.BillingMode, open.TariffPlanID)
	if err != nil {
		return billing.Quote{}, err
	}
	return s.policy.Quote(open.EntryTime, now.UTC(), plan), nil
}

// Quote returns the live fee of an open session at now. It changes nothing.
func (s *Service) Quote(ctx context.Context, id string, now time.Time) (billing.Quote, error) {
	open, err := s.openSession(ctx, id)
	if err != nil {
		return billing.Quote{}, err
	}
	plan, err := s.planFor(ctx, open.BillingMode, open.TariffPlanID)
	if err != nil {
		return billing.Quote{}, err
	}
	return s.policy.Quote(open.EntryTime, now.UTC(), plan), nil
}

// Close registers the exit of session id at now with the amount the
// operator charged, releases its spot and appends it to the ledger.
// Periodic plans always close with amount 0.
func (s *Service) Close(ctx context.Context, id string, amountCharged int64, now time.Time) (model.Session, error) {
	now = now.UTC()

	open, err := s.openSession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if now.Before(open.EntryTime) {
		return model.Session{}, fmt.Errorf("%w: exit %s, entry %s", apperr.ErrExitBeforeEntry, now.Format(time.RFC3339), open.EntryTime.Format(time.RFC3339))
	}

	plan, err := s.planFor(ctx, open.BillingMode, open.TariffPlanID)
	if err != nil {
		return model.Session{}, err
	}
	quote := s.policy.Quote(open.EntryTime, now, plan)

	if plan.Periodic() {
		amountCharged = 0
	} else if err := s.policy.Validate(amountCharged); err != nil {
		return model.Session{}, err
	}

	unlock := s.locks.LockAll(facilityKey(open.FacilityID), plateKey(open.Plate))
	defer unlock()

	var record model.SessionHistory
	err = s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var current []model.SessionOpen
		if err := tx.Where("id = ?", id).Limit(1).Find(&current).Error; err != nil {
			return apperr.Transient(err)
		}
		if len(current) == 0 {
			return fmt.Errorf("%w: session %s was closed concurrently", apperr.ErrSessionNotOpen, id)
		}
		o := current[0]

		record = model.SessionHistory{
			ID:              o.ID,
			ExitTime:        now,
			Plate:           o.Plate,
			FacilityID:      o.FacilityID,
			Spot:            o.Spot,
			TariffPlanID:    o.TariffPlanID,
			BillingMode:     o.BillingMode,
			EntryTime:       o.EntryTime,
			AmountPaid:      amountCharged,
			SuggestedAmount: quote.Suggested,
			Observations:    o.Observations,
		}
		if err := s.ledger.Append(ctx, tx, &record); err != nil {
			return err
		}
		return s.spots.Release(ctx, tx, o.FacilityID, o.Spot)
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("close session %s: %w", id, err)
	}

	log.Printf("Session %s closed: %s left facility %d spot %d, charged %d (suggested %d)",
		record.ID, record.Plate, record.FacilityID, record.Spot, record.AmountPaid, record.SuggestedAmount)
	if s.notifier != nil {
		s.notifier.SpotFreed(record.FacilityID, record.Spot)
	}
	return record.View(), nil
}

// Get returns a session, open or closed.
func (s *Service) Get(ctx context.Context, id string) (model.Session, error) {
	open, err := s.store.OpenSession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if open != nil {
		return open.View(), nil
	}
	closed, err := s.store.ClosedSession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if closed != nil {
		return closed.View(), nil
	}
	return model.Session{}, fmt.Errorf("%w: %s", apperr.ErrSessionNotFound, id)
}

// ListAvailable returns the free spots of a facility, lowest first.
func (s *Service) ListAvailable(ctx context.Context, facilityID int64) ([]int, error) {
	facility, err := s.store.Facility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	return s.spots.ListAvailable(ctx, facility)
}
