// Package spot tracks which numbered spots of a facility are taken.
//
// Occupancy is never stored on its own: it is derived from the open
// sessions table every time, so the two can never disagree. Spots held by
// periodic subscribers count as taken for everybody but the holder.
package spot

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/model"
)

// Allocator answers availability questions and validates reservations.
// Mutating calls take the caller's transaction so that the check and the
// write that follows it commit together.
type Allocator struct {
	db *gorm.DB
}

// NewAllocator creates an allocator over db.
func NewAllocator(db *gorm.DB) *Allocator {
	return &Allocator{db: db}
}

// Occupancy is the state of one facility at a point in time.
type Occupancy struct {
	Occupied map[int]string // spot -> plate of the open session
	Held     map[int]string // spot -> plate of the subscriber holding it
}

func (o Occupancy) taken(spot int, plate string) (bool, error) {
	if occupant, ok := o.Occupied[spot]; ok && occupant != plate {
		return true, apperr.ErrAlreadyOccupied
	}
	if holder, ok := o.Held[spot]; ok && holder != plate {
		return true, apperr.ErrSpotHeld
	}
	return false, nil
}

// Load reads the occupancy of facilityID through tx.
func (a *Allocator) Load(ctx context.Context, tx *gorm.DB, facilityID int64) (Occupancy, error) {
	occ := Occupancy{Occupied: make(map[int]string), Held: make(map[int]string)}

	var open []model.SessionOpen
	if err := tx.WithContext(ctx).
		Select("spot", "plate").
		Where("facility_id = ?", facilityID).
		Find(&open).Error; err != nil {
		return occ, apperr.Transient(fmt.Errorf("failed to load open sessions of facility %d: %w", facilityID, err))
	}
	for _, o := range open {
		occ.Occupied[o.Spot] = o.Plate
	}

	type holdRow struct {
		Plate        string
		AssignedSpot int
	}
	var holds []holdRow
	if err := tx.WithContext(ctx).
		Table("vehicles").
		Select("vehicles.plate, vehicles.assigned_spot").
		Joins("JOIN tariff_plans ON tariff_plans.id = vehicles.tariff_plan_id").
		Where("vehicles.facility_id = ? AND vehicles.assigned_spot IS NOT NULL AND tariff_plans.billing_mode = ?", facilityID, model.BillingPeriodic).
		Scan(&holds).Error; err != nil {
		return occ, apperr.Transient(fmt.Errorf("failed to load spot holds of facility %d: %w", facilityID, err))
	}
	for _, h := range holds {
		occ.Held[h.AssignedSpot] = h.Plate
	}
	return occ, nil
}

// ListAvailable returns the free spots of facility in ascending order.
func (a *Allocator) ListAvailable(ctx context.Context, facility model.Facility) ([]int, error) {
	occ, err := a.Load(ctx, a.db, facility.ID)
	if err != nil {
		return nil, err
	}
	return occ.available(facility.Capacity, ""), nil
}

// available lists spots 1..capacity that plate could take.
func (o Occupancy) available(capacity int, plate string) []int {
	free := make([]int, 0, capacity)
	for spot := 1; spot <= capacity; spot++ {
		if taken, _ := o.taken(spot, plate); !taken {
			free = append(free, spot)
		}
	}
	return free
}

// Reserve checks that plate may take spot in facility. With spot == 0 it
// picks one: the spot the plate holds as a subscriber if it has one,
// otherwise the lowest free spot. The caller inserts the open session in
// the same transaction.
func (a *Allocator) Reserve(ctx context.Context, tx *gorm.DB, facility model.Facility, spot int, plate string) (int, error) {
	if spot != 0 && !facility.ValidSpot(spot) {
		return 0, fmt.Errorf("%w: spot %d not in 1..%d of facility %d", apperr.ErrSpotOutOfRange, spot, facility.Capacity, facility.ID)
	}

	occ, err := a.Load(ctx, tx, facility.ID)
	if err != nil {
		return 0, err
	}

	if spot == 0 {
		if held := occ.heldBy(plate); held != 0 && facility.ValidSpot(held) {
			if taken, _ := occ.taken(held, plate); !taken {
				return held, nil
			}
		}
		free := occ.available(facility.Capacity, plate)
		if len(free) == 0 {
			return 0, fmt.Errorf("%w: facility %d is full", apperr.ErrNoSpotAvailable, facility.ID)
		}
		return free[0], nil
	}

	if _, err := occ.taken(spot, plate); err != nil {
		return 0, fmt.Errorf("%w: spot %d of facility %d", err, spot, facility.ID)
	}
	return spot, nil
}

func (o Occupancy) heldBy(plate string) int {
	spots := make([]int, 0, 1)
	for spot, holder := range o.Held {
		if holder == plate {
			spots = append(spots, spot)
		}
	}
	if len(spots) == 0 {
		return 0
	}
	sort.Ints(spots)
	return spots[0]
}

// Release frees spot in facilityID by removing the open session attached
// to it. Releasing a free spot is a no-op.
func (a *Allocator) Release(ctx context.Context, tx *gorm.DB, facilityID int64, spot int) error {
	if err := tx.WithContext(ctx).
		Where("facility_id = ? AND spot = ?", facilityID, spot).
		Delete(&model.SessionOpen{}).Error; err != nil {
		return apperr.Transient(fmt.Errorf("failed to release spot %d of facility %d: %w", spot, facilityID, err))
	}
	return nil
}
