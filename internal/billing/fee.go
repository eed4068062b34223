// Package billing turns dwell time into an amount owed.
//
// Everything here is pure: the caller supplies both the entry time and
// "now", so the same inputs always give the same amount. A live countdown
// is simply repeated calls to Quote with a moving now.
package billing

import (
	"fmt"
	"time"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/model"
)

// Breakdown is elapsed time split into whole days, hours of the remaining
// day and minutes of the remaining hour. Fractions of a minute are dropped.
type Breakdown struct {
	Days         int64 `json:"days"`
	Hours        int64 `json:"hours"`
	Minutes      int64 `json:"minutes"`
	TotalHours   int64 `json:"totalHours"`
	TotalMinutes int64 `json:"totalMinutes"`
}

// Decompose splits elapsed. Negative durations count as zero.
func Decompose(elapsed time.Duration) Breakdown {
	if elapsed < 0 {
		elapsed = 0
	}
	const day = 24 * time.Hour
	return Breakdown{
		Days:         int64(elapsed / day),
		Hours:        int64((elapsed % day) / time.Hour),
		Minutes:      int64((elapsed % time.Hour) / time.Minute),
		TotalHours:   int64(elapsed / time.Hour),
		TotalMinutes: int64(elapsed / time.Minute),
	}
}

// capAt limits the charge for a partial unit to the price of one full
// unit, so that a longer stay never costs less than a shorter one.
func capAt(partial, fullUnit int64) int64 {
	if fullUnit > 0 && partial > fullUnit {
		return fullUnit
	}
	return partial
}

// Compute returns the unrounded amount owed for a stay from entry to now
// under plan. Periodic plans always cost zero.
func Compute(entry, now time.Time, plan model.TariffPlan) int64 {
	b := Decompose(now.Sub(entry))

	switch plan.BillingMode {
	case model.BillingPerMinute:
		return b.TotalMinutes * plan.RatePerMinute
	case model.BillingPerHour:
		return b.TotalHours*plan.RatePerHour + capAt(b.Minutes*plan.RatePerMinute, plan.RatePerHour)
	case model.BillingPerDay, model.BillingPerUse:
		withinDay := b.Hours*plan.RatePerHour + capAt(b.Minutes*plan.RatePerMinute, plan.RatePerHour)
		return b.Days*plan.RatePerDay + capAt(withinDay, plan.RatePerDay)
	default:
		return 0
	}
}

// ValidatePlan rejects plans the calculator cannot bill.
func ValidatePlan(plan model.TariffPlan) error {
	if !plan.BillingMode.Valid() {
		return fmt.Errorf("%w: plan %d has unknown billing mode %q", apperr.ErrTariffNotConfigured, plan.ID, plan.BillingMode)
	}
	if plan.RatePerMinute < 0 || plan.RatePerHour < 0 || plan.RatePerDay < 0 {
		return fmt.Errorf("%w: plan %d has a negative rate", apperr.ErrTariffNotConfigured, plan.ID)
	}

	var unitRate int64
	switch plan.BillingMode {
	case model.BillingPerMinute:
		unitRate = plan.RatePerMinute
	case model.BillingPerHour:
		unitRate = plan.RatePerHour
	case model.BillingPerDay, model.BillingPerUse:
		unitRate = plan.RatePerDay
	default:
		return nil
	}
	if unitRate == 0 {
		return fmt.Errorf("%w: plan %d (%s) has no rate for its billing unit", apperr.ErrTariffNotConfigured, plan.ID, plan.BillingMode)
	}
	return nil
}
