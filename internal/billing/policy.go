package billing

import (
	"fmt"
	"time"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/model"
)

const (
	DefaultRoundingUnit  int64 = 50
	DefaultMinimumCharge int64 = 100
)

// Policy is the charge policy a cashier must respect.
type Policy struct {
	RoundingUnit  int64
	MinimumCharge int64
}

// DefaultPolicy rounds to 50 with a minimum charge of 100.
func DefaultPolicy() Policy {
	return Policy{RoundingUnit: DefaultRoundingUnit, MinimumCharge: DefaultMinimumCharge}
}

func (p Policy) unit() int64 {
	if p.RoundingUnit <= 0 {
		return 1
	}
	return p.RoundingUnit
}

// Round rounds amount to the nearest multiple of the rounding unit, halves
// going up. Negative amounts round to zero.
func (p Policy) Round(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	unit := p.unit()
	return (amount + unit/2) / unit * unit
}

// Validate checks an operator-entered charge. Zero is always accepted.
// Invalid amounts are rejected, never corrected.
func (p Policy) Validate(amount int64) error {
	switch {
	case amount < 0:
		return fmt.Errorf("%w: %d", apperr.ErrNegativeAmount, amount)
	case amount == 0:
		return nil
	case amount < p.MinimumCharge:
		return fmt.Errorf("%w: %d < %d", apperr.ErrBelowMinimum, amount, p.MinimumCharge)
	case amount%p.unit() != 0:
		return fmt.Errorf("%w: %d (unit %d)", apperr.ErrNotRounded, amount, p.unit())
	}
	return nil
}

// Quote is the live fee for an open session at a given instant.
type Quote struct {
	BillingMode model.BillingMode `json:"billingMode"`
	EntryTime   time.Time         `json:"entryTime"`
	At          time.Time         `json:"at"`
	Elapsed     time.Duration     `json:"elapsed"`
	Breakdown   Breakdown         `json:"breakdown"`
	Amount      int64             `json:"amount"`
	Suggested   int64             `json:"suggested"`
	// BelowMinimum is set when Suggested is positive but cannot be charged
	// as is; the operator has to enter 0 or at least the minimum.
	BelowMinimum bool `json:"belowMinimum"`
}

// Quote computes the fee from entry to now and the rounded suggestion.
func (p Policy) Quote(entry, now time.Time, plan model.TariffPlan) Quote {
	elapsed := now.Sub(entry)
	if elapsed < 0 {
		elapsed = 0
	}
	amount := Compute(entry, now, plan)
	suggested := p.Round(amount)
	return Quote{
		BillingMode:  plan.BillingMode,
		EntryTime:    entry,
		At:           now,
		Elapsed:      elapsed,
		Breakdown:    Decompose(elapsed),
		Amount:       amount,
		Suggested:    suggested,
		BelowMinimum: suggested > 0 && suggested < p.MinimumCharge,
	}
}
