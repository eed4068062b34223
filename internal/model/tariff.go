package model

import "time"

// BillingMode selects how elapsed time turns into an amount.
type BillingMode string

const (
	BillingPerMinute BillingMode = "per_minute"
	BillingPerHour   BillingMode = "per_hour"
	BillingPerDay    BillingMode = "per_day"
	BillingPerUse    BillingMode = "per_use"
	BillingPeriodic  BillingMode = "periodic"
)

// Valid reports whether m is a known billing mode.
func (m BillingMode) Valid() bool {
	switch m {
	case BillingPerMinute, BillingPerHour, BillingPerDay, BillingPerUse, BillingPeriodic:
		return true
	}
	return false
}

// TariffPlan is a rate structure applied to a vehicle. Rates are in whole
// currency units.
type TariffPlan struct {
	ID            int64       `gorm:"primaryKey" json:"id"`
	Name          string      `gorm:"size:128;not null" json:"name"`
	BillingMode   BillingMode `gorm:"size:16;not null" json:"billingMode"`
	RatePerMinute int64       `gorm:"not null;default:0" json:"ratePerMinute"`
	RatePerHour   int64       `gorm:"not null;default:0" json:"ratePerHour"`
	RatePerDay    int64       `gorm:"not null;default:0" json:"ratePerDay"`
	PeriodDays    int         `gorm:"not null;default:0" json:"periodDays,omitempty"` // Subscription length, periodic plans only
	CreatedAt     time.Time   `gorm:"not null" json:"-"`
	UpdatedAt     time.Time   `gorm:"not null" json:"-"`
}

// Periodic reports whether the plan is a flat subscription.
func (p TariffPlan) Periodic() bool {
	return p.BillingMode == BillingPeriodic
}
