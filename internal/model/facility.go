package model

import "time"

// Facility is a parking lot with spots numbered 1..Capacity.
type Facility struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Capacity         int       `gorm:"not null" json:"capacity"`
	FallbackTariffID *int64    `json:"fallbackTariffId,omitempty"` // Walk-in plan for unknown vehicles
	CreatedAt        time.Time `gorm:"not null" json:"-"`
	UpdatedAt        time.Time `gorm:"not null" json:"-"`
}

// ValidSpot reports whether spot lies within 1..Capacity.
func (f Facility) ValidSpot(spot int) bool {
	return spot >= 1 && spot <= f.Capacity
}
