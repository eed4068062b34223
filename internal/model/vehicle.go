package model

import "time"

// Vehicle is a registered plate and its tariff plan. Subscribers on a
// periodic plan may hold AssignedSpot in FacilityID across sessions.
type Vehicle struct {
	Plate        string    `gorm:"primaryKey;size:10" json:"plate"`
	TariffPlanID int64     `gorm:"index;not null" json:"tariffPlanId"`
	FacilityID   *int64    `gorm:"index" json:"facilityId,omitempty"`
	AssignedSpot *int      `json:"assignedSpot,omitempty"`
	Owner        string    `gorm:"size:128" json:"owner,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"-"`
	UpdatedAt    time.Time `gorm:"not null" json:"-"`
}
