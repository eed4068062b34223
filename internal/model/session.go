package model

import (
	"time"
)

// SessionOpen is a vehicle currently inside a facility (hot table).
// The unique indexes back the one-session-per-plate and
// one-vehicle-per-spot invariants.
type SessionOpen struct {
	ID           string      `gorm:"primaryKey;size:36"`
	Plate        string      `gorm:"uniqueIndex;size:10;not null"`
	FacilityID   int64       `gorm:"uniqueIndex:idx_open_facility_spot;not null"`
	Spot         int         `gorm:"uniqueIndex:idx_open_facility_spot;not null"`
	TariffPlanID int64       `gorm:"not null"`
	BillingMode  BillingMode `gorm:"size:16;not null"`
	EntryTime    time.Time   `gorm:"index;not null"`
	Observations string      `gorm:"size:512;not null;default:''"`
}

// SessionHistory is an immutable closed session (cold table, the ledger).
type SessionHistory struct {
	ID              string      `gorm:"primaryKey;size:36"`
	ExitTime        time.Time   `gorm:"primaryKey;index;not null"`
	Plate           string      `gorm:"index;size:10;not null"`
	FacilityID      int64       `gorm:"index;not null"`
	Spot            int         `gorm:"not null"`
	TariffPlanID    int64       `gorm:"not null"`
	BillingMode     BillingMode `gorm:"size:16;not null"`
	EntryTime       time.Time   `gorm:"not null"`
	AmountPaid      int64       `gorm:"not null"`
	SuggestedAmount int64       `gorm:"not null"`
	Observations    string      `gorm:"size:512;not null;default:''"`
}

// Session is the read view shared by open and closed sessions. It is open
// while ExitTime is nil.
type Session struct {
	ID              string      `json:"id"`
	Plate           string      `json:"plate"`
	FacilityID      int64       `json:"facilityId"`
	Spot            int         `json:"spot"`
	TariffPlanID    int64       `json:"tariffPlanId"`
	BillingMode     BillingMode `json:"billingMode"`
	EntryTime       time.Time   `json:"entryTime"`
	ExitTime        *time.Time  `json:"exitTime,omitempty"`
	AmountPaid      *int64      `json:"amountPaid,omitempty"`
	SuggestedAmount *int64      `json:"suggestedAmount,omitempty"`
	Observations    string      `json:"observations"`
}

// Open reports whether the session has not been closed.
func (s Session) Open() bool { return s.ExitTime == nil }

// View converts the open row into a Session.
func (o SessionOpen) View() Session {
	return Session{
		ID:           o.ID,
		Plate:        o.Plate,
		FacilityID:   o.FacilityID,
		Spot:         o.Spot,
		TariffPlanID: o.TariffPlanID,
		BillingMode:  o.BillingMode,
		EntryTime:    o.EntryTime,
		Observations: o.Observations,
	}
}

// View converts the ledger row into a Session.
func (h SessionHistory) View() Session {
	exit := h.ExitTime
	paid := h.AmountPaid
	suggested := h.SuggestedAmount
	return Session{
		ID:              h.ID,
		Plate:           h.Plate,
		FacilityID:      h.FacilityID,
		Spot:            h.Spot,
		TariffPlanID:    h.TariffPlanID,
		BillingMode:     h.BillingMode,
		EntryTime:       h.EntryTime,
		ExitTime:        &exit,
		AmountPaid:      &paid,
		SuggestedAmount: &suggested,
		Observations:    h.Observations,
	}
}
