// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parking-billing-backend/internal/db"
	"parking-billing-backend/internal/model"
)

var dbCounter atomic.Int64

// NewDB opens a private in-memory SQLite database with every table
// migrated. A single connection serializes transactions the way row locks
// would on a server database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:parking_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// Seed inserts the given rows in order.
func Seed(t *testing.T, gormDB *gorm.DB, rows ...any) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, gormDB.Create(row).Error)
	}
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Fixture plans used across tests.
var (
	PerMinutePlan = model.TariffPlan{ID: 1, Name: "Minuto", BillingMode: model.BillingPerMinute, RatePerMinute: 200}
	PerHourPlan   = model.TariffPlan{ID: 2, Name: "Hora", BillingMode: model.BillingPerHour, RatePerHour: 3000, RatePerMinute: 100}
	PerDayPlan    = model.TariffPlan{ID: 3, Name: "Dia", BillingMode: model.BillingPerDay, RatePerDay: 20000, RatePerHour: 3000, RatePerMinute: 100}
	PeriodicPlan  = model.TariffPlan{ID: 4, Name: "Mensual", BillingMode: model.BillingPeriodic, PeriodDays: 30}
)

// SeedCatalog inserts the fixture plans and one facility per capacity,
// numbered from 1, each with the per-minute plan as walk-in fallback.
func SeedCatalog(t *testing.T, gormDB *gorm.DB, capacities ...int) {
	t.Helper()
	for _, plan := range []model.TariffPlan{PerMinutePlan, PerHourPlan, PerDayPlan, PeriodicPlan} {
		p := plan
		Seed(t, gormDB, &p)
	}
	for i, capacity := range capacities {
		Seed(t, gormDB, &model.Facility{
			ID:               int64(i + 1),
			Name:             fmt.Sprintf("Facility %d", i+1),
			Capacity:         capacity,
			FallbackTariffID: Int64(PerMinutePlan.ID),
		})
	}
}
