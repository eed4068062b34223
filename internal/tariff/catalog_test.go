package tariff

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/model"
	"parking-billing-backend/internal/store"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

var planColumns = []string{"id", "name", "billing_mode", "rate_per_minute", "rate_per_hour", "rate_per_day", "period_days"}

func TestCachedCatalog_Plan(t *testing.T) {
	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedKind     apperr.Kind
		expectedPlan     model.TariffPlan
	}{
		{
			name: "Plan found and cached",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tariff_plans" WHERE "tariff_plans"."id" = $1`)).
					WithArgs(2, 1).
					WillReturnRows(sqlmock.NewRows(planColumns).AddRow(2, "Hora", "per_hour", 100, 3000, 0, 0))
			},
			expectedPlan: model.TariffPlan{ID: 2, Name: "Hora", BillingMode: model.BillingPerHour, RatePerMinute: 100, RatePerHour: 3000},
		},
		{
			name: "Plan missing is a configuration error",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tariff_plans"`)).
					WithArgs(2, 1).
					WillReturnRows(sqlmock.NewRows(planColumns))
			},
			expectedKind: apperr.KindConfiguration,
		},
		{
			name: "Unbillable plan is a configuration error",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tariff_plans"`)).
					WithArgs(2, 1).
					WillReturnRows(sqlmock.NewRows(planColumns).AddRow(2, "Broken", "per_hour", 100, 0, 0, 0))
			},
			expectedKind: apperr.KindConfiguration,
		},
		{
			name: "Storage failure is retried then reported as transient",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				for i := 0; i < 3; i++ {
					mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "tariff_plans"`)).
						WithArgs(2, 1).
						WillReturnError(errors.New("connection reset by peer"))
				}
			},
			expectedKind: apperr.KindTransientStorage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			catalog := NewCatalog(store.NewGormStore(gormDB), time.Minute)

			tc.mockExpectations(mock)

			plan, err := catalog.Plan(context.Background(), 2)
			if tc.expectedKind != "" {
				assert.Error(t, err)
				assert.Equal(t, tc.expectedKind, apperr.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedPlan.BillingMode, plan.BillingMode)
				assert.Equal(t, tc.expectedPlan.RatePerHour, plan.RatePerHour)
				assert.Equal(t, tc.expectedPlan.RatePerMinute, plan.RatePerMinute)

				// Served from cache: no further query is expected.
				again, err := catalog.Plan(context.Background(), 2)
				require.NoError(t, err)
				assert.Equal(t, plan, again)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// fakeSource is an in-memory Source that counts lookups.
type fakeSource struct {
	plans    map[int64]model.TariffPlan
	vehicles map[string]model.Vehicle
	lookups  int
}

func (f *fakeSource) TariffPlan(_ context.Context, id int64) (*model.TariffPlan, error) {
	f.lookups++
	if p, ok := f.plans[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakeSource) Vehicle(_ context.Context, plate string) (*model.Vehicle, error) {
	f.lookups++
	if v, ok := f.vehicles[plate]; ok {
		return &v, nil
	}
	return nil, nil
}

func TestCachedCatalog_ForVehicle(t *testing.T) {
	src := &fakeSource{
		plans: map[int64]model.TariffPlan{
			4: {ID: 4, BillingMode: model.BillingPeriodic},
		},
		vehicles: map[string]model.Vehicle{
			"SUB001": {Plate: "SUB001", TariffPlanID: 4},
			"ORPHAN": {Plate: "ORPHAN", TariffPlanID: 99},
		},
	}
	catalog := NewCatalog(src, time.Minute)
	ctx := context.Background()

	plan, err := catalog.ForVehicle(ctx, "SUB001")
	require.NoError(t, err)
	assert.True(t, plan.Periodic())

	_, err = catalog.ForVehicle(ctx, "SUB001")
	require.NoError(t, err)
	assert.Equal(t, 2, src.lookups, "second resolution should be served from cache")

	_, err = catalog.ForVehicle(ctx, "UNKNOWN")
	assert.ErrorIs(t, err, apperr.ErrTariffNotConfigured)

	_, err = catalog.ForVehicle(ctx, "ORPHAN")
	assert.ErrorIs(t, err, apperr.ErrTariffNotConfigured)

	vehicle, err := catalog.Vehicle(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, vehicle)

	catalog.Flush()
	before := src.lookups
	_, err = catalog.ForVehicle(ctx, "SUB001")
	require.NoError(t, err)
	assert.Equal(t, before+2, src.lookups, "flush should force a reload")
}
