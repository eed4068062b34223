package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-billing-backend/config"
	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/billing"
	"parking-billing-backend/internal/clock"
	"parking-billing-backend/internal/ledger"
	"parking-billing-backend/internal/registry"
	"parking-billing-backend/internal/session"
	"parking-billing-backend/internal/store"
	"parking-billing-backend/internal/tariff"
	"parking-billing-backend/internal/testutil"
)

type spotEvents struct {
	mu    sync.Mutex
	spots []int
}

func (e *spotEvents) SpotFreed(facilityID int64, spot int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spots = append(e.spots, spot)
}

// TestParkingDay drives a facility through a registry sync, entries of a
// subscriber and walk-ins, live quotes and exits, and checks the ledger.
func TestParkingDay(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedCatalog(t, db, 3)
	st := store.NewGormStore(db)
	catalog := tariff.NewCatalog(st, time.Hour)
	ctx := context.Background()

	start := time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC)
	fc := clock.Fake(start)
	events := &spotEvents{}
	svc := session.NewService(st, catalog, billing.DefaultPolicy(), session.WithClock(fc), session.WithNotifier(events))

	// The walk-in is looked up (and found missing) before the registry knows it.
	_, err := catalog.Vehicle(ctx, "HRS001")
	require.NoError(t, err)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp registry.ApiResponse
		resp.Data.Page = 1
		resp.Data.Total = 2
		resp.Data.Items = []registry.ApiItem{
			{Plate: "sub-001", TariffPlanID: testutil.PeriodicPlan.ID, FacilityID: testutil.Int64(1), AssignedSpot: testutil.Int(3)},
			{Plate: "hrs-001", TariffPlanID: testutil.PerHourPlan.ID},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer upstream.Close()

	n, err := registry.NewSyncer(config.RegistryConfig{Enabled: true, URL: upstream.URL, PageSize: 10}, st, catalog).SyncOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	free, err := svc.ListAvailable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, free, "the subscriber's spot is held")

	hourly, err := svc.Open(ctx, session.OpenRequest{FacilityID: 1, Plate: "HRS001"})
	require.NoError(t, err)
	assert.Equal(t, testutil.PerHourPlan.ID, hourly.TariffPlanID)
	assert.Equal(t, 1, hourly.Spot)

	walkIn, err := svc.Open(ctx, session.OpenRequest{FacilityID: 1, Plate: "WLK777"})
	require.NoError(t, err)
	assert.Equal(t, 2, walkIn.Spot)

	_, err = svc.Open(ctx, session.OpenRequest{FacilityID: 1, Plate: "LATE99"})
	assert.True(t, apperr.IsKind(err, apperr.KindCapacity), "held spot is not offered to walk-ins")

	fc.Advance(30 * time.Minute)
	subscriber, err := svc.Open(ctx, session.OpenRequest{FacilityID: 1, Plate: "SUB001"})
	require.NoError(t, err)
	assert.Equal(t, 3, subscriber.Spot)

	// Live quotes only move up while the vehicle stays.
	var last int64
	for i := 0; i < 12; i++ {
		q, err := svc.Quote(ctx, hourly.ID, fc.Now().Add(time.Duration(i)*7*time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, q.Amount, last)
		last = q.Amount
	}

	fc.Advance(time.Hour)
	exit := fc.Now()
	q, err := svc.Quote(ctx, hourly.ID, exit)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), q.Suggested)

	_, err = svc.Close(ctx, hourly.ID, q.Suggested, exit)
	require.NoError(t, err)
	_, err = svc.Close(ctx, walkIn.ID, 0, exit)
	require.NoError(t, err)
	_, err = svc.Close(ctx, subscriber.ID, 0, exit)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{1, 2, 3}, events.spots)

	l := svc.Ledger()
	open, err := l.ListOpen(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, open)

	closed, err := l.ListClosed(ctx, 1, ledger.Filter{})
	require.NoError(t, err)
	assert.Len(t, closed, 3)

	summary, err := l.Summary(ctx, 1, ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Sessions)
	assert.Equal(t, int64(6000), summary.Revenue)
	assert.Equal(t, int64(2), summary.FreeExits)
	// The walk-in left without paying 90 minutes at 200 per minute.
	assert.Equal(t, int64(6000+18000), summary.Suggested)
}
