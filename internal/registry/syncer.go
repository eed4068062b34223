// Package registry mirrors the external vehicle registry (plate to tariff
// plan and subscriber spot) into the local vehicles table.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"parking-billing-backend/config"
	"parking-billing-backend/internal/model"
	"parking-billing-backend/internal/parse"
)

// Store is the persistence the syncer writes to.
type Store interface {
	UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) error
}

// Flusher drops cached lookups once fresh data is stored.
type Flusher interface {
	Flush()
}

// Syncer periodically pulls the registry.
type Syncer struct {
	cfg     config.RegistryConfig
	store   Store
	catalog Flusher
	client  *http.Client
}

// NewSyncer creates a syncer. catalog may be nil.
func NewSyncer(cfg config.RegistryConfig, store Store, catalog Flusher) *Syncer {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Registry sync will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	return &Syncer{
		cfg:     cfg,
		store:   store,
		catalog: catalog,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// Run syncs once, then every configured interval until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Registry sync is disabled. Not starting.")
		return
	}
	log.Println("Starting registry sync...")

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Duration(s.cfg.IntervalSeconds) * time.Second
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s.logSync(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Registry sync shutting down.")
			return
		case <-timer.C:
			s.logSync(ctx)
			timer.Reset(interval)
		}
	}
}

func (s *Syncer) logSync(ctx context.Context) {
	n, err := s.SyncOnce(ctx)
	if err != nil {
		log.Printf("Registry sync failed: %v", err)
		return
	}
	log.Printf("Registry sync finished: %d vehicles stored.", n)
}

// SyncOnce fetches every page and stores the vehicles. Records with an
// invalid plate are skipped. A page failure after some pages were fetched
// still stores what arrived; a failure before any page aborts.
func (s *Syncer) SyncOnce(ctx context.Context) (int, error) {
	var items []ApiItem
	total := 1
	var fetchErr error
	for page := 1; (page-1)*s.cfg.PageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			log.Printf("Error fetching registry page %d: %v", page, err)
			fetchErr = err
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		items = append(items, resp.Data.Items...)
	}

	if fetchErr != nil && len(items) == 0 {
		return 0, fmt.Errorf("no registry data retrieved: %w", fetchErr)
	}

	vehicles := toVehicles(items)
	if err := s.store.UpsertVehicles(ctx, vehicles); err != nil {
		return 0, fmt.Errorf("failed to store vehicles: %w", err)
	}
	if s.catalog != nil {
		s.catalog.Flush()
	}
	return len(vehicles), nil
}

// toVehicles normalizes plates and keeps the last record per plate.
func toVehicles(items []ApiItem) []model.Vehicle {
	index := make(map[string]int, len(items))
	vehicles := make([]model.Vehicle, 0, len(items))
	for _, item := range items {
		plate, err := parse.NormalizePlate(item.Plate)
		if err != nil {
			log.Printf("Warning: skipping registry record %q: %v", item.Plate, err)
			continue
		}
		v := model.Vehicle{
			Plate:        plate,
			TariffPlanID: item.TariffPlanID,
			FacilityID:   item.FacilityID,
			AssignedSpot: item.AssignedSpot,
			Owner:        item.Owner,
		}
		if i, seen := index[plate]; seen {
			vehicles[i] = v
			continue
		}
		index[plate] = len(vehicles)
		vehicles = append(vehicles, v)
	}
	return vehicles
}

func (s *Syncer) fetchPage(ctx context.Context, page int) (*ApiResponse, error) {
	jsonBody, err := json.Marshal(map[string]int{"page": page, "pageSize": s.cfg.PageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp ApiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if apiResp.Code != 0 {
		return nil, fmt.Errorf("registry returned non-zero application code: %d", apiResp.Code)
	}
	return &apiResp, nil
}
