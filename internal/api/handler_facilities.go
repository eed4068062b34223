package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"parking-billing-backend/internal/billing"
	"parking-billing-backend/internal/ledger"
	"parking-billing-backend/internal/model"
	"parking-billing-backend/internal/parse"
)

// FacilityResponse represents the API response for a single facility.
type FacilityResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Capacity         int    `json:"capacity"`
	Occupied         int64  `json:"occupied"`
	Available        int    `json:"available"`
	FallbackTariffID *int64 `json:"fallbackTariffId"`
}

// GetFacilities handles the GET /api/facilities request.
func (h *Handler) GetFacilities(c *gin.Context) {
	ctx := c.Request.Context()
	facilities, err := h.store.Facilities(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	counts, err := h.store.OccupancyCounts(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]FacilityResponse, 0, len(facilities))
	for _, f := range facilities {
		free, err := h.sessions.ListAvailable(ctx, f.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		responses = append(responses, FacilityResponse{
			ID:               f.ID,
			Name:             f.Name,
			Capacity:         f.Capacity,
			Occupied:         counts[f.ID],
			Available:        len(free),
			FallbackTariffID: f.FallbackTariffID,
		})
	}
	c.JSON(http.StatusOK, responses)
}

// GetAvailableSpots handles the GET /api/facilities/{facility_id}/spots request.
func (h *Handler) GetAvailableSpots(c *gin.Context) {
	facilityID, ok := facilityIDParam(c)
	if !ok {
		return
	}
	free, err := h.sessions.ListAvailable(c.Request.Context(), facilityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facilityId": facilityID, "available": free})
}

type openSessionResponse struct {
	model.Session
	Quote *billing.Quote `json:"quote,omitempty"`
}

// GetOpenSessions handles the GET /api/facilities/{facility_id}/sessions/open
// request. Every session carries its live fee.
func (h *Handler) GetOpenSessions(c *gin.Context) {
	facilityID, ok := facilityIDParam(c)
	if !ok {
		return
	}
	if _, err := h.store.Facility(c.Request.Context(), facilityID); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	sessions, err := h.ledger.ListOpen(ctx, facilityID)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.sessions.Clock().Now()
	response := make([]openSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		q, err := h.sessions.LiveQuote(ctx, s, now)
		if err != nil {
			respondError(c, err)
			return
		}
		response = append(response, openSessionResponse{Session: s, Quote: &q})
	}
	c.JSON(http.StatusOK, response)
}

// ledgerFilter reads plate, from, to, limit and offset from the query.
func ledgerFilter(c *gin.Context) (ledger.Filter, bool) {
	var f ledger.Filter
	if raw := c.Query("plate"); raw != "" {
		plate, err := parse.NormalizePlate(raw)
		if err != nil {
			badRequest(c, err.Error())
			return f, false
		}
		f.Plate = plate
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "Invalid '"+p.name+"' timestamp format. Use RFC3339.")
			return f, false
		}
		*p.dst = t
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "Invalid '"+p.name+"' value")
			return f, false
		}
		*p.dst = n
	}
	return f, true
}

// GetClosedSessions handles the GET /api/facilities/{facility_id}/sessions/closed request.
func (h *Handler) GetClosedSessions(c *gin.Context) {
	facilityID, ok := facilityIDParam(c)
	if !ok {
		return
	}
	filter, ok := ledgerFilter(c)
	if !ok {
		return
	}
	sessions, err := h.ledger.ListClosed(c.Request.Context(), facilityID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSummary handles the GET /api/facilities/{facility_id}/summary request.
func (h *Handler) GetSummary(c *gin.Context) {
	facilityID, ok := facilityIDParam(c)
	if !ok {
		return
	}
	filter, ok := ledgerFilter(c)
	if !ok {
		return
	}
	summary, err := h.ledger.Summary(c.Request.Context(), facilityID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
