package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parking-billing-backend/internal/session"
)

type openSessionRequest struct {
	FacilityID   int64  `json:"facility_id" binding:"required"`
	Plate        string `json:"plate" binding:"required"`
	Spot         int    `json:"spot"`
	TariffPlanID *int64 `json:"tariff_plan_id"`
	Observations string `json:"observations"`
}

// PostSession handles the POST /api/sessions request (vehicle entry).
func (h *Handler) PostSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Spot < 0 {
		badRequest(c, "spot must not be negative")
		return
	}

	s, err := h.sessions.Open(c.Request.Context(), session.OpenRequest{
		FacilityID:   req.FacilityID,
		Plate:        req.Plate,
		Spot:         req.Spot,
		TariffPlanID: req.TariffPlanID,
		Observations: req.Observations,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidate()
	c.JSON(http.StatusCreated, s)
}

// GetSession handles the GET /api/sessions/{session_id} request.
func (h *Handler) GetSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// instant reads an optional RFC3339 query or body time, defaulting to now.
func (h *Handler) instant(raw string) (time.Time, error) {
	if raw == "" {
		return h.sessions.Clock().Now(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// GetQuote handles the GET /api/sessions/{session_id}/quote request. The
// optional "at" query parameter prices the session at another instant.
func (h *Handler) GetQuote(c *gin.Context) {
	at, err := h.instant(c.Query("at"))
	if err != nil {
		badRequest(c, "Invalid 'at' timestamp format. Use RFC3339.")
		return
	}
	q, err := h.sessions.Quote(c.Request.Context(), c.Param("session_id"), at)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type closeSessionRequest struct {
	AmountCharged *int64 `json:"amount_charged" binding:"required"`
	ExitTime      string `json:"exit_time"`
}

// PostClose handles the POST /api/sessions/{session_id}/close request
// (vehicle exit).
func (h *Handler) PostClose(c *gin.Context) {
	var req closeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	exit, err := h.instant(req.ExitTime)
	if err != nil {
		badRequest(c, "Invalid 'exit_time' timestamp format. Use RFC3339.")
		return
	}

	s, err := h.sessions.Close(c.Request.Context(), c.Param("session_id"), *req.AmountCharged, exit)
	if err != nil {
		respondError(c, err)
		return
	}
	h.invalidate()
	c.JSON(http.StatusOK, s)
}
