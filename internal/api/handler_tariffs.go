package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TariffResponse represents the API response for a single tariff plan.
type TariffResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	BillingMode   string `json:"billingMode"`
	RatePerMinute int64  `json:"ratePerMinute"`
	RatePerHour   int64  `json:"ratePerHour"`
	RatePerDay    int64  `json:"ratePerDay"`
	PeriodDays    int    `json:"periodDays,omitempty"`
}

// GetTariffs handles the GET /api/tariffs request.
func (h *Handler) GetTariffs(c *gin.Context) {
	plans, err := h.store.TariffPlans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TariffResponse, 0, len(plans))
	for _, p := range plans {
		responses = append(responses, TariffResponse{
			ID:            p.ID,
			Name:          p.Name,
			BillingMode:   string(p.BillingMode),
			RatePerMinute: p.RatePerMinute,
			RatePerHour:   p.RatePerHour,
			RatePerDay:    p.RatePerDay,
			PeriodDays:    p.PeriodDays,
		})
	}
	c.JSON(http.StatusOK, responses)
}
