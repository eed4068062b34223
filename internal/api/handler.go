package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"parking-billing-backend/internal/apperr"
	"parking-billing-backend/internal/ledger"
	"parking-billing-backend/internal/session"
	"parking-billing-backend/internal/store"
	"parking-billing-backend/internal/tariff"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	sessions  *session.Service
	ledger    *ledger.Ledger
	catalog   tariff.Catalog
	webpush   *webpush.Options
	responses *cache.Cache
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, sessions *session.Service, catalog tariff.Catalog, webpushOptions *webpush.Options) *Handler {
	h := &Handler{
		store:    s,
		sessions: sessions,
		catalog:  catalog,
		webpush:  webpushOptions,
	}
	if sessions != nil {
		h.ledger = sessions.Ledger()
	}
	return h
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindCapacity:
		return http.StatusUnprocessableEntity
	case apperr.KindTransientStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": apperr.KindValidation})
}

func facilityIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("facility_id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid facility ID")
		return 0, false
	}
	return id, true
}

// invalidate drops cached responses whose content depends on occupancy.
func (h *Handler) invalidate() {
	if h.responses != nil {
		h.responses.Flush()
	}
}
