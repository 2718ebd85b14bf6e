package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/partnerly/backend/internal/application/billing"
)

// PartnerHandler exposes partner-facing query endpoints
type PartnerHandler struct {
	BaseHandler
	ledgerService *appbilling.LedgerQueryService
}

// NewPartnerHandler creates a new PartnerHandler
func NewPartnerHandler(ledgerService *appbilling.LedgerQueryService) *PartnerHandler {
	return &PartnerHandler{ledgerService: ledgerService}
}

// RegisterRoutes registers partner routes
func (h *PartnerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	partners := rg.Group("/partners")
	{
		partners.GET("/:id/ledger", h.GetLedger)
		partners.POST("/:id/recompute-stats", h.RecomputeStats)
	}
}

// GetLedger returns a page of the partner's commission ledger together
// with the signed total across all entries.
func (h *PartnerHandler) GetLedger(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid partner ID")
		return
	}

	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		h.BadRequest(c, "Invalid limit parameter")
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		h.BadRequest(c, "Invalid offset parameter")
		return
	}

	page, err := h.ledgerService.GetPartnerLedger(c.Request.Context(), partnerID, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, page)
}

// RecomputeStats rebuilds the partner's earned-commission total from
// the ledger and returns the corrected stats.
func (h *PartnerHandler) RecomputeStats(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid partner ID")
		return
	}

	stats, err := h.ledgerService.RecomputePartnerStats(c.Request.Context(), partnerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
