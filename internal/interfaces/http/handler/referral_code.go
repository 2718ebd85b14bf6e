package handler

import (
	"github.com/gin-gonic/gin"
	appreferral "github.com/partnerly/backend/internal/application/referral"
)

// ReferralCodeHandler exposes read-only referral code endpoints. Code
// validation here is advisory for checkout UIs; the webhook pipeline
// re-resolves the code at attribution time.
type ReferralCodeHandler struct {
	BaseHandler
	directory *appreferral.CodeDirectory
}

// NewReferralCodeHandler creates a new ReferralCodeHandler
func NewReferralCodeHandler(directory *appreferral.CodeDirectory) *ReferralCodeHandler {
	return &ReferralCodeHandler{directory: directory}
}

// RegisterRoutes registers referral code routes
func (h *ReferralCodeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	codes := rg.Group("/referral-codes")
	{
		codes.GET("/:code/validate", h.ValidateCode)
	}
}

// ValidateCode checks whether a referral code is currently usable.
// Rejections are part of the result payload, not HTTP errors: an
// unusable code is a valid answer.
func (h *ReferralCodeHandler) ValidateCode(c *gin.Context) {
	result, err := h.directory.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
