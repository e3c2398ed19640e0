package handlers

import (
	"errors"
	"net/http"

	"gas_usage/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errGetPrefs    = "failed to load model defaults"
	errUpdatePrefs = "failed to update model defaults"
)

// Request DTO for updating the model defaults. Omitted fields keep their
// current value.
type prefsRequest struct {
	DefaultK        *float64 `json:"default_k,omitempty"`
	DefaultGasPrice *float64 `json:"default_gas_price,omitempty"`
}

// @Summary      Get model defaults
// @Tags         prefs
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "default_k, default_gas_price, updated_at"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/prefs [get]
// @Security     BearerAuth
func (h *Handler) getPrefs(c *gin.Context) {
	p, err := h.services.Prefs.Get(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetPrefs, "prefs_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Update model defaults
// @Description  Updates the default coefficient K and/or gas price; omitted fields are unchanged.
// @Tags         prefs
// @Accept       json
// @Produce      json
// @Param        body  body   object  true  "default_k, default_gas_price"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/prefs [put]
// @Security     BearerAuth
func (h *Handler) updatePrefs(c *gin.Context) {
	var req prefsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if req.DefaultK == nil && req.DefaultGasPrice == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	p, err := h.services.Prefs.Update(c.Request.Context(), req.DefaultK, req.DefaultGasPrice)
	if err != nil {
		// Only validation failures are the caller's fault; a failed
		// write is ours.
		if errors.Is(err, service.ErrInvalidK) || errors.Is(err, service.ErrInvalidGasPrice) {
			if h.log != nil {
				h.log.Infow("prefs_update_rejected", "err", err)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errUpdatePrefs, "prefs_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, p)
}
