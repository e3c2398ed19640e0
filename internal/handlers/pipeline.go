package handlers

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gas_usage/internal/models"
	"gas_usage/internal/pipeline"
	"gas_usage/internal/service"
	"gas_usage/internal/source"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errRunPipeline     = "failed to run estimation pipeline"
	errCalibrate       = "failed to calibrate"
	errExport          = "failed to export"
	errInvalidBodyPref = "invalid body: "

	errStartRequired = "'start' is required; use RFC3339 or YYYY-MM-DD"
	errEndRequired   = "'end' is required; use RFC3339 or YYYY-MM-DD"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondPipelineError maps domain errors onto HTTP codes: invalid model
// or range parameters are the caller's fault, a degenerate calibration fit
// is unprocessable, an unreachable historian is a bad gateway.
func (h *Handler) respondPipelineError(c *gin.Context, userMsg, logKey string, err error) {
	var calErr *pipeline.CalibrationError
	switch {
	case errors.Is(err, pipeline.ErrInvalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &calErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":            calErr.Error(),
			"qualifying_hours": calErr.N,
		})
	case errors.Is(err, source.ErrUnavailable):
		h.logAndJSONError(c, http.StatusBadGateway, "data source unavailable", logKey, err)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, userMsg, logKey, err)
	}
}

// Request DTO for an estimation run.
type estimateRequest struct {
	Start       string   `json:"start" binding:"required"` // RFC3339 or YYYY-MM-DD
	End         string   `json:"end" binding:"required"`
	K           *float64 `json:"k,omitempty"`
	GasPrice    *float64 `json:"gas_price,omitempty"`
	Granularity string   `json:"granularity,omitempty"` // hourly | weekly | monthly
}

// EstimateRunRequest is an exported model for Swagger docs of the run payload.
type EstimateRunRequest struct {
	// Range start, RFC3339 or YYYY-MM-DD
	Start string `json:"start" example:"2024-03-01"`
	// Range end, exclusive
	End string `json:"end" example:"2024-03-08"`
	// Coefficient override; persisted default when omitted
	K *float64 `json:"k,omitempty" example:"7.97"`
	// Gas price override in EUR per cubic meter
	GasPrice *float64 `json:"gas_price,omitempty" example:"0.5"`
	// Rollup granularity: hourly, weekly or monthly
	Granularity string `json:"granularity,omitempty" example:"hourly"`
}

// Request DTO for a calibration run.
type calibrateRequest struct {
	Start         string `json:"start" binding:"required"`
	End           string `json:"end" binding:"required"`
	SaveAsDefault bool   `json:"save_as_default,omitempty"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Run the gas estimation pipeline
// @Description  Cleans the raw minute signals, aggregates hours and estimates gas usage over the range [start, end).
// @Tags         pipeline
// @Accept       json
// @Produce      json
// @Param        body  body   EstimateRunRequest  true  "Run parameters"
// @Success      200   {object}  map[string]interface{}  "k, gas_price, hourly/periods, stats"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/pipeline/run [post]
// @Security     BearerAuth
func (h *Handler) runEstimation(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	svcReq, ok := h.bindEstimateRequest(c, req)
	if !ok {
		return
	}

	res, err := h.services.Estimation.Run(c.Request.Context(), svcReq)
	if err != nil {
		h.respondPipelineError(c, errRunPipeline, "pipeline_run_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Calibrate the coefficient K
// @Description  Fits K on hours with 60 operational minutes and a metered gas reading within [start, end).
// @Tags         pipeline
// @Accept       json
// @Produce      json
// @Param        body  body   object  true  "start, end, save_as_default"
// @Success      200   {object}  map[string]interface{}  "k, mae, rmse, r2, mape_pct, n"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string  "not enough qualifying hours"
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/pipeline/calibrate [post]
// @Security     BearerAuth
func (h *Handler) calibrate(c *gin.Context) {
	var req calibrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	start, end, ok := h.parseRange(c, req.Start, req.End)
	if !ok {
		return
	}

	res, err := h.services.Calibration.Calibrate(c.Request.Context(), service.CalibrateRequest{
		Start:         start,
		End:           end,
		SaveAsDefault: req.SaveAsDefault,
	})
	if err != nil {
		h.respondPipelineError(c, errCalibrate, "calibration_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Export estimates as CSV
// @Tags         pipeline
// @Produce      text/csv
// @Param        start        query  string  true   "Range start (RFC3339 or YYYY-MM-DD)"
// @Param        end          query  string  true   "Range end, exclusive"
// @Param        granularity  query  string  false  "hourly | weekly | monthly"  default(hourly)
// @Param        k            query  number  false  "Coefficient override"
// @Param        gas_price    query  number  false  "Gas price override"
// @Success      200  {string}  string  "CSV payload"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/pipeline/export [get]
// @Security     BearerAuth
func (h *Handler) exportCSV(c *gin.Context) {
	req := estimateRequest{
		Start:       c.Query("start"),
		End:         c.Query("end"),
		Granularity: c.Query("granularity"),
	}
	if s := c.Query("k"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'k' value"})
			return
		}
		req.K = &v
	}
	if s := c.Query("gas_price"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'gas_price' value"})
			return
		}
		req.GasPrice = &v
	}
	svcReq, ok := h.bindEstimateRequest(c, req)
	if !ok {
		return
	}

	res, err := h.services.Estimation.Run(c.Request.Context(), svcReq)
	if err != nil {
		h.respondPipelineError(c, errExport, "export_failed", err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="gas_usage.csv"`)
	if err := writeEstimateCSV(c.Writer, res); err != nil && h.log != nil {
		h.log.Errorw("export_write_failed", "err", err)
	}
}

// bindEstimateRequest validates the shared run/export parameters and
// converts them to the service request. Writes the 400 itself on failure.
func (h *Handler) bindEstimateRequest(c *gin.Context, req estimateRequest) (service.EstimateRequest, bool) {
	start, end, ok := h.parseRange(c, req.Start, req.End)
	if !ok {
		return service.EstimateRequest{}, false
	}
	granularity := models.Granularity(req.Granularity)
	if granularity == "" {
		granularity = models.GranularityHourly
	}
	if !granularity.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'granularity'; use hourly, weekly or monthly"})
		return service.EstimateRequest{}, false
	}
	return service.EstimateRequest{
		Start:       start,
		End:         end,
		K:           req.K,
		GasPrice:    req.GasPrice,
		Granularity: granularity,
	}, true
}

// parseRange parses and validates the mandatory start/end pair.
func (h *Handler) parseRange(c *gin.Context, startStr, endStr string) (time.Time, time.Time, bool) {
	if startStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errStartRequired})
		return time.Time{}, time.Time{}, false
	}
	if endStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEndRequired})
		return time.Time{}, time.Time{}, false
	}
	start, err := parseQueryTime(startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errStartRequired})
		return time.Time{}, time.Time{}, false
	}
	end, err := parseQueryTime(endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEndRequired})
		return time.Time{}, time.Time{}, false
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'start' must be before 'end'"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// writeEstimateCSV streams hourly or period rows as CSV.
func writeEstimateCSV(w http.ResponseWriter, res service.EstimateResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if res.Periods != nil {
		if err := cw.Write([]string{"period_end", "operational_minutes", "burner_load_hourly", "gas_usage_est_hourly", "cost_hourly"}); err != nil {
			return err
		}
		for _, p := range res.Periods {
			rec := []string{
				p.PeriodEnd.UTC().Format(time.RFC3339),
				strconv.Itoa(p.OperationalMinutes),
				formatNullable(p.BurnerLoadHourly),
				strconv.FormatFloat(p.GasUsageEstHourly, 'f', -1, 64),
				strconv.FormatFloat(p.CostHourly, 'f', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return cw.Error()
	}

	if err := cw.Write([]string{"timestamp", "operational_minutes", "burner_load_hourly", "gas_usage_est_hourly", "cost_hourly"}); err != nil {
		return err
	}
	for _, r := range res.Hourly {
		rec := []string{
			r.HourEnd.UTC().Format(time.RFC3339),
			strconv.Itoa(r.OperationalMinutes),
			formatNullable(r.BurnerLoadHourly),
			strconv.FormatFloat(r.GasUsageEstHourly, 'f', -1, 64),
			strconv.FormatFloat(r.CostHourly, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return cw.Error()
}

// formatNullable renders a missing value as an empty CSV cell.
func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
