package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Klienn77/pos-vendas-ecommerce/utils"

	"github.com/gin-gonic/gin"
)

const storeTimeout = 10 * time.Second

// respondError writes the standard error envelope. When err is non-nil it
// is logged, and echoed in the payload outside release mode to ease local
// debugging.
func respondError(c *gin.Context, status int, message string, err error) {
	payload := gin.H{"success": false, "message": message}
	if err != nil {
		log.Printf("%s: %v", message, err)
		if gin.Mode() != gin.ReleaseMode {
			payload["error"] = err.Error()
		}
	}
	c.JSON(status, payload)
}

// parseWindow reads the startDate/endDate query parameters, defaulting to
// the trailing defaultDays ending now. Returns ok=false after writing a
// 400 when a parameter does not parse.
func parseWindow(c *gin.Context, defaultDays int) (start, end time.Time, ok bool) {
	end = time.Now().UTC()
	start = end.AddDate(0, 0, -defaultDays)

	if raw := c.Query("startDate"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid 'startDate' format. Use RFC3339 or YYYY-MM-DD", nil)
			return start, end, false
		}
		start = parsed
	}
	if raw := c.Query("endDate"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid 'endDate' format. Use RFC3339 or YYYY-MM-DD", nil)
			return start, end, false
		}
		end = parsed
	}

	return start, end, true
}

// intQuery reads a positive integer query parameter, clamped to max when
// max is positive. Anything unparsable falls back to the default.
func intQuery(c *gin.Context, name string, def, max int64) int64 {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 1 {
		return def
	}
	if max > 0 && value > max {
		return max
	}
	return value
}

// pagination is the envelope fragment attached to every list response.
func pagination(page, limit, total int64) gin.H {
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return gin.H{
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": totalPages,
	}
}
