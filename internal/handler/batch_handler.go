package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// BatchHandler exposes the daily batch run for manual triggering: catch-up
// after missed scheduled runs, or replaying a date in staging.
type BatchHandler struct {
	batchService *service.BatchService
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batchService *service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

// RunBatch handles POST /api/v1/batch/run?date=YYYY-MM-DD
//
// Without a date the run executes for today. Re-running a date is safe.
func (h *BatchHandler) RunBatch(c echo.Context) error {
	now := time.Now()
	if dateParam := c.QueryParam("date"); dateParam != "" {
		parsed, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			return NewValidationError(c, "Invalid date", []ValidationError{
				{Field: "date", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		now = parsed
	}

	result, err := h.batchService.RunDailyBatch(c.Request().Context(), now)
	if err != nil {
		if errors.Is(err, service.ErrBatchRunInProgress) {
			return NewConflictError(c, "A batch run is already in progress")
		}
		log.Error().Err(err).Msg("Failed to run daily batch")
		return NewInternalError(c, "Failed to run daily batch")
	}

	return c.JSON(http.StatusOK, result)
}
