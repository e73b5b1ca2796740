package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/Pranshu2404/AsBrand-Backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// LedgerHandler handles penalty ledger HTTP requests
type LedgerHandler struct {
	penaltyService *service.PenaltyService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(penaltyService *service.PenaltyService) *LedgerHandler {
	return &LedgerHandler{penaltyService: penaltyService}
}

// WaiveRequest represents the waive request body
type WaiveRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

// NotificationResponse represents one notification history record
type NotificationResponse struct {
	Type           string `json:"type"`
	Channel        string `json:"channel"`
	SentAt         string `json:"sentAt"`
	DeliveryStatus string `json:"deliveryStatus"`
}

// LedgerEntryResponse represents a penalty ledger entry in API responses
type LedgerEntryResponse struct {
	ID                string                 `json:"id"`
	ApplicationID     string                 `json:"applicationId"`
	UserID            string                 `json:"userId"`
	InstallmentNumber int32                  `json:"installmentNumber"`
	OriginalAmount    string                 `json:"originalAmount"`
	DueDate           string                 `json:"dueDate"`
	MissedDate        *string                `json:"missedDate,omitempty"`
	PenaltyRate       string                 `json:"penaltyRate"`
	GracePeriodDays   int32                  `json:"gracePeriodDays"`
	DaysOverdue       int32                  `json:"daysOverdue"`
	PenaltyAmount     string                 `json:"penaltyAmount"`
	TotalPayable      string                 `json:"totalPayable"`
	IsInGracePeriod   bool                   `json:"isInGracePeriod"`
	Status            string                 `json:"status"`
	PaidAmount        *string                `json:"paidAmount,omitempty"`
	PaidDate          *string                `json:"paidDate,omitempty"`
	PaymentReference  *string                `json:"paymentReference,omitempty"`
	WaivedReason      *string                `json:"waivedReason,omitempty"`
	WaivedBy          *string                `json:"waivedBy,omitempty"`
	Notifications     []NotificationResponse `json:"notifications"`
}

// GetEntry handles GET /api/v1/penalties/:id
//
// The response is a live snapshot: for overdue entries the penalty is
// recomputed for the current time, which may run ahead of what the last
// batch run persisted.
func (h *LedgerHandler) GetEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid ledger entry ID", nil)
	}

	entry, err := h.penaltyService.Snapshot(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerEntryNotFound) {
			return NewNotFoundError(c, "Ledger entry not found")
		}
		log.Error().Err(err).Str("entry_id", id.String()).Msg("Failed to get ledger entry")
		return NewInternalError(c, "Failed to get ledger entry")
	}

	return c.JSON(http.StatusOK, toLedgerEntryResponse(entry))
}

// GetEntriesByApplication handles GET /api/v1/applications/:id/penalties
func (h *LedgerHandler) GetEntriesByApplication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid application ID", nil)
	}

	entries, err := h.penaltyService.ListByApplication(c.Request().Context(), id)
	if err != nil {
		log.Error().Err(err).Str("application_id", id.String()).Msg("Failed to list ledger entries")
		return NewInternalError(c, "Failed to list ledger entries")
	}

	response := make([]LedgerEntryResponse, len(entries))
	for i, entry := range entries {
		response[i] = toLedgerEntryResponse(entry)
	}
	return c.JSON(http.StatusOK, response)
}

// Waive handles POST /api/v1/penalties/:id/waive
func (h *LedgerHandler) Waive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid ledger entry ID", nil)
	}

	var req WaiveRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	entry, err := h.penaltyService.Waive(c.Request().Context(), id, req.Reason, req.Actor)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLedgerEntryNotFound):
			return NewNotFoundError(c, "Ledger entry not found")
		case errors.Is(err, domain.ErrWaiveReasonEmpty):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "reason", Message: "Waiver reason is required"},
			})
		case errors.Is(err, domain.ErrLedgerEntryClosed):
			return NewConflictError(c, "Ledger entry is already settled")
		case errors.Is(err, domain.ErrVersionConflict):
			return NewConflictError(c, "Ledger entry was modified concurrently, retry")
		}
		log.Error().Err(err).Str("entry_id", id.String()).Msg("Failed to waive ledger entry")
		return NewInternalError(c, "Failed to waive ledger entry")
	}

	log.Info().
		Str("entry_id", entry.ID.String()).
		Str("actor", req.Actor).
		Msg("Ledger entry waived")

	return c.JSON(http.StatusOK, toLedgerEntryResponse(entry))
}

func toLedgerEntryResponse(entry *domain.PenaltyLedgerEntry) LedgerEntryResponse {
	resp := LedgerEntryResponse{
		ID:                entry.ID.String(),
		ApplicationID:     entry.ApplicationID.String(),
		UserID:            entry.UserID.String(),
		InstallmentNumber: entry.InstallmentNumber,
		OriginalAmount:    entry.OriginalAmount.String(),
		DueDate:           entry.DueDate.Format("2006-01-02"),
		PenaltyRate:       entry.PenaltyRate.String(),
		GracePeriodDays:   entry.GracePeriodDays,
		DaysOverdue:       entry.DaysOverdue,
		PenaltyAmount:     entry.PenaltyAmount.String(),
		TotalPayable:      entry.TotalPayable.String(),
		IsInGracePeriod:   entry.IsInGracePeriod,
		Status:            string(entry.Status),
		PaymentReference:  entry.PaymentReference,
		WaivedReason:      entry.WaivedReason,
		WaivedBy:          entry.WaivedBy,
		Notifications:     make([]NotificationResponse, len(entry.Notifications)),
	}
	if entry.MissedDate != nil {
		s := entry.MissedDate.Format("2006-01-02")
		resp.MissedDate = &s
	}
	if entry.PaidAmount != nil {
		s := entry.PaidAmount.String()
		resp.PaidAmount = &s
	}
	if entry.PaidDate != nil {
		s := entry.PaidDate.Format(time.RFC3339)
		resp.PaidDate = &s
	}
	for i, n := range entry.Notifications {
		resp.Notifications[i] = NotificationResponse{
			Type:           string(n.Type),
			Channel:        n.Channel,
			SentAt:         n.SentAt.Format(time.RFC3339),
			DeliveryStatus: n.DeliveryStatus,
		}
	}
	return resp
}
