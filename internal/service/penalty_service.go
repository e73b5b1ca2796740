package service

import (
	"context"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/google/uuid"
)

// PenaltyService exposes read access to penalty ledger entries and the
// administrative waiver action.
type PenaltyService struct {
	ledgerRepo domain.PenaltyLedgerRepository

	now func() time.Time // overridable in tests
}

// NewPenaltyService creates a new PenaltyService
func NewPenaltyService(ledgerRepo domain.PenaltyLedgerRepository) *PenaltyService {
	return &PenaltyService{ledgerRepo: ledgerRepo, now: time.Now}
}

// Snapshot returns the entry with its penalty recomputed for the current
// time. The recomputation is a read-side view only: nothing is persisted, so
// the snapshot never races the daily batch.
func (s *PenaltyService) Snapshot(ctx context.Context, entryID uuid.UUID) (*domain.PenaltyLedgerEntry, error) {
	entry, err := s.ledgerRepo.GetByID(entryID)
	if err != nil {
		return nil, err
	}

	view := *entry
	if view.Status == domain.LedgerStatusOverdue {
		if err := view.RecomputePenalty(s.now()); err != nil {
			return nil, err
		}
	}
	return &view, nil
}

// ListByApplication returns all ledger entries opened for an application.
func (s *PenaltyService) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.PenaltyLedgerEntry, error) {
	return s.ledgerRepo.ListByApplication(applicationID)
}

// Waive closes an entry administratively, zeroing any future accrual.
func (s *PenaltyService) Waive(ctx context.Context, entryID uuid.UUID, reason, actor string) (*domain.PenaltyLedgerEntry, error) {
	entry, err := s.ledgerRepo.GetByID(entryID)
	if err != nil {
		return nil, err
	}
	if err := entry.Waive(reason, actor, s.now()); err != nil {
		return nil, err
	}
	return s.ledgerRepo.Update(entry)
}
