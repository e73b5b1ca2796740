package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/config"
	"github.com/Pranshu2404/AsBrand-Backend/internal/domain"
	"github.com/Pranshu2404/AsBrand-Backend/internal/util"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrBatchRunInProgress is returned when a run is requested while a previous
// run is still executing.
var ErrBatchRunInProgress = errors.New("a batch run is already in progress")

// BatchService executes the daily reminder and penalty run. The run is a
// single externally-triggerable operation: tests and the scheduler both call
// RunDailyBatch with an explicit now, decoupling what a run does from when
// it happens.
type BatchService struct {
	appRepo    domain.EmiApplicationRepository
	ledgerRepo domain.PenaltyLedgerRepository
	sink       domain.NotificationSink
	logger     zerolog.Logger
	emi        config.EmiConfig

	mu       sync.Mutex
	inFlight bool
}

// NewBatchService creates a new BatchService
func NewBatchService(
	appRepo domain.EmiApplicationRepository,
	ledgerRepo domain.PenaltyLedgerRepository,
	sink domain.NotificationSink,
	logger zerolog.Logger,
	emi config.EmiConfig,
) *BatchService {
	return &BatchService{
		appRepo:    appRepo,
		ledgerRepo: ledgerRepo,
		sink:       sink,
		logger:     logger.With().Str("component", "emi_batch").Logger(),
		emi:        emi,
	}
}

// BatchRunResult summarizes one daily run.
type BatchRunResult struct {
	RunDate               time.Time `json:"runDate"`
	EntriesCreated        int       `json:"entriesCreated"`
	RemindersSent         int       `json:"remindersSent"`
	DueTodaySent          int       `json:"dueTodaySent"`
	GraceTransitions      int       `json:"graceTransitions"`
	OverdueTransitions    int       `json:"overdueTransitions"`
	PenaltiesRecomputed   int       `json:"penaltiesRecomputed"`
	ApplicationsActivated int       `json:"applicationsActivated"`
	ApplicationsDefaulted int       `json:"applicationsDefaulted"`
	Skipped               int       `json:"skipped"`
	Errors                int       `json:"errors"`
}

// RunDailyBatch executes the three passes of the daily run for the calendar
// date of now: upcoming reminders, due-today notices, and the overdue scan.
// Each pass, and each entry within a pass, is isolated: one entry's failure
// never aborts the rest, and the run itself only errors when a previous run
// is still in flight. Re-running over the same day's data is safe: every
// notification milestone is guarded by the ledger entry's history and every
// penalty is recomputed from scratch.
func (s *BatchService) RunDailyBatch(ctx context.Context, now time.Time) (*BatchRunResult, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrBatchRunInProgress
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	started := time.Now()
	today := util.DateOnly(now)
	result := &BatchRunResult{RunDate: today}

	s.logger.Info().Str("run_date", today.Format("2006-01-02")).Msg("Starting daily batch run")

	s.upcomingPass(ctx, now, result)
	s.dueTodayPass(ctx, now, result)
	s.overduePass(ctx, now, result)

	s.logger.Info().
		Str("run_date", today.Format("2006-01-02")).
		Int("entries_created", result.EntriesCreated).
		Int("reminders_sent", result.RemindersSent).
		Int("due_today_sent", result.DueTodaySent).
		Int("grace_transitions", result.GraceTransitions).
		Int("overdue_transitions", result.OverdueTransitions).
		Int("penalties_recomputed", result.PenaltiesRecomputed).
		Int("applications_activated", result.ApplicationsActivated).
		Int("applications_defaulted", result.ApplicationsDefaulted).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Dur("elapsed", time.Since(started)).
		Msg("Completed daily batch run")

	return result, nil
}

// upcomingPass opens ledger entries for installments entering the reminder
// window and emits the advance reminder once per (application, dueDate).
func (s *BatchService) upcomingPass(ctx context.Context, now time.Time, result *BatchRunResult) {
	target := util.DateOnly(now).AddDate(0, 0, s.emi.ReminderLeadDays)

	apps, err := s.appRepo.ListOpenByNextDueDate(target)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load applications for upcoming pass")
		result.Errors++
		return
	}

	for _, app := range apps {
		if ctx.Err() != nil {
			return
		}

		inst := app.InstallmentByDueDate(target)
		if inst == nil || inst.IsSettled() {
			continue
		}

		entry, err := s.ensureEntry(app, inst, result)
		if err != nil {
			s.logger.Error().Err(err).
				Str("application_id", app.ID.String()).
				Int32("installment", inst.SequenceNumber).
				Msg("Failed to open ledger entry")
			result.Errors++
			continue
		}

		if entry.HasNotification(domain.NotificationReminder3Days) {
			continue
		}
		if s.notify(ctx, entry, domain.NotificationReminder3Days, now, result) {
			result.RemindersSent++
		}
	}
}

// dueTodayPass activates approved applications whose first installment is
// due and emits the due-today notice once per (application, dueDate).
func (s *BatchService) dueTodayPass(ctx context.Context, now time.Time, result *BatchRunResult) {
	today := util.DateOnly(now)

	apps, err := s.appRepo.ListOpenByNextDueDate(today)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load applications for due-today pass")
		result.Errors++
		return
	}

	for _, app := range apps {
		if ctx.Err() != nil {
			return
		}

		if app.Status == domain.ApplicationStatusApproved {
			if err := app.Activate(); err == nil {
				if _, err := s.appRepo.Update(app); err != nil {
					s.logger.Error().Err(err).Str("application_id", app.ID.String()).Msg("Failed to activate application")
					result.Errors++
					continue
				}
				result.ApplicationsActivated++
			}
		}

		inst := app.InstallmentByDueDate(today)
		if inst == nil || inst.IsSettled() {
			continue
		}

		entry, err := s.ensureEntry(app, inst, result)
		if err != nil {
			s.logger.Error().Err(err).
				Str("application_id", app.ID.String()).
				Int32("installment", inst.SequenceNumber).
				Msg("Failed to open ledger entry")
			result.Errors++
			continue
		}

		if entry.HasNotification(domain.NotificationDueToday) {
			continue
		}
		if s.notify(ctx, entry, domain.NotificationDueToday, now, result) {
			result.DueTodaySent++
		}
	}
}

// overduePass advances the state machine of every open entry past its due
// date: grace entry, day-one notice, grace-end transition with the first
// penalty computation, and the daily recompute for entries already overdue.
// The entry is persisted after every transition so a crash resumes cleanly.
func (s *BatchService) overduePass(ctx context.Context, now time.Time, result *BatchRunResult) {
	today := util.DateOnly(now)

	entries, err := s.ledgerRepo.ListOpenDueBefore(today)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load ledger entries for overdue pass")
		result.Errors++
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		s.processOverdueEntry(ctx, entry, now, result)
	}
}

func (s *BatchService) processOverdueEntry(ctx context.Context, entry *domain.PenaltyLedgerEntry, now time.Time, result *BatchRunResult) {
	if entry.Status == domain.LedgerStatusPending {
		if err := entry.EnterGracePeriod(now); err != nil {
			s.entryError(entry, err, "Failed to enter grace period", result)
			return
		}
		if !s.persist(entry, result) {
			return
		}
		result.GraceTransitions++
	}

	if entry.Status == domain.LedgerStatusGracePeriod && !entry.HasNotification(domain.NotificationOverdueDay1) {
		s.notify(ctx, entry, domain.NotificationOverdueDay1, now, result)
	}

	if entry.Status == domain.LedgerStatusGracePeriod && util.DateOnly(now).After(entry.GraceEndDate()) {
		if err := entry.BeginOverdue(now); err != nil {
			s.entryError(entry, err, "Failed to end grace period", result)
			return
		}
		if !s.persist(entry, result) {
			return
		}
		result.OverdueTransitions++
		s.notify(ctx, entry, domain.NotificationGraceEnded, now, result)
		s.flagDefault(entry.ApplicationID, result)
	} else if entry.Status == domain.LedgerStatusOverdue {
		if err := entry.RecomputePenalty(now); err != nil {
			s.entryError(entry, err, "Failed to recompute penalty", result)
			return
		}
		if !s.persist(entry, result) {
			return
		}
		result.PenaltiesRecomputed++
	}
}

// ensureEntry returns the ledger entry for an installment, creating it
// lazily on first contact. Entries are keyed per (application, ordinal) and
// never duplicated.
func (s *BatchService) ensureEntry(app *domain.EmiApplication, inst *domain.Installment, result *BatchRunResult) (*domain.PenaltyLedgerEntry, error) {
	entry, err := s.ledgerRepo.GetByApplicationAndInstallment(app.ID, inst.SequenceNumber)
	if err == nil {
		return entry, nil
	}
	if err != domain.ErrLedgerEntryNotFound {
		return nil, err
	}

	entry = domain.NewPenaltyLedgerEntry(app, inst, s.emi.PenaltyRate, int32(s.emi.GracePeriodDays))
	created, err := s.ledgerRepo.Create(entry)
	if err != nil {
		return nil, err
	}
	result.EntriesCreated++
	return created, nil
}

// notify records one milestone notification and hands it to the sink. The
// history record is appended before the publish: a crash between the two
// loses at most one notification (acceptable, delivery is lossy) but can
// never re-send a milestone the entry already has on record. Delivery is
// best-effort: a sink failure is marked on the record and never retried.
func (s *BatchService) notify(ctx context.Context, entry *domain.PenaltyLedgerEntry, t domain.NotificationType, now time.Time, result *BatchRunResult) bool {
	rec := domain.NotificationRecord{Type: t, Channel: "sns", SentAt: now, DeliveryStatus: "pending"}
	if err := s.ledgerRepo.AppendNotification(entry.ID, rec); err != nil {
		s.logger.Error().Err(err).
			Str("entry_id", entry.ID.String()).
			Str("type", string(t)).
			Msg("Failed to record notification attempt")
		result.Errors++
		return false
	}

	n := domain.Notification{
		UserID:       entry.UserID,
		TemplateType: t,
		Substitutions: map[string]string{
			"installment": strconv.Itoa(int(entry.InstallmentNumber)),
			"dueDate":     util.DateOnly(entry.DueDate).Format("2006-01-02"),
			"amount":      entry.OriginalAmount.String(),
			"penalty":     entry.PenaltyAmount.String(),
			"payable":     entry.TotalPayable.String(),
		},
	}

	if _, err := s.sink.Send(ctx, n); err != nil {
		s.logger.Warn().Err(err).
			Str("entry_id", entry.ID.String()).
			Str("type", string(t)).
			Msg("Notification sink failed, accepting as lossy")
		rec.DeliveryStatus = "failed"
	} else {
		rec.DeliveryStatus = "sent"
	}

	if err := s.ledgerRepo.SetNotificationStatus(entry.ID, t, rec.DeliveryStatus); err != nil {
		s.logger.Error().Err(err).
			Str("entry_id", entry.ID.String()).
			Str("type", string(t)).
			Msg("Failed to record notification outcome")
		result.Errors++
	}
	entry.Notifications = append(entry.Notifications, rec)
	return rec.DeliveryStatus == "sent"
}

// persist saves the entry after a transition. A version conflict means the
// payment path settled the entry mid-run; the batch yields and skips it.
func (s *BatchService) persist(entry *domain.PenaltyLedgerEntry, result *BatchRunResult) bool {
	_, err := s.ledgerRepo.Update(entry)
	if err == domain.ErrVersionConflict {
		s.logger.Debug().
			Str("entry_id", entry.ID.String()).
			Msg("Ledger entry settled concurrently, skipping")
		result.Skipped++
		return false
	}
	if err != nil {
		s.entryError(entry, err, "Failed to persist ledger entry", result)
		return false
	}
	return true
}

// flagDefault marks the owning application defaulted the first time one of
// its entries exits grace unpaid.
func (s *BatchService) flagDefault(applicationID uuid.UUID, result *BatchRunResult) {
	app, err := s.appRepo.GetByID(applicationID)
	if err != nil {
		s.logger.Error().Err(err).Str("application_id", applicationID.String()).Msg("Failed to load application for default flag")
		result.Errors++
		return
	}
	if app.Status == domain.ApplicationStatusDefaulted {
		return
	}

	app.MarkDefaulted()
	if app.Status != domain.ApplicationStatusDefaulted {
		return
	}
	if _, err := s.appRepo.Update(app); err != nil {
		s.logger.Error().Err(err).Str("application_id", applicationID.String()).Msg("Failed to flag application as defaulted")
		result.Errors++
		return
	}
	result.ApplicationsDefaulted++
	s.logger.Warn().
		Str("application_id", applicationID.String()).
		Msg("Application defaulted: installment exited grace period unpaid")
}

func (s *BatchService) entryError(entry *domain.PenaltyLedgerEntry, err error, msg string, result *BatchRunResult) {
	s.logger.Error().Err(err).
		Str("entry_id", entry.ID.String()).
		Str("status", string(entry.Status)).
		Msg(msg)
	result.Errors++
}
