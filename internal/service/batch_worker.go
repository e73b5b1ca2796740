package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Pranshu2404/AsBrand-Backend/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// BatchWorker drives BatchService.RunDailyBatch once per day at a fixed
// wall-clock time in a fixed timezone. It is only a timer: everything a run
// does lives in the service, and the same operation can be triggered
// manually through the API.
type BatchWorker struct {
	batch  *BatchService
	logger zerolog.Logger
	cron   *cron.Cron
	loc    *time.Location
	spec   string
}

// NewBatchWorker creates a new BatchWorker for the configured daily trigger
func NewBatchWorker(batch *BatchService, logger zerolog.Logger, cfg config.BatchConfig) (*BatchWorker, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve batch timezone: %w", err)
	}

	return &BatchWorker{
		batch:  batch,
		logger: logger.With().Str("component", "batch_worker").Logger(),
		cron:   cron.New(cron.WithLocation(loc)),
		loc:    loc,
		spec:   fmt.Sprintf("%d %d * * *", cfg.Minute, cfg.Hour),
	}, nil
}

// Start arms the daily trigger.
func (w *BatchWorker) Start() error {
	if _, err := w.cron.AddFunc(w.spec, w.runOnce); err != nil {
		return fmt.Errorf("schedule daily batch: %w", err)
	}
	w.cron.Start()
	w.logger.Info().
		Str("schedule", w.spec).
		Str("timezone", w.loc.String()).
		Msg("Starting daily batch worker")
	return nil
}

// Stop disarms the trigger and waits for any in-flight run to finish.
func (w *BatchWorker) Stop() {
	w.logger.Info().Msg("Stopping daily batch worker")
	<-w.cron.Stop().Done()
	w.logger.Info().Msg("Daily batch worker stopped")
}

// runOnce executes one run. Failures are logged and swallowed: the trigger
// always re-arms for the next day regardless of the previous run's outcome.
func (w *BatchWorker) runOnce() {
	now := time.Now().In(w.loc)

	result, err := w.batch.RunDailyBatch(context.Background(), now)
	if err == ErrBatchRunInProgress {
		w.logger.Warn().Msg("Skipping scheduled run: previous run still in flight")
		return
	}
	if err != nil {
		w.logger.Error().Err(err).Msg("Daily batch run failed")
		return
	}

	if result.Errors > 0 {
		w.logger.Warn().Int("errors", result.Errors).Msg("Daily batch run completed with entry errors")
	}
}
