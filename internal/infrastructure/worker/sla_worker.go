package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/application/dispatcher"
	"github.com/garyjia/forcing-workflow/internal/application/port"
	appwf "github.com/garyjia/forcing-workflow/internal/application/workflow"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
	"github.com/garyjia/forcing-workflow/internal/domain/event"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// SLAWorkerConfig holds configuration for the SLA watcher
type SLAWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// Horizon is how far ahead of now due dates are scanned
	Horizon time.Duration
	// FollowUpAfter moves disbursed requests into EN_SUIVI once they have
	// sat in DECAISSEE this long. Zero disables it.
	FollowUpAfter time.Duration
}

// DefaultSLAWorkerConfig returns default configuration
func DefaultSLAWorkerConfig() SLAWorkerConfig {
	return SLAWorkerConfig{
		PollInterval:  time.Minute,
		BatchSize:     50,
		Horizon:       48 * time.Hour,
		FollowUpAfter: 24 * time.Hour,
	}
}

// watchedStatuses are the statuses in which a request waits on the bank
var watchedStatuses = []workflow.Status{
	workflow.StatusEnvoyee,
	workflow.StatusEnAttenteConseiller,
	workflow.StatusEnEtudeConseiller,
	workflow.StatusEnAttenteRM,
	workflow.StatusEnAttenteDCE,
	workflow.StatusEnAttenteADG,
	workflow.StatusEnAnalyseRisques,
}

// Advancer performs system transitions
type Advancer interface {
	Advance(ctx context.Context, requestID string, to workflow.Status, comment string) (*appwf.Result, error)
}

// SweepStats summarises one pass of the watcher
type SweepStats struct {
	Flagged    int
	FollowedUp int
	Failed     int
}

// SLAWorker flags requests about to miss their due date and moves disbursed
// requests into follow-up
type SLAWorker struct {
	config SLAWorkerConfig

	requestRepo port.RequestRepository
	calculator  *policy.Calculator
	dispatcher  dispatcher.Dispatcher
	advancer    Advancer
	logger      *zap.Logger

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
	lastRun   time.Time
	lastStats SweepStats
	lastError error
}

// NewSLAWorker creates a new SLA watcher. advancer may be nil, which
// disables the follow-up sweep.
func NewSLAWorker(
	config SLAWorkerConfig,
	requestRepo port.RequestRepository,
	calculator *policy.Calculator,
	d dispatcher.Dispatcher,
	advancer Advancer,
	logger *zap.Logger,
) *SLAWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSLAWorkerConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSLAWorkerConfig().BatchSize
	}
	return &SLAWorker{
		config:      config,
		requestRepo: requestRepo,
		calculator:  calculator,
		dispatcher:  d,
		advancer:    advancer,
		logger:      logger,
	}
}

// Start begins the polling loop
func (w *SLAWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("sla worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("SLAWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Duration("horizon", w.config.Horizon),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for the current sweep to finish
func (w *SLAWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("SLAWorker stopped")
	return nil
}

// Name returns the worker name for identification
func (w *SLAWorker) Name() string {
	return "SLAWorker"
}

// LastRun reports when the last sweep ended and what it did
func (w *SLAWorker) LastRun() (time.Time, SweepStats, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRun, w.lastStats, w.lastError
}

func (w *SLAWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error("SLA sweep failed", zap.Error(err))
			}

			w.mu.Lock()
			w.lastRun = time.Now()
			w.lastStats = stats
			w.lastError = err
			w.mu.Unlock()
		}
	}
}

// RunOnce performs a single sweep
func (w *SLAWorker) RunOnce(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	if err := w.flagBreaches(ctx, &stats); err != nil {
		return stats, err
	}
	if err := w.followUp(ctx, &stats); err != nil {
		return stats, err
	}

	if stats.Flagged > 0 || stats.FollowedUp > 0 || stats.Failed > 0 {
		w.logger.Info("SLA sweep completed",
			zap.Int("flagged", stats.Flagged),
			zap.Int("followed_up", stats.FollowedUp),
			zap.Int("failed", stats.Failed))
	}
	return stats, nil
}

func (w *SLAWorker) flagBreaches(ctx context.Context, stats *SweepStats) error {
	now := w.calculator.Now()

	due, err := w.requestRepo.ListDueBefore(ctx, now.Add(w.config.Horizon), watchedStatuses, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("list due requests: %w", err)
	}

	for _, req := range due {
		if w.calculator.Priority(req.Due(), req.Amount, req.ClientRating, req.OperationType) != policy.PriorityUrgente {
			continue
		}
		if err := w.flag(ctx, req, now); err != nil {
			stats.Failed++
			w.logger.Error("Failed to flag SLA breach", zap.String("request_id", req.ID), zap.Error(err))
			continue
		}
		stats.Flagged++
	}
	return nil
}

func (w *SLAWorker) flag(ctx context.Context, req *entity.ForcingRequest, now time.Time) error {
	if err := w.requestRepo.MarkSLABreached(ctx, req.ID, now); err != nil {
		return err
	}

	days, _ := w.calculator.DaysRemaining(req.Due())
	w.logger.Info("SLA breach flagged",
		zap.String("request_id", req.ID),
		zap.String("reference", req.Reference),
		zap.String("status", req.Status.String()),
		zap.Int("days_remaining", days))

	if w.dispatcher != nil {
		w.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeSLABreached, req.ID, req.Reference, map[string]interface{}{
			event.KeyDaysLeft: days,
			event.KeyTo:       req.Status.String(),
			event.KeyPriority: policy.PriorityUrgente.String(),
			event.KeyAgencyID: req.AgencyID,
		}))
	}
	return nil
}

func (w *SLAWorker) followUp(ctx context.Context, stats *SweepStats) error {
	if w.advancer == nil || w.config.FollowUpAfter <= 0 {
		return nil
	}

	disbursed, err := w.requestRepo.List(ctx, entity.RequestFilter{
		Status: workflow.StatusDecaissee,
		Limit:  w.config.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("list disbursed requests: %w", err)
	}

	cutoff := w.calculator.Now().Add(-w.config.FollowUpAfter)
	for _, req := range disbursed {
		if req.UpdatedAt.After(cutoff) {
			continue
		}
		if _, err := w.advancer.Advance(ctx, req.ID, workflow.StatusEnSuivi, "follow-up after disbursement"); err != nil {
			stats.Failed++
			w.logger.Error("Failed to move request to follow-up", zap.String("request_id", req.ID), zap.Error(err))
			continue
		}
		stats.FollowedUp++
	}
	return nil
}
