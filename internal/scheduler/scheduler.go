package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxgate/internal/clock"
	"github.com/smallbiznis/taxgate/internal/config"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	obscontext "github.com/smallbiznis/taxgate/internal/observability/context"
	obslogger "github.com/smallbiznis/taxgate/internal/observability/logger"
	"github.com/smallbiznis/taxgate/internal/observability/metrics"
	submissiondomain "github.com/smallbiznis/taxgate/internal/submission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const jobRecoverySweep = "recovery_sweep"

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Gateway       *config.GatewayConfigHolder
	InvoiceRepo   invoicedomain.Repository
	SubmissionSvc submissiondomain.Service
	Metrics       *metrics.Metrics `optional:"true"`
	Config        Config           `optional:"true"`
}

// Scheduler periodically settles submission claims left behind by a crashed process.
type Scheduler struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	gateway       *config.GatewayConfigHolder
	invoicerepo   invoicedomain.Repository
	submissionsvc submissiondomain.Service
	metrics       *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Gateway == nil || p.InvoiceRepo == nil || p.SubmissionSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:            p.DB,
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		gateway:       p.Gateway,
		invoicerepo:   p.InvoiceRepo,
		submissionsvc: p.SubmissionSvc,
		metrics:       p.Metrics,
	}, nil
}

type jobRun struct {
	job            string
	runID          string
	startedAt      time.Time
	processedCount int
	skippedCount   int
	errorCount     int
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(context.Context, *jobRun) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	run := &jobRun{
		job:       name,
		runID:     s.genID.Generate().String(),
		startedAt: time.Now(),
	}
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	log.Info("scheduler.job.start", zap.Int("batch_size", s.cfg.BatchSize))

	err := fn(ctx, run)
	if err != nil && run.errorCount == 0 {
		run.errorCount++
	}
	log.Info("scheduler.job.finish",
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processedCount),
		zap.Int("skipped_count", run.skippedCount),
		zap.Int("error_count", run.errorCount),
	)
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the rest
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobRecoverySweep, s.cfg.JobTimeout, s.RecoverySweepJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RecoverySweepJob hands every claim older than the lease to the submission service,
// which either releases it or settles the abandoned attempt as UNKNOWN.
func (s *Scheduler) RecoverySweepJob(ctx context.Context, run *jobRun) error {
	cutoff := s.clock.Now().Add(-s.gateway.Get().Lease())
	var jobErr error

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		claims, err := s.invoicerepo.ListStaleClaims(ctx, s.db, cutoff, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(claims) == 0 {
			break
		}

		progressed := 0
		for _, claim := range claims {
			status, err := s.recoverClaim(ctx, claim)
			switch {
			case err == nil:
				run.processedCount++
				progressed++
				s.metrics.RecordRecovery(ctx, string(status))
			case errors.Is(err, invoicedomain.ErrSubmissionInProgress), errors.Is(err, invoicedomain.ErrNotDraft):
				run.skippedCount++
			default:
				run.errorCount++
				jobErr = errors.Join(jobErr, err)
			}
		}

		// rows that could not be settled stay in the list; stop instead of spinning on them
		if progressed == 0 || len(claims) < s.cfg.BatchSize {
			break
		}
	}

	return jobErr
}

func (s *Scheduler) recoverClaim(ctx context.Context, claim invoicedomain.StaleClaim) (invoicedomain.InvoiceStatus, error) {
	ctx = obscontext.WithTenantID(ctx, claim.TenantID.String())
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("invoice_id", claim.InvoiceID.String()),
		zap.Time("claimed_at", claim.ClaimedAt),
	)

	status, err := s.submissionsvc.Recover(ctx, claim.TenantID, claim.InvoiceID)
	if err != nil {
		if errors.Is(err, invoicedomain.ErrSubmissionInProgress) || errors.Is(err, invoicedomain.ErrNotDraft) {
			log.Debug("stale claim already settled", zap.Error(err))
		} else {
			log.Error("stale claim recovery failed", zap.Error(err))
		}
		return "", err
	}

	log.Info("stale claim recovered", zap.String("status", string(status)))
	return status, nil
}
