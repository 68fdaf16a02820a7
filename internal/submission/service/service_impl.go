package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/taxgate/internal/audit/domain"
	"github.com/smallbiznis/taxgate/internal/clock"
	"github.com/smallbiznis/taxgate/internal/config"
	"github.com/smallbiznis/taxgate/internal/gateway"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	"github.com/smallbiznis/taxgate/internal/observability/metrics"
	"github.com/smallbiznis/taxgate/internal/observability/tracing"
	"github.com/smallbiznis/taxgate/internal/submission/domain"
	tenantdomain "github.com/smallbiznis/taxgate/internal/tenant/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const abandonedSummary = "process ended while the gateway call was in flight"

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Gateway     *config.GatewayConfigHolder
	Client      gateway.Client
	Clock       clock.Clock
	InvoiceRepo invoicedomain.Repository
	TenantRepo  tenantdomain.Repository
	AuditSvc    auditdomain.Service
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	tracer trace.Tracer

	production  bool
	gateway     *config.GatewayConfigHolder
	client      gateway.Client
	clock       clock.Clock
	invoicerepo invoicedomain.Repository
	tenantrepo  tenantdomain.Repository
	auditsvc    auditdomain.Service
	metrics     *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("submission.service"),
		tracer: otel.Tracer("taxgate/submission"),

		production:  p.Config.IsProduction(),
		gateway:     p.Gateway,
		client:      p.Client,
		clock:       p.Clock,
		invoicerepo: p.InvoiceRepo,
		tenantrepo:  p.TenantRepo,
		auditsvc:    p.AuditSvc,
		metrics:     p.Metrics,
	}
}

// submission is the state shared by one Submit call.
type submission struct {
	tenantID  snowflake.ID
	invoiceID snowflake.ID
	refNo     string
	target    gateway.Target
	doc       gateway.GatewayInvoiceDocument
	policy    domain.Policy
	log       *zap.Logger
}

func (s *Service) Submit(ctx context.Context, tenantID, invoiceID snowflake.ID) (invoicedomain.Invoice, error) {
	cfg := s.gateway.Get()
	now := s.clock.Now()
	cutoff := now.Add(-cfg.Lease())

	invoice, err := s.invoicerepo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := invoice.EnsureDraft(); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice.ClaimLive(cutoff) {
		return invoicedomain.Invoice{}, invoicedomain.ErrSubmissionInProgress
	}

	tenant, err := s.tenantrepo.FindByID(ctx, tenantID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if !tenant.IsActive {
		return invoicedomain.Invoice{}, tenantdomain.ErrInactive
	}

	var referenced *invoicedomain.Invoice
	if invoice.ReferencedInvoiceID != nil {
		referenced, err = s.invoicerepo.FindByID(ctx, s.db, tenantID, *invoice.ReferencedInvoiceID)
		if errors.Is(err, invoicedomain.ErrNotFound) {
			return invoicedomain.Invoice{}, invoicedomain.ErrReferencedInvoiceNotFound
		}
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
	}

	claimed, err := s.invoicerepo.Claim(ctx, s.db, tenantID, invoiceID, now, cutoff)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if !claimed {
		return invoicedomain.Invoice{}, s.explainUnclaimed(ctx, tenantID, invoiceID)
	}

	// The claim is held from here on. The caller going away must not leave it half done.
	ctx = context.WithoutCancel(ctx)

	sub := submission{
		tenantID:  tenantID,
		invoiceID: invoiceID,
		refNo:     invoice.InvoiceRefNo,
		target: gateway.Target{
			Endpoint: cfg.SubmitURL(s.production),
			Token:    tenant.Token(cfg.Token),
			Timeout:  cfg.Timeout,
		},
		doc:    gateway.BuildPayload(*invoice, *tenant, referenced),
		policy: domain.Policy{MaxAttempts: cfg.MaxAttempts, Delay: cfg.RetryDelay}.Normalize(),
		log: s.log.With(
			zap.String("tenant_id", tenantID.String()),
			zap.String("invoice_id", invoiceID.String()),
			zap.String("invoice_ref_no", invoice.InvoiceRefNo),
		),
	}

	latest, err := s.auditsvc.Latest(ctx, nil, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, s.abort(ctx, sub, err)
	}
	if latest != nil && latest.InFlight() {
		return s.recoverAbandoned(ctx, sub, *latest)
	}

	return s.run(ctx, sub)
}

func (s *Service) run(ctx context.Context, sub submission) (invoicedomain.Invoice, error) {
	schedule := sub.policy.Schedule()

	for n := 1; ; n++ {
		attempt, err := s.auditsvc.Begin(ctx, nil, auditdomain.BeginRequest{
			TenantID:    sub.tenantID,
			InvoiceID:   sub.invoiceID,
			Endpoint:    sub.target.Endpoint,
			AttemptedAt: s.clock.Now(),
		})
		if err != nil {
			return invoicedomain.Invoice{}, s.abort(ctx, sub, err)
		}

		resp, callErr := s.call(ctx, sub, attempt)
		outcome := domain.Classify(resp, callErr)
		result := attemptResult(outcome, resp, callErr, s.clock.Now())
		s.metrics.RecordAttempt(ctx, string(outcome.Kind()), latency(resp, callErr))

		decision := sub.policy.Decide(outcome, n)
		sub.log.Info("gateway attempt finished",
			zap.Int("attempt_number", attempt.AttemptNumber),
			zap.String("outcome", string(outcome.Kind())),
			zap.String("decision", decision.String()),
			zap.String("diagnostic_id", attempt.DiagnosticID),
		)

		if decision == domain.DecisionStop {
			return s.complete(ctx, sub, attempt, result, outcome)
		}

		// Decide only retries while the schedule still has a delay left
		delay := schedule.NextBackOff()
		if err := s.auditsvc.Finalize(ctx, nil, attempt.ID, result); err != nil {
			return invoicedomain.Invoice{}, s.abort(ctx, sub, err)
		}
		if err := s.clock.Sleep(ctx, delay); err != nil {
			return invoicedomain.Invoice{}, s.abort(ctx, sub, err)
		}
	}
}

func (s *Service) call(ctx context.Context, sub submission, attempt auditdomain.SubmissionAttempt) (*gateway.Response, error) {
	ctx, span := s.tracer.Start(ctx, "gateway.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.SafeAttributes(
			attribute.String("invoice_id", sub.invoiceID.String()),
			attribute.Int("attempt_number", attempt.AttemptNumber),
			attribute.String("diagnostic_id", attempt.DiagnosticID),
			attribute.String("endpoint", sub.target.Endpoint),
		)...),
	)
	defer span.End()

	resp, err := s.client.Submit(ctx, sub.target, sub.doc)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "gateway call failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

// complete finalizes the last attempt and moves the invoice out of DRAFT in one transaction.
func (s *Service) complete(ctx context.Context, sub submission, attempt auditdomain.SubmissionAttempt, result auditdomain.Result, outcome domain.Outcome) (invoicedomain.Invoice, error) {
	transition := invoicedomain.Transition{
		TenantID:  sub.tenantID,
		InvoiceID: sub.invoiceID,
		To:        domain.FinalStatus(outcome),
		At:        result.FinalizedAt,
	}
	if parsed := domain.GatewayResponse(outcome); parsed != nil {
		transition.GatewayResponse = datatypes.JSON(parsed.ValidationJSON())
	}
	if success, ok := outcome.(domain.Success); ok {
		transition.At = attempt.AttemptedAt
		if number := success.Response.InvoiceNumber; number != "" {
			transition.GatewayInvoiceNumber = &number
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.auditsvc.Finalize(ctx, tx, attempt.ID, result); err != nil {
			return err
		}
		return s.transition(ctx, tx, transition)
	})
	if err != nil {
		return invoicedomain.Invoice{}, s.abort(ctx, sub, err)
	}

	return s.finished(ctx, sub, transition.To)
}

// recoverAbandoned handles a claim taken over from a process that died mid-call. The gateway
// may hold that document, so the invoice can only be UNKNOWN.
func (s *Service) recoverAbandoned(ctx context.Context, sub submission, attempt auditdomain.SubmissionAttempt) (invoicedomain.Invoice, error) {
	now := s.clock.Now()
	sub.log.Warn("found in-flight attempt from an earlier submission",
		zap.Int("attempt_number", attempt.AttemptNumber),
		zap.String("diagnostic_id", attempt.DiagnosticID),
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.auditsvc.Finalize(ctx, tx, attempt.ID, auditdomain.Result{
			Outcome:         auditdomain.OutcomeUnknown,
			ResponseSummary: abandonedSummary,
			FinalizedAt:     now,
		}); err != nil {
			return err
		}
		return s.transition(ctx, tx, invoicedomain.Transition{
			TenantID:  sub.tenantID,
			InvoiceID: sub.invoiceID,
			To:        invoicedomain.InvoiceStatusUnknown,
			At:        now,
		})
	})
	if err != nil {
		return invoicedomain.Invoice{}, s.abort(ctx, sub, err)
	}

	return s.finished(ctx, sub, invoicedomain.InvoiceStatusUnknown)
}

func (s *Service) Recover(ctx context.Context, tenantID, invoiceID snowflake.ID) (invoicedomain.InvoiceStatus, error) {
	cfg := s.gateway.Get()
	now := s.clock.Now()

	claimed, err := s.invoicerepo.Claim(ctx, s.db, tenantID, invoiceID, now, now.Add(-cfg.Lease()))
	if err != nil {
		return "", err
	}
	if !claimed {
		return "", s.explainUnclaimed(ctx, tenantID, invoiceID)
	}
	ctx = context.WithoutCancel(ctx)

	sub := submission{
		tenantID:  tenantID,
		invoiceID: invoiceID,
		log: s.log.With(
			zap.String("tenant_id", tenantID.String()),
			zap.String("invoice_id", invoiceID.String()),
		),
	}

	latest, err := s.auditsvc.Latest(ctx, nil, invoiceID)
	if err != nil {
		return "", s.abort(ctx, sub, err)
	}
	if latest != nil && latest.InFlight() {
		invoice, err := s.recoverAbandoned(ctx, sub, *latest)
		if err != nil {
			return "", err
		}
		return invoice.Status, nil
	}

	if err := s.invoicerepo.ReleaseClaim(ctx, s.db, tenantID, invoiceID); err != nil {
		return "", err
	}
	sub.log.Info("released stale submission claim")
	return invoicedomain.InvoiceStatusDraft, nil
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, t invoicedomain.Transition) error {
	ok, err := s.invoicerepo.Transition(ctx, tx, t)
	if err != nil {
		return err
	}
	if !ok {
		return invoicedomain.ErrNotDraft
	}
	return nil
}

func (s *Service) finished(ctx context.Context, sub submission, status invoicedomain.InvoiceStatus) (invoicedomain.Invoice, error) {
	s.metrics.RecordSubmission(ctx, string(status))
	sub.log.Info("invoice submission finished", zap.String("status", string(status)))

	invoice, err := s.invoicerepo.FindByID(ctx, s.db, sub.tenantID, sub.invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *invoice, nil
}

// abort gives the claim back after an infrastructure failure and returns err.
// A claim whose last attempt is still in flight is kept until it expires, so only
// Recover or a later Submit can settle it.
func (s *Service) abort(ctx context.Context, sub submission, err error) error {
	sub.log.Error("invoice submission aborted", zap.Error(err))

	latest, lerr := s.auditsvc.Latest(ctx, nil, sub.invoiceID)
	switch {
	case lerr != nil:
		sub.log.Error("keeping submission claim, attempt state unknown", zap.Error(lerr))
		return err
	case latest != nil && latest.InFlight():
		sub.log.Warn("keeping submission claim for unsettled gateway call",
			zap.Int("attempt_number", latest.AttemptNumber),
			zap.String("diagnostic_id", latest.DiagnosticID),
		)
		return err
	}

	if rerr := s.invoicerepo.ReleaseClaim(ctx, s.db, sub.tenantID, sub.invoiceID); rerr != nil {
		sub.log.Error("failed to release submission claim", zap.Error(rerr))
	}
	return err
}

func (s *Service) explainUnclaimed(ctx context.Context, tenantID, invoiceID snowflake.ID) error {
	current, err := s.invoicerepo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if err := current.EnsureDraft(); err != nil {
		return err
	}
	return invoicedomain.ErrSubmissionInProgress
}

func (s *Service) Validate(ctx context.Context, tenantID, invoiceID snowflake.ID) (domain.ValidationResult, error) {
	cfg := s.gateway.Get()
	if cfg.ValidateURL == "" {
		return domain.ValidationResult{}, invoicedomain.ErrGatewayValidationDisabled
	}

	invoice, err := s.invoicerepo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	tenant, err := s.tenantrepo.FindByID(ctx, tenantID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	var referenced *invoicedomain.Invoice
	if invoice.ReferencedInvoiceID != nil {
		referenced, err = s.invoicerepo.FindByID(ctx, s.db, tenantID, *invoice.ReferencedInvoiceID)
		if err != nil && !errors.Is(err, invoicedomain.ErrNotFound) {
			return domain.ValidationResult{}, err
		}
	}

	target := gateway.Target{
		Endpoint: cfg.ValidateURL,
		Token:    tenant.Token(cfg.ValidationToken()),
		Timeout:  cfg.Timeout,
	}
	resp, err := s.client.Validate(ctx, target, gateway.BuildPayload(*invoice, *tenant, referenced))
	if err != nil {
		s.log.Warn("gateway validation failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(tracing.SafeError(err)),
		)
		return domain.ValidationResult{}, err
	}

	out := domain.ValidationResult{HTTPStatus: resp.StatusCode}
	parsed, perr := gateway.ParseResponse(resp.Body)
	if perr != nil {
		out.Raw = rawJSON(resp.Body)
		return out, nil
	}
	out.Response = parsed
	out.Accepted = resp.StatusCode == http.StatusOK && parsed.Accepted()
	out.ErrorCode = parsed.ErrorCode()
	return out, nil
}

func attemptResult(outcome domain.Outcome, resp *gateway.Response, callErr error, at time.Time) auditdomain.Result {
	result := auditdomain.Result{
		Outcome:     outcome.Kind(),
		ErrorCode:   domain.ErrorCode(outcome),
		FinalizedAt: at,
	}
	if resp != nil {
		status := resp.StatusCode
		elapsed := resp.Latency
		result.HTTPStatus = &status
		result.ResponseTime = &elapsed
		result.ResponseSummary = string(resp.Body)
		return result
	}
	if callErr != nil {
		result.ResponseSummary = tracing.SafeError(callErr).Error()
	}
	return result
}

func latency(resp *gateway.Response, err error) time.Duration {
	if resp != nil {
		return resp.Latency
	}
	var timeoutErr *gateway.TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Elapsed
	}
	var transportErr *gateway.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Elapsed
	}
	return 0
}

func rawJSON(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		quoted, _ := json.Marshal(auditdomain.TruncateSummary(string(body)))
		return quoted
	}
	return body
}
