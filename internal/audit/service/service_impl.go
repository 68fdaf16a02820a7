package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/taxgate/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Begin numbers and stores an in-flight attempt. Numbering and insert share one transaction.
func (s *Service) Begin(ctx context.Context, tx *gorm.DB, req auditdomain.BeginRequest) (auditdomain.SubmissionAttempt, error) {
	if req.TenantID == 0 || req.InvoiceID == 0 {
		return auditdomain.SubmissionAttempt{}, auditdomain.ErrInvalidAttempt
	}

	var attempt auditdomain.SubmissionAttempt
	err := s.conn(tx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := s.repo.MaxAttemptNumber(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}

		attempt = auditdomain.SubmissionAttempt{
			ID:            s.genID.Generate(),
			TenantID:      req.TenantID,
			InvoiceID:     req.InvoiceID,
			AttemptNumber: last + 1,
			AttemptedAt:   req.AttemptedAt.UTC(),
			Endpoint:      strings.TrimSpace(req.Endpoint),
			Outcome:       auditdomain.OutcomeUnknown,
			DiagnosticID:  ulid.Make().String(),
		}
		return s.repo.Insert(ctx, tx, &attempt)
	})
	if err != nil {
		s.log.Warn("failed to record submission attempt",
			zap.String("invoice_id", req.InvoiceID.String()),
			zap.Error(err),
		)
		return auditdomain.SubmissionAttempt{}, err
	}
	return attempt, nil
}

func (s *Service) Finalize(ctx context.Context, tx *gorm.DB, id snowflake.ID, result auditdomain.Result) error {
	ok, err := s.repo.Finalize(ctx, s.conn(tx), id, result)
	if err != nil {
		return err
	}
	if !ok {
		return auditdomain.ErrAttemptFinalized
	}
	return nil
}

func (s *Service) List(ctx context.Context, tenantID, invoiceID snowflake.ID) ([]auditdomain.SubmissionAttempt, error) {
	attempts, err := s.repo.List(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []auditdomain.SubmissionAttempt{}
	}
	return attempts, nil
}

func (s *Service) Latest(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (*auditdomain.SubmissionAttempt, error) {
	return s.repo.Latest(ctx, s.conn(tx), invoiceID)
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
