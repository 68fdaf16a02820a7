package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	"github.com/smallbiznis/taxgate/internal/reference/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	InvoiceRepo invoicedomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	invoicerepo invoicedomain.Repository
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reference.service"),
		invoicerepo: p.InvoiceRepo,
	}
}

func (s *Service) CheckAvailability(ctx context.Context, tenantID snowflake.ID, refNo string, excludeInvoiceID *snowflake.ID) error {
	refNo = strings.TrimSpace(refNo)
	if err := domain.ValidateFormat(refNo); err != nil {
		return err
	}

	existing, err := s.invoicerepo.FindByRefNo(ctx, s.db, tenantID, refNo)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if excludeInvoiceID != nil && existing.ID == *excludeInvoiceID {
		return nil
	}

	s.log.Debug("invoice reference unavailable",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_ref_no", refNo),
		zap.String("status", string(existing.Status)),
	)
	return &domain.RefConflictError{RefNo: refNo, Status: existing.Status}
}

func (s *Service) GetLastSubmitted(ctx context.Context, tenantID snowflake.ID) (*invoicedomain.Invoice, error) {
	return s.invoicerepo.FindLastSubmitted(ctx, s.db, tenantID)
}

func (s *Service) Suggest(ctx context.Context, tenantID snowflake.ID) (domain.Suggestion, error) {
	last, err := s.GetLastSubmitted(ctx, tenantID)
	if err != nil {
		return domain.Suggestion{}, err
	}
	if last == nil {
		return domain.Suggestion{}, nil
	}

	lastRef := last.InvoiceRefNo
	out := domain.Suggestion{LastRefNo: &lastRef}
	if next, ok := domain.SuggestNext(lastRef); ok {
		out.SuggestedRefNo = &next
	}
	return out, nil
}
