package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/taxgate/internal/audit/domain"
	"github.com/smallbiznis/taxgate/internal/clock"
	"github.com/smallbiznis/taxgate/internal/config"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	referencedomain "github.com/smallbiznis/taxgate/internal/reference/domain"
	"github.com/smallbiznis/taxgate/internal/tenantcontext"
	"github.com/smallbiznis/taxgate/pkg/db"
	"github.com/smallbiznis/taxgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Gateway     *config.GatewayConfigHolder
	InvoiceRepo invoicedomain.Repository
	RefSvc      referencedomain.Service
	AuditSvc    auditdomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	gateway     *config.GatewayConfigHolder
	invoicerepo invoicedomain.Repository
	refsvc      referencedomain.Service
	auditsvc    auditdomain.Service
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		clock:       p.Clock,
		gateway:     p.Gateway,
		invoicerepo: p.InvoiceRepo,
		refsvc:      p.RefSvc,
		auditsvc:    p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := validate.Struct(req); err != nil {
		return invoicedomain.Invoice{}, err
	}

	refNo := strings.TrimSpace(req.InvoiceRefNo)
	invoiceDate, err := parseDate(req.InvoiceDate)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := s.refsvc.CheckAvailability(ctx, tenantID, refNo, nil); err != nil {
		return invoicedomain.Invoice{}, err
	}
	referencedID, err := s.resolveReferenced(ctx, tenantID, req.DocumentType, req.ReferencedInvoiceRefNo)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	items, err := s.buildItems(id, req.Items, now)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	scenarioID := strings.TrimSpace(req.ScenarioID)
	if scenarioID == "" {
		scenarioID = invoicedomain.DefaultScenarioID
	}

	invoice := invoicedomain.Invoice{
		ID:                    id,
		TenantID:              tenantID,
		InvoiceRefNo:          refNo,
		DocumentType:          req.DocumentType,
		Status:                invoicedomain.InvoiceStatusDraft,
		InvoiceDate:           invoiceDate,
		BuyerNTNCNIC:          strings.TrimSpace(req.BuyerNTNCNIC),
		BuyerBusinessName:     strings.TrimSpace(req.BuyerBusinessName),
		BuyerProvince:         strings.TrimSpace(req.BuyerProvince),
		BuyerAddress:          strings.TrimSpace(req.BuyerAddress),
		BuyerRegistrationType: invoicedomain.RegistrationType(req.BuyerRegistrationType),
		ScenarioID:            scenarioID,
		ReferencedInvoiceID:   referencedID,
		CreatedAt:             now,
		UpdatedAt:             now,
		Items:                 items,
	}

	if err := s.invoicerepo.Insert(ctx, s.db, &invoice); err != nil {
		if db.IsDuplicateKeyErr(err) {
			if cerr := s.refsvc.CheckAvailability(ctx, tenantID, refNo, nil); cerr != nil {
				return invoicedomain.Invoice{}, cerr
			}
		}
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_ref_no", invoice.InvoiceRefNo),
		zap.String("document_type", string(invoice.DocumentType)),
	)
	return invoice, nil
}

func (s *Service) Update(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := validate.Struct(req); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if req.Items != nil && len(req.Items) == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidItems
	}

	current, err := s.invoicerepo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := current.EnsureDraft(); err != nil {
		return invoicedomain.Invoice{}, err
	}
	now := s.clock.Now()
	cutoff := s.claimCutoff(now)
	if err := s.ensureSettled(ctx, current, cutoff); err != nil {
		return invoicedomain.Invoice{}, err
	}

	next := *current
	if req.InvoiceRefNo != nil {
		refNo := strings.TrimSpace(*req.InvoiceRefNo)
		if refNo != current.InvoiceRefNo {
			if err := s.refsvc.CheckAvailability(ctx, tenantID, refNo, &current.ID); err != nil {
				return invoicedomain.Invoice{}, err
			}
		}
		next.InvoiceRefNo = refNo
	}
	if req.InvoiceDate != nil {
		invoiceDate, err := parseDate(*req.InvoiceDate)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		next.InvoiceDate = invoiceDate
	}
	if req.BuyerNTNCNIC != nil {
		next.BuyerNTNCNIC = strings.TrimSpace(*req.BuyerNTNCNIC)
	}
	if req.BuyerBusinessName != nil {
		next.BuyerBusinessName = strings.TrimSpace(*req.BuyerBusinessName)
	}
	if req.BuyerProvince != nil {
		next.BuyerProvince = strings.TrimSpace(*req.BuyerProvince)
	}
	if req.BuyerAddress != nil {
		next.BuyerAddress = strings.TrimSpace(*req.BuyerAddress)
	}
	if req.BuyerRegistrationType != nil {
		next.BuyerRegistrationType = invoicedomain.RegistrationType(*req.BuyerRegistrationType)
	}
	if req.ScenarioID != nil {
		next.ScenarioID = strings.TrimSpace(*req.ScenarioID)
		if next.ScenarioID == "" {
			next.ScenarioID = invoicedomain.DefaultScenarioID
		}
	}

	if req.DocumentType != nil {
		next.DocumentType = *req.DocumentType
	}
	switch {
	case !next.DocumentType.RequiresReference():
		next.ReferencedInvoiceID = nil
	case req.ReferencedInvoiceRefNo != nil:
		referencedID, err := s.resolveReferenced(ctx, tenantID, next.DocumentType, *req.ReferencedInvoiceRefNo)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		next.ReferencedInvoiceID = referencedID
	case next.ReferencedInvoiceID == nil:
		return invoicedomain.Invoice{}, invoicedomain.ErrReferencedInvoiceRequired
	}

	if req.Items != nil {
		items, err := s.buildItems(current.ID, req.Items, now)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		next.Items = items
	}
	next.UpdatedAt = now

	ok, err := s.invoicerepo.UpdateDraft(ctx, s.db, &next, cutoff)
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			if cerr := s.refsvc.CheckAvailability(ctx, tenantID, next.InvoiceRefNo, &current.ID); cerr != nil {
				return invoicedomain.Invoice{}, cerr
			}
		}
		return invoicedomain.Invoice{}, err
	}
	if !ok {
		return invoicedomain.Invoice{}, s.explainRejected(ctx, tenantID, invoiceID)
	}

	updated, err := s.invoicerepo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	current, err := s.invoicerepo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if err := current.EnsureDraft(); err != nil {
		return err
	}
	cutoff := s.claimCutoff(s.clock.Now())
	if err := s.ensureSettled(ctx, current, cutoff); err != nil {
		return err
	}

	ok, err := s.invoicerepo.DeleteDraft(ctx, s.db, tenantID, invoiceID, cutoff)
	if err != nil {
		return err
	}
	if !ok {
		return s.explainRejected(ctx, tenantID, invoiceID)
	}

	s.log.Info("invoice deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("invoice_ref_no", current.InvoiceRefNo),
	)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoice, err := s.invoicerepo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	tenantID, err := s.tenantIDFromContext(ctx)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	filter := invoicedomain.ListFilter{TenantID: tenantID}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		filter.Status = invoicedomain.InvoiceStatus(status)
		if !filter.Status.Valid() {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
		}
	}
	if docType := strings.ToUpper(strings.TrimSpace(req.DocumentType)); docType != "" {
		filter.DocumentType = invoicedomain.DocumentType(docType)
		if !filter.DocumentType.Valid() {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidDocumentType
		}
	}

	page := req.Pagination.Normalize()
	filter.Offset = page.Offset()
	filter.Limit = page.Limit()

	invoices, total, err := s.invoicerepo.List(ctx, s.db, filter)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	if invoices == nil {
		invoices = []invoicedomain.Invoice{}
	}

	return invoicedomain.ListInvoiceResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Invoices: invoices,
	}, nil
}

func (s *Service) resolveReferenced(ctx context.Context, tenantID snowflake.ID, docType invoicedomain.DocumentType, refNo string) (*snowflake.ID, error) {
	if !docType.RequiresReference() {
		return nil, nil
	}
	refNo = strings.TrimSpace(refNo)
	if refNo == "" {
		return nil, invoicedomain.ErrReferencedInvoiceRequired
	}

	sale, err := s.invoicerepo.FindSubmittedSale(ctx, s.db, tenantID, refNo)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, invoicedomain.ErrReferencedInvoiceNotFound
	}
	id := sale.ID
	return &id, nil
}

func (s *Service) buildItems(invoiceID snowflake.ID, reqs []invoicedomain.ItemRequest, now time.Time) ([]invoicedomain.InvoiceItem, error) {
	items := make([]invoicedomain.InvoiceItem, 0, len(reqs))
	for i, req := range reqs {
		amounts := []decimal.Decimal{
			req.Quantity,
			req.TotalValues,
			req.ValueSalesExcludingST,
			req.FixedNotifiedValue,
			req.SalesTaxApplicable,
			req.SalesTaxWithheld,
			req.FurtherTax,
			req.FEDPayable,
			req.Discount,
		}
		for _, amount := range amounts {
			if amount.IsNegative() {
				return nil, invoicedomain.ErrInvalidItems
			}
		}

		items = append(items, invoicedomain.InvoiceItem{
			ID:                    s.genID.Generate(),
			InvoiceID:             invoiceID,
			Position:              i + 1,
			HSCode:                strings.TrimSpace(req.HSCode),
			ProductDescription:    strings.TrimSpace(req.ProductDescription),
			Rate:                  strings.TrimSpace(req.Rate),
			UOM:                   strings.TrimSpace(req.UOM),
			Quantity:              req.Quantity,
			TotalValues:           req.TotalValues,
			ValueSalesExcludingST: req.ValueSalesExcludingST,
			FixedNotifiedValue:    req.FixedNotifiedValue,
			SalesTaxApplicable:    req.SalesTaxApplicable,
			SalesTaxWithheld:      req.SalesTaxWithheld,
			ExtraTax:              strings.TrimSpace(req.ExtraTax),
			FurtherTax:            req.FurtherTax,
			SROScheduleNo:         strings.TrimSpace(req.SROScheduleNo),
			FEDPayable:            req.FEDPayable,
			Discount:              req.Discount,
			SaleType:              strings.TrimSpace(req.SaleType),
			SROItemSerialNo:       strings.TrimSpace(req.SROItemSerialNo),
			CreatedAt:             now,
		})
	}
	return items, nil
}

// explainRejected reloads an invoice whose conditional write matched no row and reports why.
func (s *Service) explainRejected(ctx context.Context, tenantID, invoiceID snowflake.ID) error {
	current, err := s.invoicerepo.FindByID(ctx, s.db, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if err := current.EnsureDraft(); err != nil {
		return err
	}
	return invoicedomain.ErrSubmissionInProgress
}

// ensureSettled rejects edits while a submission holds the draft or a gateway call made for it
// was never settled. The gateway may already hold such a document; Recover moves it to UNKNOWN.
func (s *Service) ensureSettled(ctx context.Context, current *invoicedomain.Invoice, cutoff time.Time) error {
	if current.ClaimLive(cutoff) {
		return invoicedomain.ErrSubmissionInProgress
	}
	latest, err := s.auditsvc.Latest(ctx, nil, current.ID)
	if err != nil {
		return err
	}
	if latest != nil && latest.InFlight() {
		return invoicedomain.ErrSubmissionInProgress
	}
	return nil
}

func (s *Service) claimCutoff(now time.Time) time.Time {
	return now.Add(-s.gateway.Get().Lease())
}

func (s *Service) tenantIDFromContext(ctx context.Context) (snowflake.ID, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return 0, invoicedomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, invoicedomain.ErrNotFound
	}
	return parsed, nil
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errors.Join(invoicedomain.ErrInvalidInvoiceDate, err)
	}
	return parsed.UTC(), nil
}
