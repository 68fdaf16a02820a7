package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxgate/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position asc")
	})
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if invoice == nil {
		return nil
	}
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := withItems(db.WithContext(ctx)).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByRefNo(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, refNo string) (*domain.Invoice, error) {
	return r.findOne(ctx, db, "tenant_id = ? AND invoice_ref_no = ?", tenantID, strings.TrimSpace(refNo))
}

func (r *repo) FindSubmittedSale(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, refNo string) (*domain.Invoice, error) {
	return r.findOne(ctx, db,
		"tenant_id = ? AND invoice_ref_no = ? AND document_type = ? AND status = ?",
		tenantID, strings.TrimSpace(refNo), domain.DocumentTypeSale, domain.InvoiceStatusSubmitted,
	)
}

func (r *repo) FindLastSubmitted(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*domain.Invoice, error) {
	var invoices []domain.Invoice
	err := withItems(db.WithContext(ctx)).
		Where("tenant_id = ? AND status = ?", tenantID, domain.InvoiceStatusSubmitted).
		Order("submitted_at desc, id desc").
		Limit(1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Invoice, error) {
	var invoices []domain.Invoice
	if err := withItems(db.WithContext(ctx)).Where(query, args...).Limit(1).Find(&invoices).Error; err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Invoice, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{}).Where("tenant_id = ?", filter.TenantID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.DocumentType != "" {
		stmt = stmt.Where("document_type = ?", filter.DocumentType)
	}

	var total int64
	if err := stmt.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []domain.Invoice
	query := withItems(stmt.Session(&gorm.Session{})).Order("created_at desc, id desc")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *repo) UpdateDraft(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, claimCutoff time.Time) (bool, error) {
	if invoice == nil {
		return false, nil
	}
	updated := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Invoice{}).
			Where("id = ? AND tenant_id = ? AND status = ?", invoice.ID, invoice.TenantID, domain.InvoiceStatusDraft).
			Where("(submission_claimed_at IS NULL OR submission_claimed_at < ?)", claimCutoff).
			Updates(map[string]any{
				"invoice_ref_no":          invoice.InvoiceRefNo,
				"document_type":           invoice.DocumentType,
				"invoice_date":            invoice.InvoiceDate,
				"buyer_ntn_cnic":          invoice.BuyerNTNCNIC,
				"buyer_business_name":     invoice.BuyerBusinessName,
				"buyer_province":          invoice.BuyerProvince,
				"buyer_address":           invoice.BuyerAddress,
				"buyer_registration_type": invoice.BuyerRegistrationType,
				"scenario_id":             invoice.ScenarioID,
				"referenced_invoice_id":   invoice.ReferencedInvoiceID,
				"updated_at":              invoice.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = true

		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&domain.InvoiceItem{}).Error; err != nil {
			return err
		}
		if len(invoice.Items) == 0 {
			return nil
		}
		return tx.Create(&invoice.Items).Error
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

func (r *repo) DeleteDraft(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, claimCutoff time.Time) (bool, error) {
	deleted := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, domain.InvoiceStatusDraft).
			Where("(submission_claimed_at IS NULL OR submission_claimed_at < ?)", claimCutoff).
			Delete(&domain.Invoice{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("invoice_id = ?", id).Delete(&domain.InvoiceItem{}).Error
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, now, claimCutoff time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, domain.InvoiceStatusDraft).
		Where("(submission_claimed_at IS NULL OR submission_claimed_at < ?)", claimCutoff).
		Updates(map[string]any{
			"submission_claimed_at": now,
			"updated_at":            now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ReleaseClaim(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error {
	return db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND tenant_id = ? AND status = ?", id, tenantID, domain.InvoiceStatusDraft).
		Update("submission_claimed_at", nil).Error
}

func (r *repo) ListStaleClaims(ctx context.Context, db *gorm.DB, claimCutoff time.Time, limit int) ([]domain.StaleClaim, error) {
	var rows []struct {
		ID                  snowflake.ID
		TenantID            snowflake.ID
		SubmissionClaimedAt time.Time
	}
	err := db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("id", "tenant_id", "submission_claimed_at").
		Where("status = ? AND submission_claimed_at IS NOT NULL AND submission_claimed_at < ?", domain.InvoiceStatusDraft, claimCutoff).
		Order("submission_claimed_at asc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.StaleClaim, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StaleClaim{
			TenantID:  row.TenantID,
			InvoiceID: row.ID,
			ClaimedAt: row.SubmissionClaimedAt,
		})
	}
	return out, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, t domain.Transition) (bool, error) {
	if !domain.CanTransition(domain.InvoiceStatusDraft, t.To) {
		return false, domain.ErrInvalidStatus
	}

	updates := map[string]any{
		"status":                t.To,
		"submission_claimed_at": nil,
		"updated_at":            t.At,
	}
	if t.To == domain.InvoiceStatusSubmitted {
		updates["submitted_at"] = t.At
	}
	if t.GatewayInvoiceNumber != nil {
		updates["gateway_invoice_number"] = *t.GatewayInvoiceNumber
	}
	if len(t.GatewayResponse) > 0 {
		updates["gateway_response"] = t.GatewayResponse
	}

	res := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND tenant_id = ? AND status = ?", t.InvoiceID, t.TenantID, domain.InvoiceStatusDraft).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
