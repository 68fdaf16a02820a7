// Package domain contains persistence models and lifecycle rules for tax invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSubmitted InvoiceStatus = "SUBMITTED"
	InvoiceStatusFailed    InvoiceStatus = "FAILED"
	InvoiceStatusUnknown   InvoiceStatus = "UNKNOWN"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSubmitted, InvoiceStatusFailed, InvoiceStatusUnknown:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s InvoiceStatus) Terminal() bool {
	switch s {
	case InvoiceStatusSubmitted, InvoiceStatusFailed, InvoiceStatusUnknown:
		return true
	default:
		return false
	}
}

// BlocksReference reports whether a reference number held by an invoice in s can never be reused.
func (s InvoiceStatus) BlocksReference() bool {
	return s == InvoiceStatusSubmitted || s == InvoiceStatusUnknown
}

// CanTransition reports whether the lifecycle permits from -> to.
// Only DRAFT has outgoing edges, and every edge leads to a terminal status.
func CanTransition(from, to InvoiceStatus) bool {
	return from == InvoiceStatusDraft && to.Terminal()
}

// DocumentType is the kind of tax document.
type DocumentType string

const (
	DocumentTypeSale   DocumentType = "SALE"
	DocumentTypeDebit  DocumentType = "DEBIT"
	DocumentTypeCredit DocumentType = "CREDIT"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeSale, DocumentTypeDebit, DocumentTypeCredit:
		return true
	default:
		return false
	}
}

// RequiresReference reports whether the document must point at a submitted sale invoice.
func (t DocumentType) RequiresReference() bool {
	return t == DocumentTypeDebit || t == DocumentTypeCredit
}

// RegistrationType is the buyer's tax registration state.
type RegistrationType string

const (
	RegistrationRegistered   RegistrationType = "Registered"
	RegistrationUnregistered RegistrationType = "Unregistered"
)

const DefaultScenarioID = "SN000"

// Invoice is a tax document owned by one tenant.
type Invoice struct {
	ID                    snowflake.ID     `gorm:"primaryKey" json:"id"`
	TenantID              snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_invoices_tenant_ref,priority:1" json:"tenant_id"`
	InvoiceRefNo          string           `gorm:"type:varchar(50);not null;uniqueIndex:ux_invoices_tenant_ref,priority:2" json:"invoice_ref_no"`
	DocumentType          DocumentType     `gorm:"type:varchar(16);not null" json:"document_type"`
	Status                InvoiceStatus    `gorm:"type:varchar(16);not null;default:'DRAFT';index" json:"status"`
	InvoiceDate           time.Time        `gorm:"not null" json:"invoice_date"`
	BuyerNTNCNIC          string           `gorm:"column:buyer_ntn_cnic;type:varchar(32);not null" json:"buyer_ntn_cnic"`
	BuyerBusinessName     string           `gorm:"type:text;not null" json:"buyer_business_name"`
	BuyerProvince         string           `gorm:"type:text;not null" json:"buyer_province"`
	BuyerAddress          string           `gorm:"type:text;not null" json:"buyer_address"`
	BuyerRegistrationType RegistrationType `gorm:"type:varchar(16);not null" json:"buyer_registration_type"`
	ScenarioID            string           `gorm:"type:varchar(16);not null;default:'SN000'" json:"scenario_id"`
	ReferencedInvoiceID   *snowflake.ID    `gorm:"index" json:"referenced_invoice_id,omitempty"`
	SubmittedAt           *time.Time       `json:"submitted_at,omitempty"`
	GatewayInvoiceNumber  *string          `gorm:"type:text" json:"gateway_invoice_number,omitempty"`
	GatewayResponse       datatypes.JSON   `json:"gateway_response,omitempty"`
	SubmissionClaimedAt   *time.Time       `json:"-"`
	CreatedAt             time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// EnsureDraft rejects any mutation or submission of a non-draft invoice.
func (i Invoice) EnsureDraft() error {
	if i.Status != InvoiceStatusDraft {
		return &NotDraftError{InvoiceID: i.ID, Status: i.Status}
	}
	return nil
}

// ClaimLive reports whether a submission claim taken at or after cutoff is still held.
func (i Invoice) ClaimLive(cutoff time.Time) bool {
	return i.SubmissionClaimedAt != nil && !i.SubmissionClaimedAt.Before(cutoff)
}

// InvoiceItem represents a line on an invoice.
type InvoiceItem struct {
	ID                    snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID             snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Position              int             `gorm:"not null" json:"position"`
	HSCode                string          `gorm:"type:text;not null" json:"hs_code"`
	ProductDescription    string          `gorm:"type:text;not null" json:"product_description"`
	Rate                  string          `gorm:"type:text;not null" json:"rate"`
	UOM                   string          `gorm:"type:text;not null" json:"uom"`
	Quantity              decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"quantity"`
	TotalValues           decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_values"`
	ValueSalesExcludingST decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"value_sales_excluding_st"`
	FixedNotifiedValue    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"fixed_notified_value"`
	SalesTaxApplicable    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"sales_tax_applicable"`
	SalesTaxWithheld      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"sales_tax_withheld"`
	ExtraTax              string          `gorm:"type:varchar(64);not null;default:''" json:"extra_tax"`
	FurtherTax            decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"further_tax"`
	SROScheduleNo         string          `gorm:"type:varchar(128);not null;default:''" json:"sro_schedule_no"`
	FEDPayable            decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"fed_payable"`
	Discount              decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"discount"`
	SaleType              string          `gorm:"type:text;not null" json:"sale_type"`
	SROItemSerialNo       string          `gorm:"type:varchar(128);not null;default:''" json:"sro_item_serial_no"`
	CreatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
