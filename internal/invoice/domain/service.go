package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxgate/pkg/db/pagination"
)

type ItemRequest struct {
	HSCode                string          `json:"hs_code" validate:"required,max=20"`
	ProductDescription    string          `json:"product_description" validate:"required,max=500"`
	Rate                  string          `json:"rate" validate:"required,max=20"`
	UOM                   string          `json:"uom" validate:"required,max=50"`
	Quantity              decimal.Decimal `json:"quantity"`
	TotalValues           decimal.Decimal `json:"total_values"`
	ValueSalesExcludingST decimal.Decimal `json:"value_sales_excluding_st"`
	FixedNotifiedValue    decimal.Decimal `json:"fixed_notified_value"`
	SalesTaxApplicable    decimal.Decimal `json:"sales_tax_applicable"`
	SalesTaxWithheld      decimal.Decimal `json:"sales_tax_withheld"`
	ExtraTax              string          `json:"extra_tax" validate:"max=20"`
	FurtherTax            decimal.Decimal `json:"further_tax"`
	SROScheduleNo         string          `json:"sro_schedule_no" validate:"max=50"`
	FEDPayable            decimal.Decimal `json:"fed_payable"`
	Discount              decimal.Decimal `json:"discount"`
	SaleType              string          `json:"sale_type" validate:"required,max=100"`
	SROItemSerialNo       string          `json:"sro_item_serial_no" validate:"max=50"`
}

type CreateInvoiceRequest struct {
	InvoiceRefNo           string        `json:"invoice_ref_no" validate:"required,max=50"`
	DocumentType           DocumentType  `json:"document_type" validate:"required,oneof=SALE DEBIT CREDIT"`
	InvoiceDate            string        `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	BuyerNTNCNIC           string        `json:"buyer_ntn_cnic" validate:"required,min=7,max=13"`
	BuyerBusinessName      string        `json:"buyer_business_name" validate:"required,max=255"`
	BuyerProvince          string        `json:"buyer_province" validate:"required,max=50"`
	BuyerAddress           string        `json:"buyer_address" validate:"required,max=500"`
	BuyerRegistrationType  string        `json:"buyer_registration_type" validate:"required,oneof=Registered Unregistered"`
	ScenarioID             string        `json:"scenario_id" validate:"omitempty,max=10"`
	ReferencedInvoiceRefNo string        `json:"referenced_invoice_ref_no" validate:"omitempty,max=50"`
	Items                  []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateInvoiceRequest changes only the fields that are set. A non-nil Items replaces every line.
type UpdateInvoiceRequest struct {
	InvoiceRefNo           *string       `json:"invoice_ref_no" validate:"omitempty,max=50"`
	DocumentType           *DocumentType `json:"document_type" validate:"omitempty,oneof=SALE DEBIT CREDIT"`
	InvoiceDate            *string       `json:"invoice_date" validate:"omitempty,datetime=2006-01-02"`
	BuyerNTNCNIC           *string       `json:"buyer_ntn_cnic" validate:"omitempty,min=7,max=13"`
	BuyerBusinessName      *string       `json:"buyer_business_name" validate:"omitempty,max=255"`
	BuyerProvince          *string       `json:"buyer_province" validate:"omitempty,max=50"`
	BuyerAddress           *string       `json:"buyer_address" validate:"omitempty,max=500"`
	BuyerRegistrationType  *string       `json:"buyer_registration_type" validate:"omitempty,oneof=Registered Unregistered"`
	ScenarioID             *string       `json:"scenario_id" validate:"omitempty,max=10"`
	ReferencedInvoiceRefNo *string       `json:"referenced_invoice_ref_no" validate:"omitempty,max=50"`
	Items                  []ItemRequest `json:"items" validate:"omitempty,min=1,dive"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status       string `form:"status"`
	DocumentType string `form:"document_type"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
}
