package domain

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound                  = errors.New("invoice_not_found")
	ErrNotDraft                  = errors.New("invoice_not_draft")
	ErrSubmissionInProgress      = errors.New("submission_in_progress")
	ErrReferencedInvoiceNotFound = errors.New("referenced_invoice_not_found")
	ErrInvalidTenant             = errors.New("invalid_tenant")
	ErrInvalidDocumentType       = errors.New("invalid_document_type")
	ErrInvalidStatus             = errors.New("invalid_status")
	ErrInvalidInvoiceDate        = errors.New("invalid_invoice_date")
	ErrInvalidItems              = errors.New("invalid_items")
	ErrInvalidReferencedInvoice  = errors.New("invalid_referenced_invoice")
	ErrReferencedInvoiceRequired = errors.New("invalid_referenced_invoice_ref_no")
	ErrInvalidRegistrationType   = errors.New("invalid_buyer_registration_type")
	ErrInvalidInvoiceRefNo       = errors.New("invalid_invoice_ref_no")
	ErrGatewayValidationDisabled = errors.New("gateway_validation_not_configured")
)

// NotDraftError reports the status that blocked a draft-only operation.
type NotDraftError struct {
	InvoiceID snowflake.ID
	Status    InvoiceStatus
}

func (e *NotDraftError) Error() string {
	return fmt.Sprintf("invoice %s is %s; only DRAFT invoices can be changed", e.InvoiceID, e.Status)
}

func (e *NotDraftError) Is(target error) bool {
	return target == ErrNotDraft
}
