package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
)

var (
	ErrRefExists     = errors.New("invoice_ref_no_exists")
	ErrRefBlocked    = errors.New("invoice_ref_no_blocked")
	ErrInvalidFormat = errors.New("invalid_invoice_ref_no")
)

// RefConflictError carries the status of the invoice already holding a reference.
type RefConflictError struct {
	RefNo  string
	Status invoicedomain.InvoiceStatus
}

func (e *RefConflictError) Error() string {
	if e.Status.BlocksReference() {
		return fmt.Sprintf("invoice reference %q is blocked (status %s)", e.RefNo, e.Status)
	}
	return fmt.Sprintf("invoice reference %q already exists with status %s", e.RefNo, e.Status)
}

func (e *RefConflictError) Is(target error) bool {
	if e.Status.BlocksReference() {
		return target == ErrRefBlocked
	}
	return target == ErrRefExists
}

type Suggestion struct {
	SuggestedRefNo *string `json:"suggested_ref_no"`
	LastRefNo      *string `json:"last_ref_no"`
}

type Service interface {
	// CheckAvailability fails with ErrRefExists or ErrRefBlocked when refNo is held by another invoice.
	CheckAvailability(ctx context.Context, tenantID snowflake.ID, refNo string, excludeInvoiceID *snowflake.ID) error
	GetLastSubmitted(ctx context.Context, tenantID snowflake.ID) (*invoicedomain.Invoice, error)
	Suggest(ctx context.Context, tenantID snowflake.ID) (Suggestion, error)
}
