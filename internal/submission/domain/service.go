package domain

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxgate/internal/gateway"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
)

// ValidationResult is the gateway's verdict on a document without registering it.
type ValidationResult struct {
	HTTPStatus int                      `json:"http_status"`
	Accepted   bool                     `json:"accepted"`
	ErrorCode  string                   `json:"error_code,omitempty"`
	Response   *gateway.GatewayResponse `json:"response,omitempty"`
	Raw        json.RawMessage          `json:"raw,omitempty"`
}

type Service interface {
	// Submit drives a draft to SUBMITTED, FAILED or UNKNOWN. Gateway outcomes are never errors.
	Submit(ctx context.Context, tenantID, invoiceID snowflake.ID) (invoicedomain.Invoice, error)
	Validate(ctx context.Context, tenantID, invoiceID snowflake.ID) (ValidationResult, error)
	// Recover settles a draft whose claim outlived its lease and returns the resulting status.
	// An attempt left in flight makes the invoice UNKNOWN; otherwise the claim is released.
	Recover(ctx context.Context, tenantID, invoiceID snowflake.ID) (invoicedomain.InvoiceStatus, error)
}
