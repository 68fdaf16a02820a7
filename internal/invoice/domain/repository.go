package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ListFilter struct {
	TenantID     snowflake.ID
	Status       InvoiceStatus
	DocumentType DocumentType
	Offset       int
	Limit        int
}

// Transition describes the single move of an invoice out of DRAFT.
type Transition struct {
	TenantID             snowflake.ID
	InvoiceID            snowflake.ID
	To                   InvoiceStatus
	At                   time.Time
	GatewayInvoiceNumber *string
	GatewayResponse      datatypes.JSON
}

// StaleClaim identifies a draft whose submission claim outlived its lease.
type StaleClaim struct {
	TenantID  snowflake.ID
	InvoiceID snowflake.ID
	ClaimedAt time.Time
}

// Repository stores invoices. Every read returns invoices with items loaded in position order.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Invoice, error)
	FindByRefNo(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, refNo string) (*Invoice, error)
	FindSubmittedSale(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, refNo string) (*Invoice, error)
	FindLastSubmitted(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invoice, int64, error)

	// UpdateDraft rewrites fields and replaces items when the invoice is still an unclaimed draft.
	UpdateDraft(ctx context.Context, db *gorm.DB, invoice *Invoice, claimCutoff time.Time) (bool, error)
	// DeleteDraft removes an unclaimed draft and its items.
	DeleteDraft(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, claimCutoff time.Time) (bool, error)

	// Claim marks a draft as being submitted. Claims older than claimCutoff are treated as abandoned.
	Claim(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, now, claimCutoff time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) error
	// ListStaleClaims returns drafts of every tenant claimed before claimCutoff, oldest first.
	ListStaleClaims(ctx context.Context, db *gorm.DB, claimCutoff time.Time, limit int) ([]StaleClaim, error)
	// Transition moves a draft to a terminal status and clears its claim.
	Transition(ctx context.Context, db *gorm.DB, t Transition) (bool, error)
}
