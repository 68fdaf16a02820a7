package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type BeginRequest struct {
	TenantID    snowflake.ID
	InvoiceID   snowflake.ID
	Endpoint    string
	AttemptedAt time.Time
}

// Service records submission attempts. A nil tx runs against the service's own connection.
type Service interface {
	Begin(ctx context.Context, tx *gorm.DB, req BeginRequest) (SubmissionAttempt, error)
	Finalize(ctx context.Context, tx *gorm.DB, id snowflake.ID, result Result) error
	List(ctx context.Context, tenantID, invoiceID snowflake.ID) ([]SubmissionAttempt, error)
	Latest(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (*SubmissionAttempt, error)
}

var (
	ErrAttemptFinalized = errors.New("attempt_already_finalized")
	ErrInvalidAttempt   = errors.New("invalid_attempt")
)
