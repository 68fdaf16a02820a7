package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository exposes no update or delete beyond finalizing an in-flight attempt.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, attempt *SubmissionAttempt) error
	MaxAttemptNumber(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int, error)
	// Finalize reports false when the attempt is missing or already finalized.
	Finalize(ctx context.Context, db *gorm.DB, id snowflake.ID, result Result) (bool, error)
	List(ctx context.Context, db *gorm.DB, tenantID, invoiceID snowflake.ID) ([]SubmissionAttempt, error)
	Latest(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*SubmissionAttempt, error)
}
