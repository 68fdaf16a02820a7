package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxgate/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, attempt *domain.SubmissionAttempt) error {
	if attempt == nil {
		return nil
	}
	return db.WithContext(ctx).Create(attempt).Error
}

func (r *repo) MaxAttemptNumber(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int, error) {
	var max int
	err := db.WithContext(ctx).Model(&domain.SubmissionAttempt{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *repo) Finalize(ctx context.Context, db *gorm.DB, id snowflake.ID, result domain.Result) (bool, error) {
	updates := map[string]any{
		"outcome":      result.Outcome,
		"http_status":  result.HTTPStatus,
		"finalized_at": result.FinalizedAt.UTC(),
	}
	if code := strings.TrimSpace(result.ErrorCode); code != "" {
		updates["error_code"] = code
	}
	if summary := domain.TruncateSummary(result.ResponseSummary); summary != "" {
		updates["response_summary"] = summary
	}
	if result.ResponseTime != nil {
		updates["response_time_ms"] = result.ResponseTime.Milliseconds()
	}

	res := db.WithContext(ctx).Model(&domain.SubmissionAttempt{}).
		Where("id = ? AND finalized_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID, invoiceID snowflake.ID) ([]domain.SubmissionAttempt, error) {
	var attempts []domain.SubmissionAttempt
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("attempt_number asc").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *repo) Latest(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*domain.SubmissionAttempt, error) {
	var attempt domain.SubmissionAttempt
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("attempt_number desc").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
