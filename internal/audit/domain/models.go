// Package domain holds the append-only ledger of gateway submission attempts.
package domain

import (
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
)

// Outcome is the recorded result of one gateway call.
type Outcome string

const (
	OutcomeSuccess         Outcome = "SUCCESS"
	OutcomeValidationError Outcome = "VALIDATION_ERROR"
	OutcomeAuthError       Outcome = "AUTH_ERROR"
	OutcomeTimeout         Outcome = "TIMEOUT"
	OutcomeNetworkError    Outcome = "NETWORK_ERROR"
	OutcomeUnknown         Outcome = "UNKNOWN"
)

const MaxResponseSummary = 1000

// SubmissionAttempt is written before the gateway call and finalized once the call returns.
// A nil FinalizedAt marks a call still in flight.
type SubmissionAttempt struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID        snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	InvoiceID       snowflake.ID `gorm:"not null;uniqueIndex:ux_submission_attempts_number,priority:1" json:"invoice_id"`
	AttemptNumber   int          `gorm:"not null;uniqueIndex:ux_submission_attempts_number,priority:2" json:"attempt_number"`
	AttemptedAt     time.Time    `gorm:"not null" json:"attempted_at"`
	Endpoint        string       `gorm:"type:text;not null" json:"endpoint"`
	HTTPStatus      *int         `json:"http_status,omitempty"`
	Outcome         Outcome      `gorm:"type:text;not null" json:"outcome"`
	ErrorCode       *string      `gorm:"type:text" json:"error_code,omitempty"`
	DiagnosticID    string       `gorm:"type:text;not null" json:"diagnostic_id"`
	ResponseSummary *string      `gorm:"type:text" json:"response_summary,omitempty"`
	ResponseTimeMs  *int64       `json:"response_time_ms,omitempty"`
	FinalizedAt     *time.Time   `json:"finalized_at,omitempty"`
}

// TableName sets the database table name.
func (SubmissionAttempt) TableName() string { return "submission_attempts" }

func (a SubmissionAttempt) InFlight() bool {
	return a.FinalizedAt == nil
}

// Result is what a finished gateway call contributes to its attempt row.
type Result struct {
	Outcome         Outcome
	HTTPStatus      *int
	ErrorCode       string
	ResponseSummary string
	ResponseTime    *time.Duration
	FinalizedAt     time.Time
}

// TruncateSummary cuts s to MaxResponseSummary runes.
func TruncateSummary(s string) string {
	if utf8.RuneCountInString(s) <= MaxResponseSummary {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxResponseSummary])
}
