package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncateSummary(t *testing.T) {
	assert.Equal(t, "ok", TruncateSummary("ok"))

	long := strings.Repeat("é", MaxResponseSummary+10)
	got := TruncateSummary(long)
	assert.Equal(t, MaxResponseSummary, len([]rune(got)))
}

func TestInFlight(t *testing.T) {
	now := time.Now()
	assert.True(t, SubmissionAttempt{}.InFlight())
	assert.False(t, SubmissionAttempt{FinalizedAt: &now}.InFlight())
}
