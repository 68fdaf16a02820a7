package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/taxgate/internal/audit/domain"
	"github.com/smallbiznis/taxgate/internal/audit/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  auditdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.SubmissionAttempt{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return &fixture{
		db:   db,
		node: node,
		svc: NewService(Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Repo:  repository.Provide(),
		}),
	}
}

var base = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func TestBeginNumbersAttemptsSequentially(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, invoiceID, otherID := f.node.Generate(), f.node.Generate(), f.node.Generate()

	for i := 1; i <= 3; i++ {
		attempt, err := f.svc.Begin(ctx, nil, auditdomain.BeginRequest{
			TenantID:    tenantID,
			InvoiceID:   invoiceID,
			Endpoint:    "https://gateway.test/submit",
			AttemptedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		assert.Equal(t, i, attempt.AttemptNumber)
		assert.Equal(t, auditdomain.OutcomeUnknown, attempt.Outcome)
		assert.NotEmpty(t, attempt.DiagnosticID)
		assert.True(t, attempt.InFlight())
	}

	other, err := f.svc.Begin(ctx, nil, auditdomain.BeginRequest{TenantID: tenantID, InvoiceID: otherID, AttemptedAt: base})
	require.NoError(t, err)
	assert.Equal(t, 1, other.AttemptNumber)

	attempts, err := f.svc.List(ctx, tenantID, invoiceID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for i, attempt := range attempts {
		assert.Equal(t, i+1, attempt.AttemptNumber)
	}
}

func TestBeginRejectsMissingIDs(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Begin(context.Background(), nil, auditdomain.BeginRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAttempt)
}

func TestFinalizeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, invoiceID := f.node.Generate(), f.node.Generate()

	attempt, err := f.svc.Begin(ctx, nil, auditdomain.BeginRequest{TenantID: tenantID, InvoiceID: invoiceID, AttemptedAt: base})
	require.NoError(t, err)

	status := 200
	latency := 150 * time.Millisecond
	require.NoError(t, f.svc.Finalize(ctx, nil, attempt.ID, auditdomain.Result{
		Outcome:         auditdomain.OutcomeSuccess,
		HTTPStatus:      &status,
		ResponseSummary: strings.Repeat("x", auditdomain.MaxResponseSummary+50),
		ResponseTime:    &latency,
		FinalizedAt:     base.Add(time.Second),
	}))

	err = f.svc.Finalize(ctx, nil, attempt.ID, auditdomain.Result{Outcome: auditdomain.OutcomeTimeout, FinalizedAt: base})
	assert.ErrorIs(t, err, auditdomain.ErrAttemptFinalized)

	latest, err := f.svc.Latest(ctx, nil, invoiceID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, auditdomain.OutcomeSuccess, latest.Outcome)
	require.NotNil(t, latest.HTTPStatus)
	assert.Equal(t, 200, *latest.HTTPStatus)
	require.NotNil(t, latest.ResponseTimeMs)
	assert.Equal(t, int64(150), *latest.ResponseTimeMs)
	require.NotNil(t, latest.ResponseSummary)
	assert.Len(t, *latest.ResponseSummary, auditdomain.MaxResponseSummary)
	assert.False(t, latest.InFlight())
}

func TestLatestWithoutAttempts(t *testing.T) {
	f := newFixture(t)

	latest, err := f.svc.Latest(context.Background(), nil, f.node.Generate())
	require.NoError(t, err)
	assert.Nil(t, latest)

	attempts, err := f.svc.List(context.Background(), f.node.Generate(), f.node.Generate())
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestListScopedToTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, invoiceID := f.node.Generate(), f.node.Generate()

	_, err := f.svc.Begin(ctx, nil, auditdomain.BeginRequest{TenantID: tenantID, InvoiceID: invoiceID, AttemptedAt: base})
	require.NoError(t, err)

	attempts, err := f.svc.List(ctx, f.node.Generate(), invoiceID)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}
