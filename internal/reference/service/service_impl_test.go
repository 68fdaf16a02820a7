package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/taxgate/internal/invoice/repository"
	"github.com/smallbiznis/taxgate/internal/reference/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      domain.Service
	tenantID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}, &invoicedomain.InvoiceItem{}))

	node, _ := snowflake.NewNode(1)
	return &fixture{
		db:   db,
		node: node,
		svc: NewService(ServiceParam{
			DB:          db,
			Log:         zap.NewNop(),
			InvoiceRepo: invoicerepository.Provide(),
		}),
		tenantID: node.Generate(),
	}
}

func (f *fixture) insert(t *testing.T, refNo string, status invoicedomain.InvoiceStatus, submittedAt *time.Time) snowflake.ID {
	t.Helper()
	inv := invoicedomain.Invoice{
		ID:                    f.node.Generate(),
		TenantID:              f.tenantID,
		InvoiceRefNo:          refNo,
		DocumentType:          invoicedomain.DocumentTypeSale,
		Status:                status,
		InvoiceDate:           time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		BuyerNTNCNIC:          "1234567",
		BuyerBusinessName:     "Buyer",
		BuyerProvince:         "Punjab",
		BuyerAddress:          "Lahore",
		BuyerRegistrationType: invoicedomain.RegistrationRegistered,
		ScenarioID:            invoicedomain.DefaultScenarioID,
		SubmittedAt:           submittedAt,
	}
	require.NoError(t, f.db.Create(&inv).Error)
	return inv.ID
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draftID := f.insert(t, "INV-0001", invoicedomain.InvoiceStatusDraft, nil)
	f.insert(t, "INV-0002", invoicedomain.InvoiceStatusFailed, nil)
	f.insert(t, "INV-0003", invoicedomain.InvoiceStatusSubmitted, nil)
	f.insert(t, "INV-0004", invoicedomain.InvoiceStatusUnknown, nil)

	assert.NoError(t, f.svc.CheckAvailability(ctx, f.tenantID, "INV-0099", nil))
	assert.ErrorIs(t, f.svc.CheckAvailability(ctx, f.tenantID, "INV-0001", nil), domain.ErrRefExists)
	assert.ErrorIs(t, f.svc.CheckAvailability(ctx, f.tenantID, "INV-0002", nil), domain.ErrRefExists)
	assert.ErrorIs(t, f.svc.CheckAvailability(ctx, f.tenantID, "INV-0003", nil), domain.ErrRefBlocked)
	assert.ErrorIs(t, f.svc.CheckAvailability(ctx, f.tenantID, "INV-0004", nil), domain.ErrRefBlocked)
	assert.NoError(t, f.svc.CheckAvailability(ctx, f.tenantID, "INV-0001", &draftID))
	assert.ErrorIs(t, f.svc.CheckAvailability(ctx, f.tenantID, "bad ref", nil), domain.ErrInvalidFormat)

	assert.NoError(t, f.svc.CheckAvailability(ctx, f.node.Generate(), "INV-0003", nil), "other tenants do not conflict")

	var conflict *domain.RefConflictError
	err := f.svc.CheckAvailability(ctx, f.tenantID, "INV-0003", nil)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, invoicedomain.InvoiceStatusSubmitted, conflict.Status)
}

func TestSuggestUsesMostRecentSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.Suggest(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Nil(t, empty.SuggestedRefNo)
	assert.Nil(t, empty.LastRefNo)

	early := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)
	f.insert(t, "INV-0100", invoicedomain.InvoiceStatusSubmitted, &late)
	f.insert(t, "INV-0200", invoicedomain.InvoiceStatusSubmitted, &early)
	f.insert(t, "INV-0300", invoicedomain.InvoiceStatusDraft, nil)

	got, err := f.svc.Suggest(ctx, f.tenantID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRefNo)
	require.NotNil(t, got.SuggestedRefNo)
	assert.Equal(t, "INV-0100", *got.LastRefNo)
	assert.Equal(t, "INV-0101", *got.SuggestedRefNo)
}

func TestSuggestWithoutTrailingDigits(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	f.insert(t, "INV-A", invoicedomain.InvoiceStatusSubmitted, &at)

	got, err := f.svc.Suggest(context.Background(), f.tenantID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRefNo)
	assert.Equal(t, "INV-A", *got.LastRefNo)
	assert.Nil(t, got.SuggestedRefNo)
}
