package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	tenantdomain "github.com/smallbiznis/taxgate/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoice(docType invoicedomain.DocumentType) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		InvoiceRefNo:          "INV-0001",
		DocumentType:          docType,
		Status:                invoicedomain.InvoiceStatusDraft,
		InvoiceDate:           time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		BuyerNTNCNIC:          "1234567",
		BuyerBusinessName:     "Buyer Traders",
		BuyerProvince:         "Sindh",
		BuyerAddress:          "Karachi",
		BuyerRegistrationType: invoicedomain.RegistrationRegistered,
		ScenarioID:            invoicedomain.DefaultScenarioID,
		Items: []invoicedomain.InvoiceItem{{
			Position:              1,
			HSCode:                "0101.2100",
			ProductDescription:    "widget",
			Rate:                  "18%",
			UOM:                   "Numbers, pieces, units",
			Quantity:              decimal.RequireFromString("2.5"),
			TotalValues:           decimal.RequireFromString("1180.00"),
			ValueSalesExcludingST: decimal.RequireFromString("1000.00"),
			SalesTaxApplicable:    decimal.RequireFromString("180.00"),
			SaleType:              "Goods at standard rate (default)",
		}},
	}
}

var testSeller = tenantdomain.Tenant{
	SellerNTN:    "7654321",
	BusinessName: "Seller Ltd",
	Province:     "Punjab",
	Address:      "Lahore",
}

func TestBuildPayloadSale(t *testing.T) {
	doc := BuildPayload(testInvoice(invoicedomain.DocumentTypeSale), testSeller, nil)

	assert.Equal(t, InvoiceTypeSale, doc.InvoiceType)
	assert.Equal(t, "2025-01-15", doc.InvoiceDate)
	assert.Equal(t, "7654321", doc.SellerNTNCNIC)
	assert.Equal(t, "Registered", doc.BuyerRegistrationType)
	assert.Empty(t, doc.InvoiceRefNo)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, 2.5, doc.Items[0].Quantity)
	assert.Equal(t, 180.0, doc.Items[0].SalesTaxApplicable)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Contains(t, fields, "sellerNTNCNIC")
	assert.Contains(t, fields, "scenarioId")
	assert.NotContains(t, fields, "invoiceRefNo")
	item := fields["items"].([]any)[0].(map[string]any)
	assert.Contains(t, item, "uoM")
	assert.Contains(t, item, "fixedNotifiedValueOrRetailPrice")
	assert.Contains(t, item, "salesTaxWithheldAtSource")
}

func TestBuildPayloadDebitNoteReference(t *testing.T) {
	sale := testInvoice(invoicedomain.DocumentTypeSale)
	sale.InvoiceRefNo = "INV-0001"

	doc := BuildPayload(testInvoice(invoicedomain.DocumentTypeDebit), testSeller, &sale)
	assert.Equal(t, InvoiceTypeDebit, doc.InvoiceType)
	assert.Equal(t, "INV-0001", doc.InvoiceRefNo)

	number := "7654321DI1736931600000"
	sale.GatewayInvoiceNumber = &number
	doc = BuildPayload(testInvoice(invoicedomain.DocumentTypeDebit), testSeller, &sale)
	assert.Equal(t, number, doc.InvoiceRefNo)

	doc = BuildPayload(testInvoice(invoicedomain.DocumentTypeCredit), testSeller, &sale)
	assert.Equal(t, InvoiceTypeCredit, doc.InvoiceType)
	assert.Empty(t, doc.InvoiceRefNo)
}
