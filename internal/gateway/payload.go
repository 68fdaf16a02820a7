// Package gateway talks to the tax authority's invoice gateway.
package gateway

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	tenantdomain "github.com/smallbiznis/taxgate/internal/tenant/domain"
)

const (
	InvoiceTypeSale   = "Sale Invoice"
	InvoiceTypeDebit  = "Debit Note"
	InvoiceTypeCredit = "Credit Note"
)

// GatewayInvoiceDocument is the JSON document posted to the gateway.
type GatewayInvoiceDocument struct {
	InvoiceType           string               `json:"invoiceType"`
	InvoiceDate           string               `json:"invoiceDate"`
	SellerNTNCNIC         string               `json:"sellerNTNCNIC"`
	SellerBusinessName    string               `json:"sellerBusinessName"`
	SellerProvince        string               `json:"sellerProvince"`
	SellerAddress         string               `json:"sellerAddress"`
	BuyerNTNCNIC          string               `json:"buyerNTNCNIC"`
	BuyerBusinessName     string               `json:"buyerBusinessName"`
	BuyerProvince         string               `json:"buyerProvince"`
	BuyerAddress          string               `json:"buyerAddress"`
	BuyerRegistrationType string               `json:"buyerRegistrationType"`
	InvoiceRefNo          string               `json:"invoiceRefNo,omitempty"`
	ScenarioID            string               `json:"scenarioId"`
	Items                 []GatewayInvoiceItem `json:"items"`
}

type GatewayInvoiceItem struct {
	HSCode                          string  `json:"hsCode"`
	ProductDescription              string  `json:"productDescription"`
	Rate                            string  `json:"rate"`
	UOM                             string  `json:"uoM"`
	Quantity                        float64 `json:"quantity"`
	TotalValues                     float64 `json:"totalValues"`
	ValueSalesExcludingST           float64 `json:"valueSalesExcludingST"`
	FixedNotifiedValueOrRetailPrice float64 `json:"fixedNotifiedValueOrRetailPrice"`
	SalesTaxApplicable              float64 `json:"salesTaxApplicable"`
	SalesTaxWithheldAtSource        float64 `json:"salesTaxWithheldAtSource"`
	ExtraTax                        string  `json:"extraTax"`
	FurtherTax                      float64 `json:"furtherTax"`
	SROScheduleNo                   string  `json:"sroScheduleNo"`
	FEDPayable                      float64 `json:"fedPayable"`
	Discount                        float64 `json:"discount"`
	SaleType                        string  `json:"saleType"`
	SROItemSerialNo                 string  `json:"sroItemSerialNo"`
}

// BuildPayload maps a stored invoice onto the gateway document. referenced is the sale a
// debit or credit note points at and may be nil for sales.
func BuildPayload(invoice invoicedomain.Invoice, seller tenantdomain.Tenant, referenced *invoicedomain.Invoice) GatewayInvoiceDocument {
	doc := GatewayInvoiceDocument{
		InvoiceType:           invoiceType(invoice.DocumentType),
		InvoiceDate:           invoice.InvoiceDate.UTC().Format("2006-01-02"),
		SellerNTNCNIC:         seller.SellerNTN,
		SellerBusinessName:    seller.BusinessName,
		SellerProvince:        seller.Province,
		SellerAddress:         seller.Address,
		BuyerNTNCNIC:          invoice.BuyerNTNCNIC,
		BuyerBusinessName:     invoice.BuyerBusinessName,
		BuyerProvince:         invoice.BuyerProvince,
		BuyerAddress:          invoice.BuyerAddress,
		BuyerRegistrationType: string(invoice.BuyerRegistrationType),
		ScenarioID:            invoice.ScenarioID,
		Items: lo.Map(invoice.Items, func(item invoicedomain.InvoiceItem, _ int) GatewayInvoiceItem {
			return GatewayInvoiceItem{
				HSCode:                          item.HSCode,
				ProductDescription:              item.ProductDescription,
				Rate:                            item.Rate,
				UOM:                             item.UOM,
				Quantity:                        amount(item.Quantity),
				TotalValues:                     amount(item.TotalValues),
				ValueSalesExcludingST:           amount(item.ValueSalesExcludingST),
				FixedNotifiedValueOrRetailPrice: amount(item.FixedNotifiedValue),
				SalesTaxApplicable:              amount(item.SalesTaxApplicable),
				SalesTaxWithheldAtSource:        amount(item.SalesTaxWithheld),
				ExtraTax:                        item.ExtraTax,
				FurtherTax:                      amount(item.FurtherTax),
				SROScheduleNo:                   item.SROScheduleNo,
				FEDPayable:                      amount(item.FEDPayable),
				Discount:                        amount(item.Discount),
				SaleType:                        item.SaleType,
				SROItemSerialNo:                 item.SROItemSerialNo,
			}
		}),
	}

	if invoice.DocumentType == invoicedomain.DocumentTypeDebit && referenced != nil {
		doc.InvoiceRefNo = referenced.InvoiceRefNo
		if referenced.GatewayInvoiceNumber != nil && strings.TrimSpace(*referenced.GatewayInvoiceNumber) != "" {
			doc.InvoiceRefNo = *referenced.GatewayInvoiceNumber
		}
	}
	return doc
}

func invoiceType(t invoicedomain.DocumentType) string {
	switch t {
	case invoicedomain.DocumentTypeDebit:
		return InvoiceTypeDebit
	case invoicedomain.DocumentTypeCredit:
		return InvoiceTypeCredit
	default:
		return InvoiceTypeSale
	}
}

func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
