package zatca_test

import (
	"github.com/shopspring/decimal"

	"einvoice/pkg/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sampleInvoice is the single-line cash sale used across the codec tests.
func sampleInvoice() *models.Invoice {
	return &models.Invoice{
		Number: "INV-0001",
		UUID:   "8e6000cf-1a98-4174-b3e7-b5d5954bc10d",
		Type:   models.InvoiceTypeStandard,
		Seller: models.Seller{
			LegalName: "Acme Factory",
			VATNumber: "300000000000003",
			CRNumber:  "1010010000",
			Address: models.Address{
				Street:         "King Fahd Road",
				BuildingNumber: "1234",
				District:       "Al Olaya",
				City:           "Riyadh",
				PostalCode:     "12211",
				Country:        "SA",
			},
		},
		Buyer:       models.Buyer{Name: "Cash Customer"},
		Subtotal:    dec("100.00"),
		VATAmount:   dec("15.00"),
		TotalAmount: dec("115.00"),
		Currency:    "SAR",
		IssueDate:   "2024-01-15T10:30:00Z",
		Items: []models.LineItem{
			{
				Description: "Item A",
				Quantity:    dec("2"),
				UnitPrice:   dec("50"),
				NetAmount:   dec("100"),
				VATRate:     dec("0.15"),
				VATAmount:   dec("15"),
				TotalAmount: dec("115"),
			},
		},
	}
}
