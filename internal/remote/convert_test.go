package remote

import (
	"testing"
	"time"

	"github.com/njoerd114/possync/internal/model"
)

func TestItemToRecord_FirstVariantAndRounding(t *testing.T) {
	it := Item{
		ID:         "I1",
		ItemName:   "  Cola   Zero ",
		CategoryID: "C1",
		Color:      "red",
		UpdatedAt:  "2024-05-01T10:00:00.123Z",
		Variants: []Variant{
			{VariantID: "V1", SKU: "10001", DefaultPrice: "1.499", Cost: "0.8"},
			{VariantID: "V2", SKU: "10002", DefaultPrice: "9.99"},
		},
	}
	rec := ItemToRecord(it)

	if rec.Entity != model.EntityItems || rec.ID != "I1" {
		t.Fatalf("unexpected identity: %+v", rec)
	}
	if rec.Name != "Cola Zero" {
		t.Errorf("Name = %q, want whitespace collapsed", rec.Name)
	}
	if rec.Item.Price != 1.5 {
		t.Errorf("Price = %v, want 1.5", rec.Item.Price)
	}
	if rec.Item.Cost != 0.8 {
		t.Errorf("Cost = %v, want 0.8", rec.Item.Cost)
	}
	if rec.Item.SKU != "10001" {
		t.Errorf("SKU = %q, want first variant", rec.Item.SKU)
	}
	if rec.Item.Color != "RED" {
		t.Errorf("Color = %q, want RED", rec.Item.Color)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC)
	if !rec.ModifiedAt.Equal(want) {
		t.Errorf("ModifiedAt = %v, want %v", rec.ModifiedAt, want)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestItemToRecord_StockOnlyWhenPresent(t *testing.T) {
	rec := ItemToRecord(Item{ID: "I1", ItemName: "Cola"})
	if rec.Item.Stock != nil || rec.Item.InStock != nil {
		t.Errorf("stock should be absent, got %v / %v", rec.Item.Stock, rec.Item.InStock)
	}

	n := Amount("0")
	rec = ItemToRecord(Item{ID: "I2", ItemName: "Water", Stock: &n})
	if rec.Item.Stock == nil || *rec.Item.Stock != 0 {
		t.Fatalf("Stock = %v, want 0", rec.Item.Stock)
	}
	if rec.Item.InStock == nil || *rec.Item.InStock {
		t.Errorf("InStock = %v, want false", rec.Item.InStock)
	}
}

func TestDisplayName_Defaults(t *testing.T) {
	tests := []struct {
		name string
		rec  model.Record
		want string
	}{
		{"category", CategoryToRecord(Category{ID: "C9"}), "Unnamed Category C9"},
		{"customer", CustomerToRecord(Customer{ID: "U9", Name: "   "}), "Unnamed Customer U9"},
		{"item", ItemToRecord(Item{ID: "I9"}), "Unnamed Item I9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rec.Name != tt.want {
				t.Errorf("Name = %q, want %q", tt.rec.Name, tt.want)
			}
		})
	}
}

func TestNormalizeName_NFC(t *testing.T) {
	// "e" followed by a combining acute accent composes to "é".
	got := normalizeName("Cafe\u0301")
	if got != "Caf\u00e9" {
		t.Errorf("normalizeName = %q, want composed form", got)
	}
}

func TestCustomerToRecord(t *testing.T) {
	rec := CustomerToRecord(Customer{
		ID:          "U1",
		Name:        "Ann",
		Email:       " Ann@Example.COM ",
		PhoneNumber: "+1 555 0100",
		TotalVisits: 4,
		TotalSpent:  "120.456",
		TotalPoints: "12",
	})
	if rec.Customer.Email != "ann@example.com" {
		t.Errorf("Email = %q", rec.Customer.Email)
	}
	if rec.Customer.TotalSpent != 120.46 {
		t.Errorf("TotalSpent = %v, want 120.46", rec.Customer.TotalSpent)
	}
	if rec.Customer.Points != 12 || rec.Customer.TotalVisits != 4 {
		t.Errorf("loyalty = %+v", rec.Customer)
	}
}

func TestReceiptToRecord(t *testing.T) {
	cancelled := "2024-05-02T09:00:00Z"
	rec := ReceiptToRecord(Receipt{
		ReceiptNumber: "1-1002",
		ReceiptType:   "refund",
		TotalMoney:    "10",
		CreatedAt:     "2024-05-02T08:00:00Z",
		CancelledAt:   &cancelled,
		LineItems: []LineItem{{
			ItemID:     "I1",
			ItemName:   "Cola",
			Quantity:   "2",
			Price:      "5",
			TotalMoney: "10",
			LineTaxes:  []LineTax{{Rate: "5"}, {Rate: "2.5"}},
		}},
		Payments: []Payment{{PaymentTypeID: "P1", Name: "Cash", MoneyAmount: "10"}},
	})

	if rec.ID != "1-1002" || rec.Name != "Receipt 1-1002" {
		t.Errorf("identity = %q / %q", rec.ID, rec.Name)
	}
	if rec.Receipt.Type != ReceiptTypeRefund {
		t.Errorf("Type = %q, want REFUND", rec.Receipt.Type)
	}
	if rec.Receipt.CancelledAt == nil {
		t.Error("CancelledAt should be set")
	}
	if !rec.ModifiedAt.Equal(rec.Receipt.CreatedAt) {
		t.Errorf("ModifiedAt should fall back to created_at, got %v", rec.ModifiedAt)
	}
	if len(rec.Receipt.Lines) != 1 || rec.Receipt.Lines[0].TaxRate != 7.5 {
		t.Errorf("Lines = %+v", rec.Receipt.Lines)
	}
	if len(rec.Receipt.Payments) != 1 || rec.Receipt.Payments[0].Amount != 10 {
		t.Errorf("Payments = %+v", rec.Receipt.Payments)
	}
}

func TestMoney_InvalidIsZero(t *testing.T) {
	if got := money(Amount("abc")); got != 0 {
		t.Errorf("money(abc) = %v, want 0", got)
	}
	if got := money(""); got != 0 {
		t.Errorf("money(\"\") = %v, want 0", got)
	}
}

func TestParseTime_Unparseable(t *testing.T) {
	if got := parseTime("yesterday", ""); !got.IsZero() {
		t.Errorf("parseTime = %v, want zero", got)
	}
}
