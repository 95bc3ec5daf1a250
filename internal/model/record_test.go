package model

import (
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityType
		wantErr bool
	}{
		{"categories", EntityCategories, false},
		{"receipts", EntityReceipts, false},
		{"stock", EntityStock, false},
		{"invoices", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEntityType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEntityType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEntityType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCollection_StockMapsToItems(t *testing.T) {
	if got := EntityStock.Collection(); got != "items" {
		t.Errorf("EntityStock.Collection() = %q, want items", got)
	}
	if got := EntityCustomers.Collection(); got != "customers" {
		t.Errorf("EntityCustomers.Collection() = %q, want customers", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"category ok", Record{Entity: EntityCategories, ID: "C1", Category: &CategoryAttrs{}}, false},
		{"missing id", Record{Entity: EntityCategories, Category: &CategoryAttrs{}}, true},
		{"no payload", Record{Entity: EntityItems, ID: "I1"}, true},
		{"wrong payload", Record{Entity: EntityItems, ID: "I1", Customer: &CustomerAttrs{}}, true},
		{"two payloads", Record{Entity: EntityItems, ID: "I1", Item: &ItemAttrs{}, Category: &CategoryAttrs{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	synced := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orig := &Record{
		Entity: EntityItems,
		ID:     "I1",
		Item: &ItemAttrs{
			Stock:             floatPtr(5),
			LastInventorySync: &synced,
			InventoryLevels:   []StoreLevel{{StoreID: "S1", Quantity: 5}},
		},
	}
	cp := orig.Clone()
	*cp.Item.Stock = 9
	cp.Item.InventoryLevels[0].Quantity = 9
	cp.Name = "changed"

	if *orig.Item.Stock != 5 {
		t.Errorf("original stock mutated: %v", *orig.Item.Stock)
	}
	if orig.Item.InventoryLevels[0].Quantity != 5 {
		t.Errorf("original levels mutated: %v", orig.Item.InventoryLevels[0].Quantity)
	}
	if orig.Name != "" {
		t.Errorf("original name mutated: %q", orig.Name)
	}
}

func TestFieldValue(t *testing.T) {
	item := &Record{Entity: EntityItems, ID: "I1", Name: "Cola", Item: &ItemAttrs{Price: 1.5, CategoryID: "C1"}}
	if v, ok := item.FieldValue(FieldPrice); !ok || v != "1.50" {
		t.Errorf("price = %q, %v; want 1.50, true", v, ok)
	}
	if v, ok := item.FieldValue(FieldParent); !ok || v != "C1" {
		t.Errorf("parent = %q, %v; want C1, true", v, ok)
	}
	if _, ok := item.FieldValue(FieldEmail); ok {
		t.Error("email should not apply to items")
	}

	cust := &Record{Entity: EntityCustomers, ID: "U1", Name: "Ann", Customer: &CustomerAttrs{Phone: "555"}}
	if v, ok := cust.FieldValue(FieldPhone); !ok || v != "555" {
		t.Errorf("phone = %q, %v; want 555, true", v, ok)
	}
	if v, ok := cust.FieldValue(FieldName); !ok || v != "Ann" {
		t.Errorf("name = %q, %v; want Ann, true", v, ok)
	}
}

func TestHistoryID(t *testing.T) {
	ts := time.UnixMilli(1704067200000).UTC()
	if got := HistoryID(EntityItems, ts); got != "items-1704067200000" {
		t.Errorf("HistoryID = %q", got)
	}
}

func TestParseField(t *testing.T) {
	if _, err := ParseField("price"); err != nil {
		t.Errorf("ParseField(price): %v", err)
	}
	if _, err := ParseField("stock"); err == nil {
		t.Error("ParseField(stock) should fail")
	}
}
