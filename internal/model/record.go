// Package model defines the shared types that flow between the remote reader,
// the local datastore, and the sync engine.
package model

import (
	"fmt"
	"strconv"
	"time"
)

// EntityType identifies one logical collection of the remote system.
type EntityType string

const (
	EntityCategories EntityType = "categories"
	EntityItems      EntityType = "items"
	EntityCustomers  EntityType = "customers"
	EntityReceipts   EntityType = "receipts"

	// EntityStock is only used for history entries and the busy guard. Stock
	// reconciliation writes into the items collection.
	EntityStock EntityType = "stock"
)

// AllEntities lists every entity type in the order the CLI presents them.
var AllEntities = []EntityType{EntityCategories, EntityItems, EntityCustomers, EntityReceipts, EntityStock}

// ParseEntityType validates a user-supplied entity name.
func ParseEntityType(s string) (EntityType, error) {
	for _, e := range AllEntities {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Collection returns the datastore collection holding records of this type.
func (e EntityType) Collection() string {
	if e == EntityStock {
		return string(EntityItems)
	}
	return string(e)
}

// String implements fmt.Stringer.
func (e EntityType) String() string { return string(e) }

// Record is the local, persisted shape of a remote entity. It is a tagged
// union: Entity names which one of the attribute pointers is populated.
type Record struct {
	Entity EntityType `json:"entity"`

	// ID is the remote system's external identifier. It is the only key a
	// record is stored under.
	ID string `json:"id"`

	// Name is the display name (category/item name, customer name, receipt
	// number).
	Name string `json:"name"`

	// ModifiedAt is the remote last-modified timestamp.
	ModifiedAt time.Time `json:"modified_at"`

	// SyncedAt is stamped when the record was last written by a sync run.
	SyncedAt time.Time `json:"synced_at"`

	Category *CategoryAttrs `json:"category,omitempty"`
	Item     *ItemAttrs     `json:"item,omitempty"`
	Customer *CustomerAttrs `json:"customer,omitempty"`
	Receipt  *ReceiptAttrs  `json:"receipt,omitempty"`
}

// CategoryAttrs holds category-specific fields.
type CategoryAttrs struct {
	ParentID string `json:"parent_id,omitempty"`
	Color    string `json:"color,omitempty"`
}

// ItemAttrs holds catalog item fields. The stock-related fields are
// stock-bearing: a catalog sync may not carry them, and a stock
// reconciliation run owns them once LastInventorySync is set.
type ItemAttrs struct {
	CategoryID  string  `json:"category_id,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	Barcode     string  `json:"barcode,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Cost        float64 `json:"cost"`
	TrackStock  bool    `json:"track_stock"`
	Form        string  `json:"form,omitempty"`
	Color       string  `json:"color,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`

	Stock             *float64     `json:"stock,omitempty"`
	InStock           *bool        `json:"in_stock,omitempty"`
	InventoryLevels   []StoreLevel `json:"inventory_levels,omitempty"`
	LastInventorySync *time.Time   `json:"last_inventory_sync,omitempty"`
}

// StoreLevel is the quantity of an item held at one physical location.
type StoreLevel struct {
	StoreID  string  `json:"store_id"`
	Quantity float64 `json:"quantity"`
}

// CustomerAttrs holds customer contact and loyalty fields.
type CustomerAttrs struct {
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Address      string  `json:"address,omitempty"`
	City         string  `json:"city,omitempty"`
	CustomerCode string  `json:"customer_code,omitempty"`
	Note         string  `json:"note,omitempty"`
	TotalVisits  int     `json:"total_visits"`
	TotalSpent   float64 `json:"total_spent"`
	Points       float64 `json:"points"`
}

// ReceiptAttrs holds a sales receipt.
type ReceiptAttrs struct {
	Type          string        `json:"type"`
	StoreID       string        `json:"store_id,omitempty"`
	CustomerID    string        `json:"customer_id,omitempty"`
	Total         float64       `json:"total"`
	TotalTax      float64       `json:"total_tax"`
	TotalDiscount float64       `json:"total_discount"`
	CreatedAt     time.Time     `json:"created_at"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	Lines         []ReceiptLine `json:"lines,omitempty"`
	Payments      []Payment     `json:"payments,omitempty"`
}

// ReceiptLine is one sold item on a receipt.
type ReceiptLine struct {
	ItemID    string  `json:"item_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
	Discount  float64 `json:"discount"`
	TaxRate   float64 `json:"tax_rate"`
	VariantID string  `json:"variant_id,omitempty"`
}

// Payment is one tender applied to a receipt.
type Payment struct {
	TypeID string  `json:"type_id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Validate checks that exactly the attribute struct matching Entity is set.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%s record has no id", r.Entity)
	}
	set := 0
	for _, ok := range []bool{r.Category != nil, r.Item != nil, r.Customer != nil, r.Receipt != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%s record %q must carry exactly one attribute set, has %d", r.Entity, r.ID, set)
	}
	var match bool
	switch r.Entity {
	case EntityCategories:
		match = r.Category != nil
	case EntityItems:
		match = r.Item != nil
	case EntityCustomers:
		match = r.Customer != nil
	case EntityReceipts:
		match = r.Receipt != nil
	}
	if !match {
		return fmt.Errorf("%s record %q carries the wrong attribute set", r.Entity, r.ID)
	}
	return nil
}

// Clone returns a deep copy so merge rules can mutate an incoming record
// without touching the caller's slice.
func (r *Record) Clone() *Record {
	cp := *r
	if r.Category != nil {
		c := *r.Category
		cp.Category = &c
	}
	if r.Item != nil {
		it := *r.Item
		if r.Item.Stock != nil {
			v := *r.Item.Stock
			it.Stock = &v
		}
		if r.Item.InStock != nil {
			v := *r.Item.InStock
			it.InStock = &v
		}
		if r.Item.LastInventorySync != nil {
			v := *r.Item.LastInventorySync
			it.LastInventorySync = &v
		}
		it.InventoryLevels = append([]StoreLevel(nil), r.Item.InventoryLevels...)
		cp.Item = &it
	}
	if r.Customer != nil {
		c := *r.Customer
		cp.Customer = &c
	}
	if r.Receipt != nil {
		rc := *r.Receipt
		rc.Lines = append([]ReceiptLine(nil), r.Receipt.Lines...)
		rc.Payments = append([]Payment(nil), r.Receipt.Payments...)
		cp.Receipt = &rc
	}
	return &cp
}

// Field names a record attribute that change detection may compare even
// when the remote timestamp has not moved.
type Field string

const (
	FieldName   Field = "name"
	FieldPrice  Field = "price"
	FieldParent Field = "parent"
	FieldColor  Field = "color"
	FieldEmail  Field = "email"
	FieldPhone  Field = "phone"
	FieldTotal  Field = "total"
)

// ParseField validates a configured field name.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldName, FieldPrice, FieldParent, FieldColor, FieldEmail, FieldPhone, FieldTotal:
		return f, nil
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// FieldValue returns a canonical string form of f for comparison. The second
// result is false when the field does not apply to this record's entity.
func (r *Record) FieldValue(f Field) (string, bool) {
	if f == FieldName {
		return r.Name, true
	}
	switch {
	case r.Category != nil:
		switch f {
		case FieldParent:
			return r.Category.ParentID, true
		case FieldColor:
			return r.Category.Color, true
		}
	case r.Item != nil:
		switch f {
		case FieldPrice:
			return formatAmount(r.Item.Price), true
		case FieldParent:
			return r.Item.CategoryID, true
		case FieldColor:
			return r.Item.Color, true
		}
	case r.Customer != nil:
		switch f {
		case FieldEmail:
			return r.Customer.Email, true
		case FieldPhone:
			return r.Customer.Phone, true
		}
	case r.Receipt != nil:
		if f == FieldTotal {
			return formatAmount(r.Receipt.Total), true
		}
	}
	return "", false
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// InventoryLevel is a remote per-store stock quantity for one item variant.
type InventoryLevel struct {
	ItemID    string
	VariantID string
	StoreID   string
	Quantity  float64
	UpdatedAt time.Time
}
