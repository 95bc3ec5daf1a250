package remote

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/njoerd114/possync/internal/model"
)

// Receipt types as sent by the remote API.
const (
	ReceiptTypeSale   = "SALE"
	ReceiptTypeRefund = "REFUND"
)

// CategoryToRecord converts a remote category.
func CategoryToRecord(c Category) model.Record {
	return model.Record{
		Entity:     model.EntityCategories,
		ID:         c.ID,
		Name:       displayName(c.Name, "Category", c.ID),
		ModifiedAt: parseTime(c.UpdatedAt, c.CreatedAt),
		Category: &model.CategoryAttrs{
			ParentID: c.ParentID,
			Color:    strings.ToUpper(strings.TrimSpace(c.Color)),
		},
	}
}

// ItemToRecord converts a remote catalog item. Price, cost, SKU and barcode
// come from the first variant. Stock is set only when the payload has it.
func ItemToRecord(it Item) model.Record {
	v := firstVariant(it)
	attrs := &model.ItemAttrs{
		CategoryID:  it.CategoryID,
		SKU:         firstNonEmpty(v.SKU, it.ReferenceID),
		Barcode:     v.Barcode,
		Description: strings.TrimSpace(it.Description),
		Price:       money(v.DefaultPrice),
		Cost:        money(v.Cost),
		TrackStock:  it.TrackStock,
		Form:        it.Form,
		Color:       strings.ToUpper(strings.TrimSpace(it.Color)),
		ImageURL:    it.ImageURL,
	}
	if it.Stock != nil && *it.Stock != "" {
		qty := quantity(*it.Stock)
		inStock := qty > 0
		attrs.Stock = &qty
		attrs.InStock = &inStock
	}
	return model.Record{
		Entity:     model.EntityItems,
		ID:         it.ID,
		Name:       displayName(it.ItemName, "Item", it.ID),
		ModifiedAt: parseTime(it.UpdatedAt, it.CreatedAt),
		Item:       attrs,
	}
}

// CustomerToRecord converts a remote customer.
func CustomerToRecord(c Customer) model.Record {
	return model.Record{
		Entity:     model.EntityCustomers,
		ID:         c.ID,
		Name:       displayName(c.Name, "Customer", c.ID),
		ModifiedAt: parseTime(c.UpdatedAt, c.CreatedAt),
		Customer: &model.CustomerAttrs{
			Email:        strings.ToLower(strings.TrimSpace(c.Email)),
			Phone:        strings.TrimSpace(c.PhoneNumber),
			Address:      strings.TrimSpace(c.Address),
			City:         strings.TrimSpace(c.City),
			CustomerCode: c.CustomerCode,
			Note:         c.Note,
			TotalVisits:  c.TotalVisits,
			TotalSpent:   money(c.TotalSpent),
			Points:       money(c.TotalPoints),
		},
	}
}

// ReceiptToRecord converts a remote receipt. Refunds keep positive amounts;
// the type distinguishes them.
func ReceiptToRecord(r Receipt) model.Record {
	created := parseTime(r.CreatedAt, "")
	attrs := &model.ReceiptAttrs{
		Type:          normalizeReceiptType(r.ReceiptType),
		StoreID:       r.StoreID,
		CustomerID:    r.CustomerID,
		Total:         money(r.TotalMoney),
		TotalTax:      money(r.TotalTax),
		TotalDiscount: money(r.TotalDiscount),
		CreatedAt:     created,
	}
	if r.CancelledAt != nil {
		if t := parseTime(*r.CancelledAt, ""); !t.IsZero() {
			attrs.CancelledAt = &t
		}
	}
	for _, li := range r.LineItems {
		attrs.Lines = append(attrs.Lines, model.ReceiptLine{
			ItemID:    li.ItemID,
			VariantID: li.VariantID,
			Name:      normalizeName(li.ItemName),
			Quantity:  quantity(li.Quantity),
			Price:     money(li.Price),
			Total:     money(li.TotalMoney),
			Discount:  money(li.TotalDiscount),
			TaxRate:   taxRate(li.LineTaxes),
		})
	}
	for _, p := range r.Payments {
		attrs.Payments = append(attrs.Payments, model.Payment{
			TypeID: p.PaymentTypeID,
			Name:   strings.TrimSpace(p.Name),
			Amount: money(p.MoneyAmount),
		})
	}
	return model.Record{
		Entity:     model.EntityReceipts,
		ID:         r.ReceiptNumber,
		Name:       "Receipt " + r.ReceiptNumber,
		ModifiedAt: parseTime(r.UpdatedAt, r.CreatedAt),
		Receipt:    attrs,
	}
}

// InventoryLevelToModel converts a remote inventory level. It reports false
// when the level cannot be attributed to an item.
func InventoryLevelToModel(l InventoryLevel) (model.InventoryLevel, bool) {
	if l.ItemID == "" {
		return model.InventoryLevel{}, false
	}
	return model.InventoryLevel{
		ItemID:    l.ItemID,
		VariantID: l.VariantID,
		StoreID:   l.StoreID,
		Quantity:  quantity(l.InStock),
		UpdatedAt: parseTime(l.UpdatedAt, ""),
	}, true
}

func firstVariant(it Item) Variant {
	if len(it.Variants) > 0 {
		return it.Variants[0]
	}
	return Variant{}
}

// money rounds to two decimal places.
func money(a Amount) float64 {
	f, _ := a.Decimal().Round(2).Float64()
	return f
}

// quantity keeps three decimal places for weighed goods.
func quantity(a Amount) float64 {
	f, _ := a.Decimal().Round(3).Float64()
	return f
}

// taxRate sums all line tax percentages.
func taxRate(taxes []LineTax) float64 {
	total := decimal.Zero
	for _, t := range taxes {
		total = total.Add(t.Rate.Decimal())
	}
	f, _ := total.Round(2).Float64()
	return f
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func displayName(name, kind, id string) string {
	if n := normalizeName(name); n != "" {
		return n
	}
	return fmt.Sprintf("Unnamed %s %s", kind, id)
}

func normalizeReceiptType(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case ReceiptTypeRefund:
		return ReceiptTypeRefund
	default:
		return ReceiptTypeSale
	}
}

// parseTime parses value, falling back to fallback, then to the zero time.
func parseTime(value, fallback string) time.Time {
	for _, s := range []string{value, fallback} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
