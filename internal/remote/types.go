package remote

// Category is the remote category shape.
type Category struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	ParentID  string  `json:"parent_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	DeletedAt *string `json:"deleted_at"`
}

// Item is the remote catalog item shape. Prices live on variants.
type Item struct {
	ID          string    `json:"id"`
	ItemName    string    `json:"item_name"`
	Description string    `json:"description"`
	ReferenceID string    `json:"reference_id"`
	CategoryID  string    `json:"category_id"`
	TrackStock  bool      `json:"track_stock"`
	Form        string    `json:"form"`
	Color       string    `json:"color"`
	ImageURL    string    `json:"image_url"`
	Variants    []Variant `json:"variants"`

	// Stock is only present on some catalog payloads. When absent the
	// converted record carries no stock at all.
	Stock *Amount `json:"stock"`

	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	DeletedAt *string `json:"deleted_at"`
}

// Variant is one sellable variant of an Item.
type Variant struct {
	VariantID    string      `json:"variant_id"`
	SKU          string      `json:"sku"`
	Barcode      string      `json:"barcode"`
	DefaultPrice Amount `json:"default_price"`
	Cost         Amount `json:"cost"`
}

// Customer is the remote customer shape.
type Customer struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PhoneNumber  string      `json:"phone_number"`
	Address      string      `json:"address"`
	City         string      `json:"city"`
	CustomerCode string      `json:"customer_code"`
	Note         string      `json:"note"`
	TotalVisits  int         `json:"total_visits"`
	TotalSpent   Amount `json:"total_spent"`
	TotalPoints  Amount `json:"total_points"`
	CreatedAt    string      `json:"created_at"`
	UpdatedAt    string      `json:"updated_at"`
}

// Receipt is the remote sales receipt shape. The receipt number is its key.
type Receipt struct {
	ReceiptNumber string      `json:"receipt_number"`
	ReceiptType   string      `json:"receipt_type"`
	StoreID       string      `json:"store_id"`
	CustomerID    string      `json:"customer_id"`
	TotalMoney    Amount `json:"total_money"`
	TotalTax      Amount `json:"total_tax"`
	TotalDiscount Amount `json:"total_discount"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
	CancelledAt   *string     `json:"cancelled_at"`
	LineItems     []LineItem  `json:"line_items"`
	Payments      []Payment   `json:"payments"`
}

// LineItem is one line of a Receipt.
type LineItem struct {
	ItemID        string      `json:"item_id"`
	VariantID     string      `json:"variant_id"`
	ItemName      string      `json:"item_name"`
	Quantity      Amount `json:"quantity"`
	Price         Amount `json:"price"`
	TotalMoney    Amount `json:"total_money"`
	TotalDiscount Amount `json:"total_discount"`
	LineTaxes     []LineTax   `json:"line_taxes"`
}

// LineTax is a tax applied to a LineItem. Rate is a percentage.
type LineTax struct {
	ID   string      `json:"id"`
	Rate Amount `json:"rate"`
}

// Payment is a tender on a Receipt.
type Payment struct {
	PaymentTypeID string      `json:"payment_type_id"`
	Name          string      `json:"name"`
	MoneyAmount   Amount `json:"money_amount"`
}

// InventoryLevel is the stock of one variant at one store.
type InventoryLevel struct {
	ItemID    string      `json:"item_id"`
	VariantID string      `json:"variant_id"`
	StoreID   string      `json:"store_id"`
	InStock   Amount `json:"in_stock"`
	UpdatedAt string      `json:"updated_at"`
}
