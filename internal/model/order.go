package model

// OrderDraft is what the webhook reconciler writes to the Orders table on a
// confirmed payment. Immutable once created.
type OrderDraft struct {
	SessionID       string
	Status          string // always "Paid"
	Email           string
	Currency        string
	AmountTotal     int64
	ShippingName    string
	ShippingLine1   string
	ShippingLine2   string
	ShippingCity    string
	ShippingPostal  string
	ShippingCountry string
}

// OrderItemDraft snapshots a sold product at sale time, linking the order
// back to the product record.
type OrderItemDraft struct {
	OrderID         string
	ProductID       string
	Name            string
	SKU             string
	PriceMinorUnits int64
	Currency        string
}
