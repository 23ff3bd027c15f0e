package model

import "time"

type ProductStatus string

const (
	StatusAvailable ProductStatus = "Available"
	StatusOnHold    ProductStatus = "On Hold"
	StatusSold      ProductStatus = "Sold"
)

// ShippingTier is the packaging category attached to a product: one of the
// ordered tube sizes, or the flat-pack category for unrolled work.
type ShippingTier string

const (
	TierTubeS  ShippingTier = "TUBE_S"
	TierTubeM  ShippingTier = "TUBE_M"
	TierTubeL  ShippingTier = "TUBE_L"
	TierTubeXL ShippingTier = "TUBE_XL"
	TierFlat   ShippingTier = "FLAT"
)

var tubeRank = map[ShippingTier]int{
	TierTubeS:  1,
	TierTubeM:  2,
	TierTubeL:  3,
	TierTubeXL: 4,
}

// TubeRank returns the position of a tube tier in the S < M < L < XL order,
// and 0 for anything that is not a tube tier.
func (t ShippingTier) TubeRank() int {
	return tubeRank[t]
}

func (t ShippingTier) IsTube() bool {
	return tubeRank[t] > 0
}

// Product is the typed view of an inventory-store record. Numeric fields are
// zero when the upstream record omits them.
type Product struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	PriceMinorUnits int64         `json:"price"`
	Currency        string        `json:"currency"`
	SKU             string        `json:"sku"`
	AvailableQty    int           `json:"available_quantity"`
	Status          ProductStatus `json:"status"`
	ShippingTier    ShippingTier  `json:"shipping_tier"`
	HoldExpiresAt   *time.Time    `json:"hold_expires_at,omitempty"`
	ImageURL        string        `json:"image_url,omitempty"`
}

// CartLine is client input: an id and a requested quantity. The client never
// supplies prices.
type CartLine struct {
	ProductID string `json:"id"`
	Qty       int    `json:"qty"`
}

// ValidatedLine is a product merged with a confirmed quantity. Produced only
// for available products with sufficient stock.
type ValidatedLine struct {
	Product *Product
	Qty     int
}

type OutOfStockItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ShippingRate is one row of the country-scoped rate table.
type ShippingRate struct {
	Tier             ShippingTier
	Country          string
	AmountMinorUnits int64
	Label            string
}

type ShippingCharge struct {
	Tier             ShippingTier `json:"tier"`
	Label            string       `json:"label"`
	AmountMinorUnits int64        `json:"amount"`
}
