package model

// Metadata keys carried on the checkout session. They are the only link
// between an asynchronous payment outcome and the inventory it reserved.
const (
	MetadataProductIDs    = "product_ids"
	MetadataHoldExpiresAt = "hold_expires_at"
)

type StripeAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type StripeCustomerDetails struct {
	Email   string        `json:"email"`
	Name    string        `json:"name"`
	Address StripeAddress `json:"address"`
}

type StripeShippingDetails struct {
	Name    string        `json:"name"`
	Address StripeAddress `json:"address"`
}

type StripeCheckoutSession struct {
	ID              string                 `json:"id"`
	AmountTotal     int64                  `json:"amount_total"`
	Currency        string                 `json:"currency"`
	PaymentStatus   string                 `json:"payment_status"`
	CustomerDetails StripeCustomerDetails  `json:"customer_details"`
	ShippingDetails *StripeShippingDetails `json:"shipping_details"`
	Metadata        map[string]string      `json:"metadata"`
	URL             string                 `json:"url"`
}

type StripeEventData struct {
	Object StripeCheckoutSession `json:"object"`
}

type StripeWebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"type"`
	Created   int64           `json:"created"`
	Data      StripeEventData `json:"data"`
}
