package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"print-checkout-backend/internal/client"
	"print-checkout-backend/internal/model"
)

const defaultCountry = "US"

type PriceQuoteItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	UnitAmount int64  `json:"unitAmount"`
	Amount     int64  `json:"amount"`
}

type PriceQuote struct {
	Items             []PriceQuoteItem       `json:"items"`
	NotFound          []string               `json:"notFound"`
	OutOfStock        []model.OutOfStockItem `json:"outOfStock"`
	Subtotal          int64                  `json:"subtotal"`
	Shipping          int64                  `json:"shipping"`
	Total             int64                  `json:"total"`
	Currency          string                 `json:"currency"`
	ShippingBreakdown []model.ShippingCharge `json:"shippingBreakdown"`
}

type CheckoutService interface {
	// PriceCart computes a trusted quote with no reservation side effect.
	PriceCart(ctx context.Context, lines []model.CartLine, country string) (*PriceQuote, error)
	// CreateCheckout validates, holds inventory, opens a hosted checkout
	// session and returns its redirect URL.
	CreateCheckout(ctx context.Context, lines []model.CartLine, country, email string) (string, error)
}

type checkoutServiceImpl struct {
	store        client.AirtableClient
	stripe       client.StripeClient
	reservations ReservationService
	siteBaseURL  string
}

func NewCheckoutService(store client.AirtableClient, stripe client.StripeClient, reservations ReservationService, siteBaseURL string) CheckoutService {
	return &checkoutServiceImpl{
		store:        store,
		stripe:       stripe,
		reservations: reservations,
		siteBaseURL:  strings.TrimRight(siteBaseURL, "/"),
	}
}

func (s *checkoutServiceImpl) PriceCart(ctx context.Context, lines []model.CartLine, country string) (*PriceQuote, error) {
	quote := &PriceQuote{
		Items:      []PriceQuoteItem{},
		NotFound:   []string{},
		OutOfStock: []model.OutOfStockItem{},
		Currency:   "USD",
	}
	if len(lines) == 0 {
		return quote, nil
	}
	if country == "" {
		country = defaultCountry
	}

	products, err := s.store.FetchProducts(ctx, cartProductIDs(lines))
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	result := validateCart(lines, products)
	if result.NotFound != nil {
		quote.NotFound = result.NotFound
	}
	if result.OutOfStock != nil {
		quote.OutOfStock = result.OutOfStock
	}

	for _, line := range result.Validated {
		amount := line.Product.PriceMinorUnits * int64(line.Qty)
		quote.Subtotal += amount
		quote.Currency = line.Product.Currency
		quote.Items = append(quote.Items, PriceQuoteItem{
			ID:         line.Product.ID,
			Name:       line.Product.Name,
			Qty:        line.Qty,
			UnitAmount: line.Product.PriceMinorUnits,
			Amount:     amount,
		})
	}

	shipping, breakdown, err := resolveRates(ctx, s.store, consolidateTiers(result.Validated), country)
	if err != nil {
		return nil, err
	}
	quote.Shipping = shipping
	quote.ShippingBreakdown = breakdown
	quote.Total = quote.Subtotal + quote.Shipping
	return quote, nil
}

func (s *checkoutServiceImpl) CreateCheckout(ctx context.Context, lines []model.CartLine, country, email string) (string, error) {
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}
	if country == "" {
		country = defaultCountry
	}

	products, err := s.store.FetchProducts(ctx, cartProductIDs(lines))
	if err != nil {
		return "", fmt.Errorf("fetch products: %w", err)
	}

	result := validateCart(lines, products)
	// Any out-of-stock line rejects the whole cart before a single hold is
	// placed. Unknown ids are dropped silently, matching the cart policy.
	if len(result.OutOfStock) > 0 {
		return "", &OutOfStockError{Items: result.OutOfStock}
	}
	if len(result.Validated) == 0 {
		return "", ErrEmptyCart
	}

	expiresAt, err := s.reservations.PlaceHolds(ctx, result.Validated)
	if err != nil {
		return "", err
	}

	heldIDs := make([]string, len(result.Validated))
	lineItems := make([]client.SessionLineItem, len(result.Validated))
	currency := result.Validated[0].Product.Currency
	for i, line := range result.Validated {
		heldIDs[i] = line.Product.ID
		lineItems[i] = client.SessionLineItem{
			Name:       line.Product.Name,
			UnitAmount: line.Product.PriceMinorUnits,
			Currency:   line.Product.Currency,
			Quantity:   line.Qty,
			ImageURL:   line.Product.ImageURL,
		}
	}

	_, charges, err := resolveRates(ctx, s.store, consolidateTiers(result.Validated), country)
	if err != nil {
		s.rollbackHolds(ctx, heldIDs)
		return "", err
	}
	shippingOptions := make([]client.SessionShippingOption, len(charges))
	for i, charge := range charges {
		shippingOptions[i] = client.SessionShippingOption{
			Label:    charge.Label,
			Amount:   charge.AmountMinorUnits,
			Currency: currency,
		}
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, &client.CheckoutSessionParams{
		LineItems:       lineItems,
		ShippingOptions: shippingOptions,
		Metadata: map[string]string{
			model.MetadataProductIDs:    strings.Join(heldIDs, ","),
			model.MetadataHoldExpiresAt: expiresAt.Format(time.RFC3339),
		},
		CustomerEmail: email,
		SuccessURL:    s.siteBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.siteBaseURL + "/checkout/cancelled",
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		s.rollbackHolds(ctx, heldIDs)
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.URL, nil
}

// rollbackHolds is best effort: if the release itself fails the ledger rows
// still fence the items and the sweeper frees them at expiry.
func (s *checkoutServiceImpl) rollbackHolds(ctx context.Context, ids []string) {
	if err := s.reservations.ReleaseHolds(ctx, ids); err != nil {
		log.Printf("release holds after failed checkout: %v", err)
	}
}
