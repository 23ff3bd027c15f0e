package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"print-checkout-backend/internal/client"
	"print-checkout-backend/internal/model"
	"print-checkout-backend/internal/repository"
)

// fakeStore is an in-memory stand-in for the inventory store. Patches are
// recorded and applied so tests can observe product state transitions.
type fakeStore struct {
	mu         sync.Mutex
	products   map[string]*model.Product
	rates      []*model.ShippingRate
	patchCalls [][]client.ProductPatch
	patchErr   error
	orders     []*model.OrderDraft
	orderItems []*model.OrderItemDraft
}

func newFakeStore(products ...*model.Product) *fakeStore {
	s := &fakeStore{products: make(map[string]*model.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeStore) FetchProducts(ctx context.Context, ids []string) ([]*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) PatchProducts(ctx context.Context, patches []client.ProductPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patchErr != nil {
		return s.patchErr
	}
	s.patchCalls = append(s.patchCalls, patches)
	for _, patch := range patches {
		p, ok := s.products[patch.ID]
		if !ok {
			continue
		}
		p.Status = patch.Status
		if patch.HoldExpiresAt != nil {
			t := *patch.HoldExpiresAt
			p.HoldExpiresAt = &t
		}
		if patch.ClearHoldExpiry {
			p.HoldExpiresAt = nil
		}
		if patch.ZeroQuantity {
			p.AvailableQty = 0
		}
	}
	return nil
}

func (s *fakeStore) FetchShippingRates(ctx context.Context, tiers []model.ShippingTier, country string) ([]*model.ShippingRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[model.ShippingTier]bool, len(tiers))
	for _, t := range tiers {
		wanted[t] = true
	}
	var out []*model.ShippingRate
	for _, r := range s.rates {
		if wanted[r.Tier] && r.Country == country {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateOrder(ctx context.Context, draft *model.OrderDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, draft)
	return fmt.Sprintf("ord_%d", len(s.orders)), nil
}

func (s *fakeStore) FindOrderBySessionID(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.orders {
		if o.SessionID == sessionID {
			return fmt.Sprintf("ord_%d", i+1), nil
		}
	}
	return "", nil
}

func (s *fakeStore) CreateOrderItems(ctx context.Context, items []*model.OrderItemDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderItems = append(s.orderItems, items...)
	return nil
}

type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]time.Time
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]time.Time)}
}

func (l *fakeLedger) Reserve(ctx context.Context, productID string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.rows[productID]; ok && existing.After(time.Now()) {
		return repository.ErrAlreadyReserved
	}
	l.rows[productID] = expiresAt
	return nil
}

func (l *fakeLedger) ReleaseMany(ctx context.Context, productIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range productIDs {
		delete(l.rows, id)
	}
	return nil
}

func (l *fakeLedger) ExpiredIDs(ctx context.Context, now time.Time) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []string
	for id, exp := range l.rows {
		if exp.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeStripe struct {
	lastParams *client.CheckoutSessionParams
	createErr  error
	url        string
}

func (f *fakeStripe) CreateCheckoutSession(ctx context.Context, params *client.CheckoutSessionParams) (*model.StripeCheckoutSession, error) {
	f.lastParams = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	url := f.url
	if url == "" {
		url = "https://checkout.example.com/c/cs_test_1"
	}
	return &model.StripeCheckoutSession{ID: "cs_test_1", URL: url}, nil
}

func (f *fakeStripe) VerifyWebhookSignature(signatureHeader string, body []byte) error {
	return nil
}

type fakeEvents struct {
	mu        sync.Mutex
	processed map[string]string
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{processed: make(map[string]string)}
}

func (f *fakeEvents) Exists(ctx context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.processed[eventID]
	return ok, nil
}

func (f *fakeEvents) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[eventID] = eventType
	return nil
}

func availableProduct(id string, price int64, qty int, tier model.ShippingTier) *model.Product {
	return &model.Product{
		ID:              id,
		Name:            "Print " + id,
		PriceMinorUnits: price,
		Currency:        "USD",
		SKU:             "SKU-" + id,
		AvailableQty:    qty,
		Status:          model.StatusAvailable,
		ShippingTier:    tier,
	}
}
