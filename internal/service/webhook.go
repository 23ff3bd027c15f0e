package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"print-checkout-backend/internal/client"
	"print-checkout-backend/internal/model"
	"print-checkout-backend/internal/repository"
)

// WebhookService reconciles asynchronous payment outcomes against the
// inventory the checkout reserved. The session metadata is the only carrier
// linking the two.
type WebhookService interface {
	HandleEvent(ctx context.Context, signatureHeader string, body []byte) error
}

type webhookServiceImpl struct {
	stripe       client.StripeClient
	store        client.AirtableClient
	reservations ReservationService
	events       repository.WebhookEventRepository
}

func NewWebhookService(stripe client.StripeClient, store client.AirtableClient, reservations ReservationService, events repository.WebhookEventRepository) WebhookService {
	return &webhookServiceImpl{
		stripe:       stripe,
		store:        store,
		reservations: reservations,
		events:       events,
	}
}

func (s *webhookServiceImpl) HandleEvent(ctx context.Context, signatureHeader string, body []byte) error {
	if err := s.stripe.VerifyWebhookSignature(signatureHeader, body); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var event model.StripeWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	processed, err := s.events.Exists(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check processed events: %w", err)
	}
	if processed {
		log.Printf("webhook event %s already processed, acknowledging", event.ID)
		return nil
	}

	switch event.EventType {
	case "checkout.session.completed":
		if err := s.handleSessionCompleted(ctx, &event.Data.Object); err != nil {
			return err
		}
	case "checkout.session.expired",
		"checkout.session.async_payment_failed",
		"payment_intent.payment_failed":
		if err := s.handlePaymentAbandoned(ctx, &event.Data.Object); err != nil {
			return err
		}
	default:
		// Unknown event types are acknowledged without action.
		return nil
	}

	if err := s.events.MarkProcessed(ctx, event.ID, event.EventType); err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (s *webhookServiceImpl) handleSessionCompleted(ctx context.Context, session *model.StripeCheckoutSession) error {
	ids := metadataProductIDs(session.Metadata)
	if len(ids) == 0 {
		log.Printf("session %s completed with no product ids in metadata", session.ID)
		return nil
	}

	products, err := s.store.FetchProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch held products: %w", err)
	}

	// A redelivered event after a partial failure must not create a second
	// order for the same session. The session id is unique per order, so an
	// existing record means the order (and its items) were already written
	// and only the inventory finalization remains.
	orderID, err := s.store.FindOrderBySessionID(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("look up order for session %s: %w", session.ID, err)
	}
	if orderID == "" {
		orderID, err = s.store.CreateOrder(ctx, orderFromSession(session))
		if err != nil {
			return fmt.Errorf("create order for session %s: %w", session.ID, err)
		}

		items := make([]*model.OrderItemDraft, len(products))
		for i, p := range products {
			items[i] = &model.OrderItemDraft{
				OrderID:         orderID,
				ProductID:       p.ID,
				Name:            p.Name,
				SKU:             p.SKU,
				PriceMinorUnits: p.PriceMinorUnits,
				Currency:        p.Currency,
			}
		}
		for i := 0; i < len(items); i += storeBatchSize {
			end := i + storeBatchSize
			if end > len(items) {
				end = len(items)
			}
			if err := s.store.CreateOrderItems(ctx, items[i:end]); err != nil {
				return fmt.Errorf("create order items for order %s (%d of %d written): %w",
					orderID, i, len(items), err)
			}
		}
	} else {
		log.Printf("session %s already has order %s, resuming inventory finalization", session.ID, orderID)
	}

	if err := s.reservations.MarkSold(ctx, products, orderID); err != nil {
		return fmt.Errorf("finalize inventory for order %s: %w", orderID, err)
	}
	return nil
}

func (s *webhookServiceImpl) handlePaymentAbandoned(ctx context.Context, session *model.StripeCheckoutSession) error {
	ids := metadataProductIDs(session.Metadata)
	if err := s.reservations.ReleaseHolds(ctx, ids); err != nil {
		return fmt.Errorf("release holds for session %s: %w", session.ID, err)
	}
	return nil
}

func metadataProductIDs(metadata map[string]string) []string {
	raw := metadata[model.MetadataProductIDs]
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func orderFromSession(session *model.StripeCheckoutSession) *model.OrderDraft {
	draft := &model.OrderDraft{
		SessionID:   session.ID,
		Status:      "Paid",
		Email:       session.CustomerDetails.Email,
		Currency:    strings.ToUpper(session.Currency),
		AmountTotal: session.AmountTotal,
	}

	name := session.CustomerDetails.Name
	addr := session.CustomerDetails.Address
	if session.ShippingDetails != nil {
		name = session.ShippingDetails.Name
		addr = session.ShippingDetails.Address
	}
	draft.ShippingName = name
	draft.ShippingLine1 = addr.Line1
	draft.ShippingLine2 = addr.Line2
	draft.ShippingCity = addr.City
	draft.ShippingPostal = addr.PostalCode
	draft.ShippingCountry = addr.Country
	return draft
}
