package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"print-checkout-backend/internal/client"
	"print-checkout-backend/internal/model"
	"print-checkout-backend/internal/repository"
)

// The inventory store accepts at most this many records per write call.
const storeBatchSize = 10

// ReservationService owns the product state machine:
// Available -> On Hold -> {Sold | Available}.
type ReservationService interface {
	// PlaceHolds reserves every item or none of them, and returns the shared
	// hold expiry. A conflict with another in-flight checkout surfaces as
	// *OutOfStockError.
	PlaceHolds(ctx context.Context, items []*model.ValidatedLine) (time.Time, error)
	// ReleaseHolds returns products to Available and clears their hold
	// expiry. Idempotent; a no-op on an empty id list.
	ReleaseHolds(ctx context.Context, productIDs []string) error
	// MarkSold is terminal: status Sold, quantity zeroed, order reference
	// stamped.
	MarkSold(ctx context.Context, products []*model.Product, orderRef string) error
	// ReleaseExpired frees every ledger hold whose expiry has passed and
	// returns how many were released.
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)
}

type reservationServiceImpl struct {
	store        client.AirtableClient
	ledger       repository.ReservationRepository
	holdDuration time.Duration
}

func NewReservationService(store client.AirtableClient, ledger repository.ReservationRepository, holdDuration time.Duration) ReservationService {
	return &reservationServiceImpl{
		store:        store,
		ledger:       ledger,
		holdDuration: holdDuration,
	}
}

func (s *reservationServiceImpl) PlaceHolds(ctx context.Context, items []*model.ValidatedLine) (time.Time, error) {
	expiresAt := time.Now().Add(s.holdDuration).UTC().Truncate(time.Second)
	if len(items) == 0 {
		return expiresAt, nil
	}

	// Ledger first: the unique product-id constraint is the compare-and-set
	// the inventory store does not offer. Losing the race on any item rolls
	// back the ledger rows taken so far, so the cart stays all-or-nothing.
	var reserved []string
	for _, item := range items {
		err := s.ledger.Reserve(ctx, item.Product.ID, expiresAt)
		if errors.Is(err, repository.ErrAlreadyReserved) {
			if relErr := s.ledger.ReleaseMany(ctx, reserved); relErr != nil {
				return time.Time{}, fmt.Errorf("roll back ledger after conflict on %s: %w", item.Product.ID, relErr)
			}
			return time.Time{}, &OutOfStockError{Items: []model.OutOfStockItem{{
				ID:   item.Product.ID,
				Name: item.Product.Name,
			}}}
		}
		if err != nil {
			_ = s.ledger.ReleaseMany(ctx, reserved)
			return time.Time{}, fmt.Errorf("reserve %s in ledger: %w", item.Product.ID, err)
		}
		reserved = append(reserved, item.Product.ID)
	}

	patches := make([]client.ProductPatch, len(items))
	holdExpiry := expiresAt
	for i, item := range items {
		patches[i] = client.ProductPatch{
			ID:            item.Product.ID,
			Status:        model.StatusOnHold,
			HoldExpiresAt: &holdExpiry,
		}
	}

	if err := s.patchInBatches(ctx, patches); err != nil {
		// Partially applied holds are not rolled back here; the ledger rows
		// keep the items fenced until the sweeper releases them at expiry.
		return time.Time{}, fmt.Errorf("place holds: %w", err)
	}
	return expiresAt, nil
}

func (s *reservationServiceImpl) ReleaseHolds(ctx context.Context, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}

	patches := make([]client.ProductPatch, len(productIDs))
	for i, id := range productIDs {
		patches[i] = client.ProductPatch{
			ID:              id,
			Status:          model.StatusAvailable,
			ClearHoldExpiry: true,
		}
	}

	if err := s.patchInBatches(ctx, patches); err != nil {
		return fmt.Errorf("release holds: %w", err)
	}
	if err := s.ledger.ReleaseMany(ctx, productIDs); err != nil {
		return fmt.Errorf("release ledger rows: %w", err)
	}
	return nil
}

func (s *reservationServiceImpl) MarkSold(ctx context.Context, products []*model.Product, orderRef string) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	patches := make([]client.ProductPatch, len(products))
	for i, p := range products {
		ids[i] = p.ID
		patches[i] = client.ProductPatch{
			ID:              p.ID,
			Status:          model.StatusSold,
			ClearHoldExpiry: true,
			ZeroQuantity:    true,
			OrderRef:        orderRef,
		}
	}

	if err := s.patchInBatches(ctx, patches); err != nil {
		return fmt.Errorf("mark sold: %w", err)
	}
	if err := s.ledger.ReleaseMany(ctx, ids); err != nil {
		return fmt.Errorf("release ledger rows: %w", err)
	}
	return nil
}

func (s *reservationServiceImpl) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.ledger.ExpiredIDs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired reservations: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.ReleaseHolds(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// patchInBatches issues bounded-size writes sequentially. A failure on batch
// k leaves batches 1..k-1 applied; the error says so, loudly, because silent
// partial application is how inventory gets oversold or stuck.
func (s *reservationServiceImpl) patchInBatches(ctx context.Context, patches []client.ProductPatch) error {
	total := (len(patches) + storeBatchSize - 1) / storeBatchSize
	for i := 0; i < len(patches); i += storeBatchSize {
		end := i + storeBatchSize
		if end > len(patches) {
			end = len(patches)
		}
		if err := s.store.PatchProducts(ctx, patches[i:end]); err != nil {
			return fmt.Errorf("batch %d/%d failed, %d record(s) already applied: %w",
				i/storeBatchSize+1, total, i, err)
		}
	}
	return nil
}
