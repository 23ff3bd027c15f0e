package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"print-checkout-backend/internal/model"
)

// ErrAlreadyReserved means another in-flight checkout holds the product.
var ErrAlreadyReserved = errors.New("product already reserved")

// ReservationRepository is the local ledger providing the conditional-write
// guarantee the inventory store lacks: a product id can be reserved by at
// most one checkout at a time.
type ReservationRepository interface {
	Reserve(ctx context.Context, productID string, expiresAt time.Time) error
	ReleaseMany(ctx context.Context, productIDs []string) error
	ExpiredIDs(ctx context.Context, now time.Time) ([]string, error)
}

type reservationRepoImpl struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepoImpl{db: db}
}

func (r *reservationRepoImpl) Reserve(ctx context.Context, productID string, expiresAt time.Time) error {
	// Evict a stale row first so an abandoned hold whose expiry has passed
	// cannot block the product forever.
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND hold_expires_at < ?", productID, time.Now()).
		Delete(&model.Reservation{}).Error
	if err != nil {
		return fmt.Errorf("evict stale reservation: %w", err)
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Reservation{
			ProductID:     productID,
			HoldExpiresAt: expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyReserved
	}
	return nil
}

func (r *reservationRepoImpl) ReleaseMany(ctx context.Context, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Delete(&model.Reservation{}).Error
}

func (r *reservationRepoImpl) ExpiredIDs(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("hold_expires_at < ?", now).
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
