package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "booking", id)
	}
	return &b, nil
}

// LinkTransaction points a payment-pending booking at its latest payment attempt.
func (r *BookingRepo) LinkTransaction(ctx context.Context, id, txID string) error {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, domain.BookingPaymentPending).
		Update("transaction_id", txID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("link transaction to booking %s: %w", id, domain.ErrStaleStatus)
	}
	return nil
}

// Transition moves the booking to `to` only when its stored status is one of from.
func (r *BookingRepo) Transition(ctx context.Context, id string, from []domain.BookingStatus, to domain.BookingStatus) (*domain.Booking, error) {
	return r.update(ctx, id, from, map[string]any{"status": to}, nil)
}

// Allocate sets the guide and the allocated status and writes the outbox rows
// in one DB transaction.
func (r *BookingRepo) Allocate(ctx context.Context, id, guideID string, from []domain.BookingStatus, outbox []domain.Notification) (*domain.Booking, error) {
	return r.update(ctx, id, from, map[string]any{
		"status":          domain.BookingAllocated,
		"allocated_guide": guideID,
	}, outbox)
}

func (r *BookingRepo) update(ctx context.Context, id string, from []domain.BookingStatus, fields map[string]any, outbox []domain.Notification) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status IN ?", id, from).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// tell a missing booking apart from a lost race
			if err := tx.First(&b, "id = ?", id).Error; err != nil {
				return lookupErr(err, "booking", id)
			}
			return fmt.Errorf("booking %s is %s: %w", id, b.Status, domain.ErrStaleStatus)
		}
		if len(outbox) > 0 {
			if err := tx.Create(&outbox).Error; err != nil {
				return fmt.Errorf("write outbox: %w", err)
			}
		}
		return tx.First(&b, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) ListByTourist(ctx context.Context, touristID string, page, size int) ([]domain.Booking, int64, error) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	qb := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("tourist_id = ?", touristID).Session(&gorm.Session{})
	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Booking
	if err := qb.Order("created_at DESC").Limit(size).Offset(page * size).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
