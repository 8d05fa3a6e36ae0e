package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

type EnrollmentRepo struct{ db *gorm.DB }

func NewEnrollmentRepo(db *gorm.DB) *EnrollmentRepo {
	return &EnrollmentRepo{db: db}
}

func (r *EnrollmentRepo) Create(ctx context.Context, e *domain.Enrollment) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EnrollmentRepo) ByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	var e domain.Enrollment
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "enrollment", id)
	}
	return &e, nil
}

// Transition is a compare-and-swap from the given status; outbox rows commit with it.
func (r *EnrollmentRepo) Transition(ctx context.Context, id string, from, to domain.EnrollmentStatus, outbox ...domain.Notification) (*domain.Enrollment, error) {
	var e domain.Enrollment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := casEnrollment(tx, id, []domain.EnrollmentStatus{from}, to); err != nil {
			return err
		}
		if len(outbox) > 0 {
			if err := tx.Create(&outbox).Error; err != nil {
				return fmt.Errorf("write outbox: %w", err)
			}
		}
		return tx.First(&e, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Verify marks the enrollment verified and provisions its guide account plus
// the credentials notification. Nothing is written if the email already has an
// account; the unique email index backs the explicit check.
func (r *EnrollmentRepo) Verify(ctx context.Context, id string, acct *domain.Account, outbox ...domain.Notification) (*domain.Enrollment, error) {
	var e domain.Enrollment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Account{}).Where("email = ?", acct.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("account %s: %w", acct.Email, domain.ErrDuplicateAccount)
		}
		from := []domain.EnrollmentStatus{domain.EnrollmentPaymentPending, domain.EnrollmentVerified}
		if err := casEnrollment(tx, id, from, domain.EnrollmentVerified); err != nil {
			return err
		}
		if err := tx.Create(acct).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("account %s: %w", acct.Email, domain.ErrDuplicateAccount)
			}
			return fmt.Errorf("create account: %w", err)
		}
		if len(outbox) > 0 {
			if err := tx.Create(&outbox).Error; err != nil {
				return fmt.Errorf("write outbox: %w", err)
			}
		}
		return tx.First(&e, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func casEnrollment(tx *gorm.DB, id string, from []domain.EnrollmentStatus, to domain.EnrollmentStatus) error {
	res := tx.Model(&domain.Enrollment{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var cur domain.Enrollment
		if err := tx.First(&cur, "id = ?", id).Error; err != nil {
			return lookupErr(err, "enrollment", id)
		}
		return fmt.Errorf("enrollment %s is %s: %w", id, cur.Status, domain.ErrStaleStatus)
	}
	return nil
}
