package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

type TransactionRepo struct{ db *gorm.DB }

func NewTransactionRepo(db *gorm.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepo) ByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "transaction", id)
	}
	return &t, nil
}

// LatestByReference returns the most recent attempt for a booking or enrollment.
func (r *TransactionRepo) LatestByReference(ctx context.Context, refID string, refType domain.ReferenceType) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.WithContext(ctx).
		Where("reference_id = ? AND reference_type = ?", refID, refType).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, lookupErr(err, "transaction for "+string(refType), refID)
	}
	return &t, nil
}

func (r *TransactionRepo) ListByReference(ctx context.Context, refID string, refType domain.ReferenceType) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := r.db.WithContext(ctx).
		Where("reference_id = ? AND reference_type = ?", refID, refType).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// CompareAndSetStatus writes to only if the stored status is still from.
func (r *TransactionRepo) CompareAndSetStatus(ctx context.Context, id, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
