package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

type AccountRepo struct{ db *gorm.DB }

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(a.Email)
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("account %s: %w", a.Email, domain.ErrDuplicateAccount)
		}
		return err
	}
	return nil
}

func (r *AccountRepo) ByID(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "account", id)
	}
	return &a, nil
}

func (r *AccountRepo) ByEmail(ctx context.Context, email string) (*domain.Account, error) {
	email = strings.ToLower(email)
	var a domain.Account
	if err := r.db.WithContext(ctx).First(&a, "email = ?", email).Error; err != nil {
		return nil, lookupErr(err, "account", email)
	}
	return &a, nil
}

func (r *AccountRepo) CountByEmail(ctx context.Context, email string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Account{}).Where("email = ?", strings.ToLower(email)).Count(&n).Error
	return n, err
}
