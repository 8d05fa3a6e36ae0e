package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

type OutboxRepo struct{ db *gorm.DB }

func NewOutboxRepo(db *gorm.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

func (r *OutboxRepo) ByIDs(ctx context.Context, ids []string) ([]domain.Notification, error) {
	var out []domain.Notification
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&out).Error
	return out, err
}

// Pending returns the oldest unsent notifications.
func (r *OutboxRepo) Pending(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Notification
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.NotificationPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *OutboxRepo) MarkSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND status = ?", id, domain.NotificationPending).
		Updates(map[string]any{
			"status":     domain.NotificationSent,
			"sent_at":    now,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
		}).Error
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id, reason string) error {
	return r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}
