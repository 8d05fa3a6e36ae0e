package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Transaction{},
		&domain.Booking{},
		&domain.Enrollment{},
		&domain.Account{},
		&domain.Notification{},
	)
}

// lookupErr maps gorm's not-found into domain.ErrNotFound.
func lookupErr(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}
