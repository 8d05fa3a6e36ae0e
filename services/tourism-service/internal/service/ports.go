package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/gateway"
)

var tracer = otel.Tracer("tourism-service/service")

type Gateway interface {
	CreateCustomer(ctx context.Context, name, email, phone string) (*gateway.Customer, error)
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	OrderStatus(ctx context.Context, orderID string) (string, error)
	PublicKey() string
}

type TransactionStore interface {
	Create(ctx context.Context, t *domain.Transaction) error
	ByID(ctx context.Context, id string) (*domain.Transaction, error)
	LatestByReference(ctx context.Context, refID string, refType domain.ReferenceType) (*domain.Transaction, error)
	ListByReference(ctx context.Context, refID string, refType domain.ReferenceType) ([]domain.Transaction, error)
	CompareAndSetStatus(ctx context.Context, id, from, to string) (bool, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *domain.Booking) error
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	LinkTransaction(ctx context.Context, id, txID string) error
	Transition(ctx context.Context, id string, from []domain.BookingStatus, to domain.BookingStatus) (*domain.Booking, error)
	Allocate(ctx context.Context, id, guideID string, from []domain.BookingStatus, outbox []domain.Notification) (*domain.Booking, error)
	ListByTourist(ctx context.Context, touristID string, page, size int) ([]domain.Booking, int64, error)
}

type EnrollmentStore interface {
	Create(ctx context.Context, e *domain.Enrollment) error
	ByID(ctx context.Context, id string) (*domain.Enrollment, error)
	Transition(ctx context.Context, id string, from, to domain.EnrollmentStatus, outbox ...domain.Notification) (*domain.Enrollment, error)
	Verify(ctx context.Context, id string, acct *domain.Account, outbox ...domain.Notification) (*domain.Enrollment, error)
}

type AccountStore interface {
	ByID(ctx context.Context, id string) (*domain.Account, error)
}

// Dispatcher sends outbox rows that were committed with a state change.
type Dispatcher interface {
	Deliver(ctx context.Context, ids ...string) error
}

// finish records err on the span and ends it.
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
