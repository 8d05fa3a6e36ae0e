package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/notify"
)

type CreateBookingInput struct {
	TouristInfo      domain.TouristInfo
	TravelDetails    domain.TravelDetails
	GuidePreferences domain.GuidePreferences
	Configuration    domain.BookingConfiguration
}

type BookingPaymentStatus struct {
	BookingID     string               `json:"booking_id"`
	BookingStatus domain.BookingStatus `json:"booking_status"`
	ReconciledStatus
}

// BookingSvc drives payment-pending -> confirmed -> allocated.
type BookingSvc struct {
	store    BookingStore
	accounts AccountStore
	txs      *TransactionSvc
	notifier Dispatcher
	log      *zap.Logger
}

func NewBookingSvc(store BookingStore, accounts AccountStore, txs *TransactionSvc, notifier Dispatcher, log *zap.Logger) *BookingSvc {
	return &BookingSvc{store: store, accounts: accounts, txs: txs, notifier: notifier, log: log}
}

// CreateBooking stores the booking as payment-pending and opens its first
// transaction. If the transaction cannot be opened the booking stays pending
// and RetryPayment can open another.
func (s *BookingSvc) CreateBooking(ctx context.Context, in CreateBookingInput, touristID string) (res *CheckoutResult, err error) {
	ctx, span := tracer.Start(ctx, "BookingSvc.CreateBooking")
	defer func() { finish(span, err) }()

	b := &domain.Booking{
		ID:               uuid.NewString(),
		TouristID:        touristID,
		TouristInfo:      datatypes.NewJSONType(in.TouristInfo),
		TravelDetails:    datatypes.NewJSONType(in.TravelDetails),
		GuidePreferences: datatypes.NewJSONType(in.GuidePreferences),
		Configuration:    datatypes.NewJSONType(in.Configuration),
		Status:           domain.BookingPaymentPending,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("save booking: %w", err)
	}
	span.SetAttributes(attribute.String("booking.id", b.ID))
	s.log.Info("booking created", zap.String("booking_id", b.ID), zap.String("tourist_id", touristID))

	return s.openTransaction(ctx, b)
}

// RetryPayment opens a fresh transaction for a booking still awaiting payment.
func (s *BookingSvc) RetryPayment(ctx context.Context, bookingID string) (res *CheckoutResult, err error) {
	ctx, span := tracer.Start(ctx, "BookingSvc.RetryPayment")
	span.SetAttributes(attribute.String("booking.id", bookingID))
	defer func() { finish(span, err) }()

	b, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingPaymentPending {
		return nil, fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, domain.ErrInvalidStatus)
	}
	return s.openTransaction(ctx, b)
}

func (s *BookingSvc) openTransaction(ctx context.Context, b *domain.Booking) (*CheckoutResult, error) {
	info := b.TouristInfo.Data()
	travel := b.TravelDetails.Data()
	cfg := b.Configuration.Data()

	res, err := s.txs.CreateTransaction(ctx,
		CustomerInfo{Name: info.Name, Email: info.Email, Phone: info.Phone},
		b.Price(),
		TransactionOptions{
			ReferenceID:   b.ID,
			ReferenceType: domain.ReferenceBooking,
			Metadata: map[string]string{
				"tourist_id":  b.TouristID,
				"destination": travel.Destination,
				"package":     cfg.Package,
			},
			Description: fmt.Sprintf("Tour to %s, %s to %s", travel.Destination, travel.StartDate, travel.EndDate),
		})
	if err != nil {
		s.log.Warn("booking left awaiting payment", zap.String("booking_id", b.ID), zap.Error(err))
		return nil, fmt.Errorf("open transaction for booking %s: %w", b.ID, err)
	}
	if err := s.store.LinkTransaction(ctx, b.ID, res.TransactionID); err != nil {
		return nil, err
	}
	return res, nil
}

// TransactionStatus reconciles the booking's payment and confirms the booking
// once the gateway reports it paid. It is the only way out of payment-pending.
// While the booking is pending every attempt is checked, since an earlier
// link stays payable after RetryPayment opens a newer one.
func (s *BookingSvc) TransactionStatus(ctx context.Context, bookingID string) (res *BookingPaymentStatus, err error) {
	ctx, span := tracer.Start(ctx, "BookingSvc.TransactionStatus")
	span.SetAttributes(attribute.String("booking.id", bookingID))
	defer func() { finish(span, err) }()

	b, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var st *ReconciledStatus
	if b.Status == domain.BookingPaymentPending {
		st, err = s.reconcileAttempts(ctx, b)
	} else {
		st, err = s.reconcileLinked(ctx, b)
	}
	if err != nil {
		return nil, err
	}

	if st.Paid() && b.Status == domain.BookingPaymentPending {
		if st.TransactionID != b.TransactionID {
			if err := s.store.LinkTransaction(ctx, b.ID, st.TransactionID); err != nil && !errors.Is(err, domain.ErrStaleStatus) {
				return nil, err
			}
		}
		confirmed, err := s.store.Transition(ctx, b.ID,
			[]domain.BookingStatus{domain.BookingPaymentPending}, domain.BookingConfirmed)
		switch {
		case err == nil:
			s.log.Info("booking confirmed", zap.String("booking_id", b.ID), zap.String("transaction_id", st.TransactionID))
			b = confirmed
		case errors.Is(err, domain.ErrStaleStatus):
			// moved on concurrently
			if b, err = s.store.ByID(ctx, bookingID); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	return &BookingPaymentStatus{BookingID: b.ID, BookingStatus: b.Status, ReconciledStatus: *st}, nil
}

// reconcileLinked checks the linked transaction, or the latest attempt when
// none is linked.
func (s *BookingSvc) reconcileLinked(ctx context.Context, b *domain.Booking) (*ReconciledStatus, error) {
	txID := b.TransactionID
	if txID == "" {
		latest, err := s.txs.TransactionByReference(ctx, b.ID, domain.ReferenceBooking)
		if err != nil {
			return nil, err
		}
		txID = latest.ID
	}
	return s.txs.TransactionStatus(ctx, txID)
}

// reconcileAttempts checks every transaction opened for the booking and
// returns the first paid one. Otherwise it returns the linked attempt's status,
// falling back to the newest.
func (s *BookingSvc) reconcileAttempts(ctx context.Context, b *domain.Booking) (*ReconciledStatus, error) {
	attempts, err := s.txs.ListByReference(ctx, b.ID, domain.ReferenceBooking)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, fmt.Errorf("transaction for booking %s: %w", b.ID, domain.ErrNotFound)
	}

	var current *ReconciledStatus
	for _, tx := range attempts {
		st, err := s.txs.TransactionStatus(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
		if st.Paid() {
			return st, nil
		}
		if current == nil || tx.ID == b.TransactionID {
			current = st
		}
	}
	return current, nil
}

// AllocateGuide assigns a guide and commits both allocation notifications
// with it, then sends them. A send failure returns the allocated booking
// together with a *domain.SideEffectError.
func (s *BookingSvc) AllocateGuide(ctx context.Context, bookingID, guideID string) (res *domain.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingSvc.AllocateGuide")
	span.SetAttributes(attribute.String("booking.id", bookingID), attribute.String("guide.id", guideID))
	defer func() { finish(span, err) }()

	b, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	guide, err := s.accounts.ByID(ctx, guideID)
	if err != nil {
		return nil, err
	}
	if guide.Role != domain.RoleGuide {
		return nil, fmt.Errorf("account %s has role %s: %w", guide.ID, guide.Role, domain.ErrNotGuide)
	}
	if !b.Status.Allocatable() {
		return nil, fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, domain.ErrInvalidStatus)
	}

	outbox, err := allocationNotifications(b, guide)
	if err != nil {
		return nil, err
	}
	allocated, err := s.store.Allocate(ctx, b.ID, guide.ID, domain.AllocatableStatuses, outbox)
	if err != nil {
		return nil, err
	}
	s.log.Info("guide allocated", zap.String("booking_id", b.ID), zap.String("guide_id", guide.ID))

	if err := s.notifier.Deliver(ctx, domain.NotificationIDs(outbox)...); err != nil {
		return allocated, &domain.SideEffectError{
			Op:        "allocate guide",
			Committed: fmt.Sprintf("booking %s allocated to %s", b.ID, guide.ID),
			Err:       fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err),
		}
	}
	return allocated, nil
}

func allocationNotifications(b *domain.Booking, guide *domain.Account) ([]domain.Notification, error) {
	info := b.TouristInfo.Data()
	travel := b.TravelDetails.Data()

	toTourist, err := domain.NewNotification(domain.NotifyBookingAllocatedTourist, info.Email, notify.BookingAllocatedTourist{
		BookingID:   b.ID,
		TouristName: info.Name,
		GuideName:   guide.Name,
		GuideEmail:  guide.Email,
		GuidePhone:  guide.Phone,
		Destination: travel.Destination,
		StartDate:   travel.StartDate,
		EndDate:     travel.EndDate,
	})
	if err != nil {
		return nil, err
	}
	toGuide, err := domain.NewNotification(domain.NotifyBookingAllocatedGuide, guide.Email, notify.BookingAllocatedGuide{
		BookingID:      b.ID,
		GuideName:      guide.Name,
		TouristName:    info.Name,
		TouristEmail:   info.Email,
		TouristPhone:   info.Phone,
		Destination:    travel.Destination,
		StartDate:      travel.StartDate,
		EndDate:        travel.EndDate,
		PickupLocation: travel.PickupLocation,
		Adults:         info.Adults,
		Children:       info.Children,
	})
	if err != nil {
		return nil, err
	}
	return []domain.Notification{toTourist, toGuide}, nil
}

func (s *BookingSvc) Booking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.store.ByID(ctx, id)
}

func (s *BookingSvc) BookingsForTourist(ctx context.Context, touristID string, page, size int) ([]domain.Booking, int64, error) {
	return s.store.ListByTourist(ctx, touristID, page, size)
}
