package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/notify"
)

type EnrollInput struct {
	Name    string
	Email   string
	Phone   string
	Profile domain.GuideProfile
}

// EnrollmentSvc drives unverified -> payment-pending -> verified and
// provisions the guide account on verified payment.
type EnrollmentSvc struct {
	store    EnrollmentStore
	txs      *TransactionSvc
	notifier Dispatcher
	fee      decimal.Decimal
	currency string
	hashCost int
	log      *zap.Logger
}

func NewEnrollmentSvc(store EnrollmentStore, txs *TransactionSvc, notifier Dispatcher, fee decimal.Decimal, currency string, log *zap.Logger) *EnrollmentSvc {
	return &EnrollmentSvc{
		store:    store,
		txs:      txs,
		notifier: notifier,
		fee:      fee,
		currency: currency,
		hashCost: bcrypt.DefaultCost,
		log:      log,
	}
}

func (s *EnrollmentSvc) Enroll(ctx context.Context, in EnrollInput) (*domain.Enrollment, error) {
	e := &domain.Enrollment{
		ID:      uuid.NewString(),
		Name:    in.Name,
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:   in.Phone,
		Profile: datatypes.NewJSONType(in.Profile),
		Status:  domain.EnrollmentUnverified,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("save enrollment: %w", err)
	}
	s.log.Info("enrollment created", zap.String("enrollment_id", e.ID))
	return e, nil
}

// UpdateStatus is the administrative forward transition. Entering
// payment-pending commits a payment-link notification with the change.
func (s *EnrollmentSvc) UpdateStatus(ctx context.Context, enrollmentID string, to domain.EnrollmentStatus) (res *domain.Enrollment, err error) {
	ctx, span := tracer.Start(ctx, "EnrollmentSvc.UpdateStatus")
	span.SetAttributes(attribute.String("enrollment.id", enrollmentID), attribute.String("status", string(to)))
	defer func() { finish(span, err) }()

	if !to.Valid() {
		return nil, fmt.Errorf("unknown enrollment status %q: %w", to, domain.ErrInvalidStatus)
	}
	e, err := s.store.ByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if !e.Status.Before(to) {
		return nil, fmt.Errorf("enrollment %s cannot move from %s to %s: %w", e.ID, e.Status, to, domain.ErrInvalidStatus)
	}

	var outbox []domain.Notification
	if to == domain.EnrollmentPaymentPending {
		n, err := domain.NewNotification(domain.NotifyEnrollmentPaymentLink, e.Email, notify.EnrollmentPaymentLink{
			EnrollmentID: e.ID,
			Name:         e.Name,
			Fee:          s.fee.StringFixed(2),
			Currency:     s.currency,
		})
		if err != nil {
			return nil, err
		}
		outbox = append(outbox, n)
	}

	updated, err := s.store.Transition(ctx, e.ID, e.Status, to, outbox...)
	if err != nil {
		return nil, err
	}
	s.log.Info("enrollment status changed",
		zap.String("enrollment_id", e.ID),
		zap.String("from", string(e.Status)),
		zap.String("to", string(to)))

	if len(outbox) > 0 {
		if err := s.notifier.Deliver(ctx, domain.NotificationIDs(outbox)...); err != nil {
			return updated, &domain.SideEffectError{
				Op:        "update enrollment status",
				Committed: fmt.Sprintf("enrollment %s is %s", e.ID, to),
				Err:       fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err),
			}
		}
	}
	return updated, nil
}

// RequestPaymentLink opens a transaction for the enrollment fee.
func (s *EnrollmentSvc) RequestPaymentLink(ctx context.Context, enrollmentID string) (res *CheckoutResult, err error) {
	ctx, span := tracer.Start(ctx, "EnrollmentSvc.RequestPaymentLink")
	span.SetAttributes(attribute.String("enrollment.id", enrollmentID))
	defer func() { finish(span, err) }()

	e, err := s.store.ByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e.Status != domain.EnrollmentPaymentPending {
		return nil, fmt.Errorf("enrollment %s is %s: %w", e.ID, e.Status, domain.ErrInvalidStatus)
	}
	return s.txs.CreateTransaction(ctx,
		CustomerInfo{Name: e.Name, Email: e.Email, Phone: e.Phone},
		s.fee,
		TransactionOptions{
			ReferenceID:   e.ID,
			ReferenceType: domain.ReferenceEnrollment,
			Metadata:      map[string]string{"email": e.Email},
			Description:   "Guide enrollment fee",
		})
}

// ConfirmPayment verifies the enrollment once its transaction is paid and
// provisions exactly one guide account for the enrollment email. The
// verification, the account and the credentials notification commit
// together; a second confirmation fails on the existing account.
func (s *EnrollmentSvc) ConfirmPayment(ctx context.Context, enrollmentID, transactionID string) (res *domain.Account, err error) {
	ctx, span := tracer.Start(ctx, "EnrollmentSvc.ConfirmPayment")
	span.SetAttributes(attribute.String("enrollment.id", enrollmentID), attribute.String("transaction.id", transactionID))
	defer func() { finish(span, err) }()

	tx, err := s.txs.Transaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.ReferenceID != enrollmentID || tx.ReferenceType != domain.ReferenceEnrollment {
		return nil, fmt.Errorf("transaction %s for enrollment %s: %w", transactionID, enrollmentID, domain.ErrNotFound)
	}

	st, err := s.txs.TransactionStatus(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !st.Paid() {
		return nil, fmt.Errorf("transaction %s is %s: %w", transactionID, st.OrderStatus, domain.ErrPaymentIncomplete)
	}

	e, err := s.store.ByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	password, err := generatePassword(passwordLength)
	if err != nil {
		return nil, fmt.Errorf("generate credential: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	email := strings.ToLower(e.Email)
	acct := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         e.Name,
		Phone:        e.Phone,
		Role:         domain.RoleGuide,
		Status:       domain.AccountVerified,
		PasswordHash: string(hash),
		EnrollmentID: &e.ID,
	}
	note, err := domain.NewNotification(domain.NotifyEnrollmentCredentials, email, notify.EnrollmentCredentials{
		EnrollmentID: e.ID,
		Name:         e.Name,
		Email:        email,
		Password:     password,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Verify(ctx, e.ID, acct, note); err != nil {
		return nil, err
	}
	s.log.Info("guide account provisioned",
		zap.String("enrollment_id", e.ID),
		zap.String("account_id", acct.ID))

	if err := s.notifier.Deliver(ctx, note.ID); err != nil {
		return acct, &domain.SideEffectError{
			Op:        "confirm enrollment payment",
			Committed: fmt.Sprintf("enrollment %s verified, account %s created", e.ID, acct.ID),
			Err:       fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err),
		}
	}
	return acct, nil
}

func (s *EnrollmentSvc) Enrollment(ctx context.Context, id string) (*domain.Enrollment, error) {
	return s.store.ByID(ctx, id)
}

const (
	passwordLength   = 16
	passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%*"
)

func generatePassword(n int) (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(passwordAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}
