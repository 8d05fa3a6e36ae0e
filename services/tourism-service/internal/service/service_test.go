package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/gateway"
	"github.com/you/tourism-booking/services/tourism-service/internal/notify"
	"github.com/you/tourism-booking/services/tourism-service/internal/repository"
	"github.com/you/tourism-booking/services/tourism-service/internal/testutil"
)

// countingTxStore counts status writes that reach the store.
type countingTxStore struct {
	*repository.TransactionRepo
	writes atomic.Int32
}

func (c *countingTxStore) CompareAndSetStatus(ctx context.Context, id, from, to string) (bool, error) {
	c.writes.Add(1)
	return c.TransactionRepo.CompareAndSetStatus(ctx, id, from, to)
}

type LifecycleSuite struct {
	suite.Suite
	ctx context.Context

	db          *gorm.DB
	gw          *testutil.FakeGateway
	sender      *testutil.FakeSender
	txStore     *countingTxStore
	bookings    *repository.BookingRepo
	enrollments *repository.EnrollmentRepo
	accounts    *repository.AccountRepo
	outbox      *repository.OutboxRepo

	txs        *TransactionSvc
	bookingSvc *BookingSvc
	enrollSvc  *EnrollmentSvc
	dispatcher *notify.Dispatcher
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.gw = testutil.NewFakeGateway()
	s.sender = testutil.NewFakeSender()
	s.txStore = &countingTxStore{TransactionRepo: repository.NewTransactionRepo(s.db)}
	s.bookings = repository.NewBookingRepo(s.db)
	s.enrollments = repository.NewEnrollmentRepo(s.db)
	s.accounts = repository.NewAccountRepo(s.db)
	s.outbox = repository.NewOutboxRepo(s.db)

	log := zap.NewNop()
	s.dispatcher = notify.NewDispatcher(s.outbox, s.sender, log)
	s.txs = NewTransactionSvc(s.txStore, s.gw, "THB", "Tourism Booking", log)
	s.bookingSvc = NewBookingSvc(s.bookings, s.accounts, s.txs, s.dispatcher, log)
	s.enrollSvc = NewEnrollmentSvc(s.enrollments, s.txs, s.dispatcher, decimal.NewFromInt(1000), "THB", log)
	s.enrollSvc.hashCost = bcrypt.MinCost
}

func bookingInput(price string) CreateBookingInput {
	return CreateBookingInput{
		TouristInfo:   domain.TouristInfo{Name: "Asha", Email: "asha@example.com", Phone: "0811111111", Adults: 2},
		TravelDetails: domain.TravelDetails{Destination: "Chiang Mai", StartDate: "2026-11-01", EndDate: "2026-11-03"},
		Configuration: domain.BookingConfiguration{
			Package: "temples", DurationDays: 3, GroupSize: 2, Price: decimal.RequireFromString(price),
		},
	}
}

func (s *LifecycleSuite) createGuide(email string, role domain.Role) *domain.Account {
	a := &domain.Account{Email: email, Name: "Guide", Role: role, Status: domain.AccountVerified}
	s.Require().NoError(s.accounts.Create(s.ctx, a))
	return a
}

func (s *LifecycleSuite) orderOf(txID string) string {
	tx, err := s.txs.Transaction(s.ctx, txID)
	s.Require().NoError(err)
	return tx.RemoteOrderID
}

func (s *LifecycleSuite) TestCreateBooking() {
	res, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)

	s.EqualValues(100000, res.Checkout.Amount)
	s.Equal("pkey_test_123", res.Checkout.Key)
	s.Equal("asha@example.com", res.Checkout.Prefill.Email)
	s.Equal("0811111111", res.Checkout.Prefill.Contact)

	tx, err := s.txs.Transaction(s.ctx, res.TransactionID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1000).Equal(tx.Amount))
	s.Equal(domain.ReferenceBooking, tx.ReferenceType)
	s.NotEqual(tx.RemoteOrderID, tx.ID)
	s.Equal(res.Checkout.OrderID, tx.RemoteOrderID)

	b, err := s.bookingSvc.Booking(s.ctx, res.ReferenceID)
	s.Require().NoError(err)
	s.Equal(domain.BookingPaymentPending, b.Status)
	s.Equal(res.TransactionID, b.TransactionID)

	req := s.gw.Requests[0]
	s.Equal(b.ID, req.Metadata["reference_id"])
	s.Equal("booking", req.Metadata["reference_type"])
}

func (s *LifecycleSuite) TestCreateTransactionIsNotIdempotent() {
	cust := CustomerInfo{Name: "Asha", Email: "asha@example.com"}
	opts := TransactionOptions{ReferenceID: "b-1", ReferenceType: domain.ReferenceBooking}

	ids := map[string]bool{}
	for i := 0; i < 5; i++ {
		res, err := s.txs.CreateTransaction(s.ctx, cust, decimal.NewFromInt(10), opts)
		s.Require().NoError(err)
		ids[res.TransactionID] = true
	}
	s.Len(ids, 5)
	s.Equal(5, s.gw.OrderCount())

	all, err := s.txs.ListByReference(s.ctx, "b-1", domain.ReferenceBooking)
	s.Require().NoError(err)
	s.Len(all, 5)
}

func (s *LifecycleSuite) TestCreateTransactionWithoutCustomer() {
	s.gw.NilCustomer = true
	_, err := s.txs.CreateTransaction(s.ctx, CustomerInfo{Email: "x@example.com"}, decimal.NewFromInt(10),
		TransactionOptions{ReferenceID: "b-1", ReferenceType: domain.ReferenceBooking})
	s.ErrorIs(err, domain.ErrServer)
	s.Zero(s.gw.OrderCount())
}

func (s *LifecycleSuite) TestFailedTransactionLeavesBookingRecoverable() {
	s.gw.FailOrder = true
	_, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1500"), "tourist-1")
	s.Require().ErrorIs(err, domain.ErrGateway)
	s.ErrorIs(err, testutil.ErrGatewayDown)

	var pending []domain.Booking
	s.Require().NoError(s.db.Find(&pending).Error)
	s.Require().Len(pending, 1)
	s.Equal(domain.BookingPaymentPending, pending[0].Status)
	s.Empty(pending[0].TransactionID)

	s.gw.FailOrder = false
	res, err := s.bookingSvc.RetryPayment(s.ctx, pending[0].ID)
	s.Require().NoError(err)
	s.EqualValues(150000, res.Checkout.Amount)

	b, err := s.bookingSvc.Booking(s.ctx, pending[0].ID)
	s.Require().NoError(err)
	s.Equal(res.TransactionID, b.TransactionID)
}

func (s *LifecycleSuite) TestReconcileConfirmsBookingOnceGatewayPaid() {
	res, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)

	st, err := s.bookingSvc.TransactionStatus(s.ctx, res.ReferenceID)
	s.Require().NoError(err)
	s.Equal(gateway.StatusCreated, st.OrderStatus)
	s.Equal(domain.BookingPaymentPending, st.BookingStatus)

	s.gw.SetStatus(res.Checkout.OrderID, gateway.StatusPaid)

	st, err = s.bookingSvc.TransactionStatus(s.ctx, res.ReferenceID)
	s.Require().NoError(err)
	s.Equal(gateway.StatusPaid, st.OrderStatus)
	s.Equal(gateway.StatusPaid, st.Status)
	s.Equal(domain.BookingConfirmed, st.BookingStatus)

	_, err = s.bookingSvc.RetryPayment(s.ctx, res.ReferenceID)
	s.ErrorIs(err, domain.ErrInvalidStatus)
}

func (s *LifecycleSuite) TestReconcileConfirmsWhenEarlierAttemptPaid() {
	first, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)
	retry, err := s.bookingSvc.RetryPayment(s.ctx, first.ReferenceID)
	s.Require().NoError(err)
	s.NotEqual(first.Checkout.OrderID, retry.Checkout.OrderID)

	st, err := s.bookingSvc.TransactionStatus(s.ctx, first.ReferenceID)
	s.Require().NoError(err)
	s.Equal(retry.TransactionID, st.TransactionID)
	s.Equal(domain.BookingPaymentPending, st.BookingStatus)

	// the tourist pays the link opened first
	s.gw.SetStatus(first.Checkout.OrderID, gateway.StatusPaid)

	st, err = s.bookingSvc.TransactionStatus(s.ctx, first.ReferenceID)
	s.Require().NoError(err)
	s.Equal(domain.BookingConfirmed, st.BookingStatus)
	s.Equal(first.TransactionID, st.TransactionID)
	s.Equal(gateway.StatusPaid, st.OrderStatus)

	b, err := s.bookingSvc.Booking(s.ctx, first.ReferenceID)
	s.Require().NoError(err)
	s.Equal(domain.BookingConfirmed, b.Status)
	s.Equal(first.TransactionID, b.TransactionID)

	// once confirmed only the linked transaction is checked
	st, err = s.bookingSvc.TransactionStatus(s.ctx, first.ReferenceID)
	s.Require().NoError(err)
	s.Equal(first.TransactionID, st.TransactionID)
	s.Equal(domain.BookingConfirmed, st.BookingStatus)
}

func (s *LifecycleSuite) TestReconcileWritesOnlyOnChange() {
	res, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)

	_, err = s.txs.TransactionStatus(s.ctx, res.TransactionID)
	s.Require().NoError(err)
	s.EqualValues(0, s.txStore.writes.Load())

	s.gw.SetStatus(res.Checkout.OrderID, gateway.StatusPaid)
	first, err := s.txs.TransactionStatus(s.ctx, res.TransactionID)
	s.Require().NoError(err)
	s.EqualValues(1, s.txStore.writes.Load())

	second, err := s.txs.TransactionStatus(s.ctx, res.TransactionID)
	s.Require().NoError(err)
	s.EqualValues(1, s.txStore.writes.Load())
	s.Equal(first.Status, second.Status)
}

func (s *LifecycleSuite) TestTransactionStatusNotFound() {
	_, err := s.txs.TransactionStatus(s.ctx, "missing")
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = s.bookingSvc.TransactionStatus(s.ctx, "missing")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *LifecycleSuite) TestAllocateGuide() {
	res, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)
	guide := s.createGuide("guide@example.com", domain.RoleGuide)

	// allowed ahead of payment reconciliation
	b, err := s.bookingSvc.AllocateGuide(s.ctx, res.ReferenceID, guide.ID)
	s.Require().NoError(err)
	s.Equal(domain.BookingAllocated, b.Status)
	s.Require().NotNil(b.AllocatedGuide)
	s.Equal(guide.ID, *b.AllocatedGuide)
	s.True(b.Consistent())

	s.ElementsMatch(
		[]domain.NotificationKind{domain.NotifyBookingAllocatedTourist, domain.NotifyBookingAllocatedGuide},
		s.sender.SentKinds())

	_, err = s.bookingSvc.AllocateGuide(s.ctx, res.ReferenceID, guide.ID)
	s.ErrorIs(err, domain.ErrInvalidStatus)
	s.Len(s.sender.Sent(), 2)
}

func (s *LifecycleSuite) TestAllocateNonGuideLeavesBookingUnchanged() {
	res, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)
	tourist := s.createGuide("tourist@example.com", domain.RoleTourist)

	_, err = s.bookingSvc.AllocateGuide(s.ctx, res.ReferenceID, tourist.ID)
	s.ErrorIs(err, domain.ErrServer)
	s.ErrorIs(err, domain.ErrNotGuide)

	b, err := s.bookingSvc.Booking(s.ctx, res.ReferenceID)
	s.Require().NoError(err)
	s.Equal(domain.BookingPaymentPending, b.Status)
	s.Nil(b.AllocatedGuide)
	s.Empty(s.sender.Sent())
}

func (s *LifecycleSuite) TestAllocateMissingEntities() {
	res, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)
	guide := s.createGuide("guide@example.com", domain.RoleGuide)

	_, err = s.bookingSvc.AllocateGuide(s.ctx, "missing", guide.ID)
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = s.bookingSvc.AllocateGuide(s.ctx, res.ReferenceID, "missing")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *LifecycleSuite) TestAllocateNotificationFailureKeepsAllocation() {
	res, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)
	guide := s.createGuide("guide@example.com", domain.RoleGuide)
	s.sender.FailKinds[domain.NotifyBookingAllocatedGuide] = true

	b, err := s.bookingSvc.AllocateGuide(s.ctx, res.ReferenceID, guide.ID)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrNotificationFailed)
	s.ErrorIs(err, domain.ErrServer)

	var side *domain.SideEffectError
	s.Require().True(errors.As(err, &side))
	s.Contains(side.Committed, res.ReferenceID)
	s.Require().NotNil(b)
	s.Equal(domain.BookingAllocated, b.Status)

	pending, err := s.outbox.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(domain.NotifyBookingAllocatedGuide, pending[0].Kind)

	delete(s.sender.FailKinds, domain.NotifyBookingAllocatedGuide)
	sent, err := s.dispatcher.RelayOnce(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(1, sent)
}

func (s *LifecycleSuite) enroll() *domain.Enrollment {
	e, err := s.enrollSvc.Enroll(s.ctx, EnrollInput{
		Name: "Ravi", Email: "Ravi@Example.com", Phone: "0822222222",
		Profile: domain.GuideProfile{Languages: []string{"en", "th"}, ExperienceYears: 4},
	})
	s.Require().NoError(err)
	return e
}

// paidEnrollment walks an enrollment to payment-pending and pays its fee.
func (s *LifecycleSuite) paidEnrollment() (*domain.Enrollment, string) {
	e := s.enroll()
	_, err := s.enrollSvc.UpdateStatus(s.ctx, e.ID, domain.EnrollmentPaymentPending)
	s.Require().NoError(err)
	res, err := s.enrollSvc.RequestPaymentLink(s.ctx, e.ID)
	s.Require().NoError(err)
	s.gw.SetStatus(res.Checkout.OrderID, gateway.StatusPaid)
	return e, res.TransactionID
}

func (s *LifecycleSuite) TestEnrollmentStatusTransitions() {
	e := s.enroll()
	s.Equal(domain.EnrollmentUnverified, e.Status)
	s.Equal("ravi@example.com", e.Email)

	_, err := s.enrollSvc.RequestPaymentLink(s.ctx, e.ID)
	s.ErrorIs(err, domain.ErrInvalidStatus)

	updated, err := s.enrollSvc.UpdateStatus(s.ctx, e.ID, domain.EnrollmentPaymentPending)
	s.Require().NoError(err)
	s.Equal(domain.EnrollmentPaymentPending, updated.Status)

	sent := s.sender.Sent()
	s.Require().Len(sent, 1)
	s.Equal(domain.NotifyEnrollmentPaymentLink, sent[0].Kind)
	var link notify.EnrollmentPaymentLink
	s.Require().NoError(json.Unmarshal(sent[0].Payload, &link))
	s.Equal("1000.00", link.Fee)

	_, err = s.enrollSvc.UpdateStatus(s.ctx, e.ID, domain.EnrollmentUnverified)
	s.ErrorIs(err, domain.ErrInvalidStatus)
	_, err = s.enrollSvc.UpdateStatus(s.ctx, e.ID, "archived")
	s.ErrorIs(err, domain.ErrServer)

	res, err := s.enrollSvc.RequestPaymentLink(s.ctx, e.ID)
	s.Require().NoError(err)
	s.EqualValues(100000, res.Checkout.Amount)
	s.Equal(e.ID, res.ReferenceID)
}

func (s *LifecycleSuite) TestPaymentLinkNotificationFailure() {
	e := s.enroll()
	s.sender.SetFail(true)

	updated, err := s.enrollSvc.UpdateStatus(s.ctx, e.ID, domain.EnrollmentPaymentPending)
	s.ErrorIs(err, domain.ErrNotificationFailed)
	var side *domain.SideEffectError
	s.True(errors.As(err, &side))
	s.Require().NotNil(updated)

	stored, err := s.enrollSvc.Enrollment(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(domain.EnrollmentPaymentPending, stored.Status)
}

func (s *LifecycleSuite) TestConfirmPayment() {
	e, txID := s.paidEnrollment()

	acct, err := s.enrollSvc.ConfirmPayment(s.ctx, e.ID, txID)
	s.Require().NoError(err)
	s.Equal(domain.RoleGuide, acct.Role)
	s.Equal(domain.AccountVerified, acct.Status)
	s.Equal("ravi@example.com", acct.Email)

	stored, err := s.enrollSvc.Enrollment(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(domain.EnrollmentVerified, stored.Status)

	var creds *notify.EnrollmentCredentials
	for _, n := range s.sender.Sent() {
		if n.Kind == domain.NotifyEnrollmentCredentials {
			creds = &notify.EnrollmentCredentials{}
			s.Require().NoError(json.Unmarshal(n.Payload, creds))
		}
	}
	s.Require().NotNil(creds)
	s.Len(creds.Password, passwordLength)

	saved, err := s.accounts.ByEmail(s.ctx, "ravi@example.com")
	s.Require().NoError(err)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte(creds.Password)))

	// retried confirmation
	_, err = s.enrollSvc.ConfirmPayment(s.ctx, e.ID, txID)
	s.ErrorIs(err, domain.ErrServer)
	s.ErrorIs(err, domain.ErrDuplicateAccount)
}

func (s *LifecycleSuite) TestConfirmPaymentRejectsForeignTransaction() {
	e := s.enroll()
	_, err := s.enrollSvc.UpdateStatus(s.ctx, e.ID, domain.EnrollmentPaymentPending)
	s.Require().NoError(err)

	res, err := s.bookingSvc.CreateBooking(s.ctx, bookingInput("1000"), "tourist-1")
	s.Require().NoError(err)
	s.gw.SetStatus(res.Checkout.OrderID, gateway.StatusPaid)

	_, err = s.enrollSvc.ConfirmPayment(s.ctx, e.ID, res.TransactionID)
	s.ErrorIs(err, domain.ErrNotFound)

	_, err = s.enrollSvc.ConfirmPayment(s.ctx, e.ID, "missing")
	s.ErrorIs(err, domain.ErrNotFound)

	stored, err := s.enrollSvc.Enrollment(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(domain.EnrollmentPaymentPending, stored.Status)
	var n int64
	s.Require().NoError(s.db.Model(&domain.Account{}).Count(&n).Error)
	s.Zero(n)
}

func (s *LifecycleSuite) TestConfirmPaymentRequiresPaidOrder() {
	e := s.enroll()
	_, err := s.enrollSvc.UpdateStatus(s.ctx, e.ID, domain.EnrollmentPaymentPending)
	s.Require().NoError(err)
	res, err := s.enrollSvc.RequestPaymentLink(s.ctx, e.ID)
	s.Require().NoError(err)

	_, err = s.enrollSvc.ConfirmPayment(s.ctx, e.ID, res.TransactionID)
	s.ErrorIs(err, domain.ErrPaymentIncomplete)

	stored, err := s.enrollSvc.Enrollment(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(domain.EnrollmentPaymentPending, stored.Status)
}

func (s *LifecycleSuite) TestConcurrentConfirmPaymentProvisionsOnce() {
	e, txID := s.paidEnrollment()

	const callers = 2
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.enrollSvc.ConfirmPayment(s.ctx, e.ID, txID)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, domain.ErrServer)
	}
	s.Equal(1, succeeded)

	var n int64
	s.Require().NoError(s.db.Model(&domain.Account{}).Where("email = ?", "ravi@example.com").Count(&n).Error)
	s.EqualValues(1, n)
}

func (s *LifecycleSuite) TestCredentialsNotificationFailure() {
	e, txID := s.paidEnrollment()
	s.sender.FailKinds[domain.NotifyEnrollmentCredentials] = true

	acct, err := s.enrollSvc.ConfirmPayment(s.ctx, e.ID, txID)
	s.ErrorIs(err, domain.ErrNotificationFailed)
	s.Require().NotNil(acct)

	_, err = s.accounts.ByID(s.ctx, acct.ID)
	s.NoError(err)
	pending, err := s.outbox.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(domain.NotifyEnrollmentCredentials, pending[0].Kind)
}

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := generatePassword(passwordLength)
		if err != nil {
			t.Fatal(err)
		}
		if len(p) != passwordLength {
			t.Fatalf("length %d", len(p))
		}
		seen[p] = true
	}
	if len(seen) != 50 {
		t.Fatalf("expected unique passwords, got %d", len(seen))
	}
}
