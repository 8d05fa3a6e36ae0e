package notify_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/notify"
	"github.com/you/tourism-booking/services/tourism-service/internal/repository"
	"github.com/you/tourism-booking/services/tourism-service/internal/testutil"
)

func TestDispatcher_DeliverMarksSent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := repository.NewOutboxRepo(db)
	sender := testutil.NewFakeSender()
	d := notify.NewDispatcher(store, sender, zap.NewNop())

	a, _ := domain.NewNotification(domain.NotifyBookingAllocatedTourist, "t@example.com", notify.BookingAllocatedTourist{BookingID: "b-1"})
	b, _ := domain.NewNotification(domain.NotifyBookingAllocatedGuide, "g@example.com", notify.BookingAllocatedGuide{BookingID: "b-1"})
	require.NoError(t, db.Create(&[]domain.Notification{a, b}).Error)

	require.NoError(t, d.Deliver(ctx, a.ID, b.ID))
	assert.ElementsMatch(t,
		[]domain.NotificationKind{domain.NotifyBookingAllocatedTourist, domain.NotifyBookingAllocatedGuide},
		sender.SentKinds())

	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// already sent rows are not sent twice
	require.NoError(t, d.Deliver(ctx, a.ID))
	assert.Len(t, sender.Sent(), 2)
}

func TestDispatcher_DeliverReportsEveryFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := repository.NewOutboxRepo(db)
	sender := testutil.NewFakeSender()
	sender.FailKinds[domain.NotifyBookingAllocatedGuide] = true
	d := notify.NewDispatcher(store, sender, zap.NewNop())

	a, _ := domain.NewNotification(domain.NotifyBookingAllocatedTourist, "t@example.com", nil)
	b, _ := domain.NewNotification(domain.NotifyBookingAllocatedGuide, "g@example.com", nil)
	require.NoError(t, db.Create(&[]domain.Notification{a, b}).Error)

	err := d.Deliver(ctx, a.ID, b.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrSendFailed)
	assert.Len(t, multierr.Errors(err), 1)

	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)
}

func TestDispatcher_DeliverUnknownID(t *testing.T) {
	db := testutil.NewDB(t)
	d := notify.NewDispatcher(repository.NewOutboxRepo(db), testutil.NewFakeSender(), zap.NewNop())
	assert.Error(t, d.Deliver(context.Background(), "missing"))
}

func TestDispatcher_RelayOnceRetriesPending(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := repository.NewOutboxRepo(db)
	sender := testutil.NewFakeSender()
	d := notify.NewDispatcher(store, sender, zap.NewNop())

	n, _ := domain.NewNotification(domain.NotifyEnrollmentCredentials, "g@example.com", nil)
	require.NoError(t, db.Create(&n).Error)

	sender.SetFail(true)
	sent, err := d.RelayOnce(ctx, 10)
	assert.Error(t, err)
	assert.Zero(t, sent)

	sender.SetFail(false)
	sent, err = d.RelayOnce(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = d.RelayOnce(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

type capturePublisher struct {
	key string
	v   any
}

func (p *capturePublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.key, p.v = key, v
	return nil
}

func TestMQSender_Envelope(t *testing.T) {
	pub := &capturePublisher{}
	n, err := domain.NewNotification(domain.NotifyEnrollmentPaymentLink, "g@example.com",
		notify.EnrollmentPaymentLink{EnrollmentID: "e-1", Fee: "1000", Currency: "THB"})
	require.NoError(t, err)

	require.NoError(t, notify.NewMQSender(pub).Send(context.Background(), n))
	assert.Equal(t, "notify.enrollment.payment_link", pub.key)

	env, ok := pub.v.(notify.Envelope)
	require.True(t, ok)
	assert.Equal(t, n.ID, env.ID)
	assert.Equal(t, "g@example.com", env.Recipient)

	var body notify.EnrollmentPaymentLink
	require.NoError(t, json.Unmarshal(env.Payload, &body))
	assert.Equal(t, "e-1", body.EnrollmentID)
}
