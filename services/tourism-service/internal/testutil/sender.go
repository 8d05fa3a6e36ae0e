package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

var ErrSendFailed = errors.New("send failed")

// FakeSender records every delivered notification. Kinds listed in FailKinds
// (or every kind when Fail is set) are rejected.
type FakeSender struct {
	mu        sync.Mutex
	Fail      bool
	FailKinds map[domain.NotificationKind]bool
	sent      []domain.Notification
}

func NewFakeSender() *FakeSender {
	return &FakeSender{FailKinds: map[domain.NotificationKind]bool{}}
}

func (s *FakeSender) Send(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail || s.FailKinds[n.Kind] {
		return ErrSendFailed
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *FakeSender) SetFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fail = fail
}

func (s *FakeSender) Sent() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.sent...)
}

func (s *FakeSender) SentKinds() []domain.NotificationKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]domain.NotificationKind, 0, len(s.sent))
	for _, n := range s.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}
