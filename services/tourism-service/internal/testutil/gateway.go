package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/you/tourism-booking/services/tourism-service/internal/gateway"
)

var ErrGatewayDown = errors.New("gateway unavailable")

// FakeGateway keeps orders in memory. Orders start as created; tests move
// them with SetStatus.
type FakeGateway struct {
	mu sync.Mutex

	FailCustomer bool
	NilCustomer  bool
	FailOrder    bool
	FailStatus   bool

	orders      map[string]string
	Requests    []gateway.OrderRequest
	StatusCalls int
	seq         int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{orders: map[string]string{}}
}

func (g *FakeGateway) PublicKey() string { return "pkey_test_123" }

func (g *FakeGateway) CreateCustomer(_ context.Context, name, email, phone string) (*gateway.Customer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCustomer {
		return nil, ErrGatewayDown
	}
	if g.NilCustomer {
		return nil, nil
	}
	return &gateway.Customer{ID: "cust_" + strings.ToLower(email), Name: name, Email: email, Phone: phone}, nil
}

func (g *FakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailOrder {
		return nil, ErrGatewayDown
	}
	g.seq++
	id := fmt.Sprintf("order_%d", g.seq)
	g.orders[id] = gateway.StatusCreated
	g.Requests = append(g.Requests, req)
	return &gateway.Order{
		ID:         id,
		Amount:     gateway.MinorUnits(req.Amount, req.Currency),
		Currency:   req.Currency,
		Status:     gateway.StatusCreated,
		PaymentURI: "https://pay.example.test/" + id,
	}, nil
}

func (g *FakeGateway) OrderStatus(_ context.Context, orderID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.StatusCalls++
	if g.FailStatus {
		return "", ErrGatewayDown
	}
	st, ok := g.orders[orderID]
	if !ok {
		return "", fmt.Errorf("order %s: unknown", orderID)
	}
	return st, nil
}

func (g *FakeGateway) SetStatus(orderID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[orderID] = status
}

func (g *FakeGateway) OrderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}
