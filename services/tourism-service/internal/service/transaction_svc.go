package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/gateway"
)

type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

type TransactionOptions struct {
	ReferenceID   string
	ReferenceType domain.ReferenceType
	Metadata      map[string]string
	Description   string
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Checkout is what a client-side payment widget needs. Amount is in minor units.
type Checkout struct {
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	OrderID     string  `json:"order_id"`
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prefill     Prefill `json:"prefill"`
	PaymentURI  string  `json:"payment_uri,omitempty"`
}

type CheckoutResult struct {
	TransactionID string   `json:"transaction_id"`
	ReferenceID   string   `json:"reference_id"`
	Checkout      Checkout `json:"checkout"`
}

// ReconciledStatus reports a transaction after reconciliation. OrderStatus is
// the gateway's answer; Status is the locally cached copy.
type ReconciledStatus struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	OrderStatus   string          `json:"order_status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

func (r *ReconciledStatus) Paid() bool { return r.OrderStatus == gateway.StatusPaid }

type TransactionSvc struct {
	store    TransactionStore
	gw       Gateway
	currency string
	merchant string
	log      *zap.Logger
}

func NewTransactionSvc(store TransactionStore, gw Gateway, currency, merchant string, log *zap.Logger) *TransactionSvc {
	return &TransactionSvc{store: store, gw: gw, currency: currency, merchant: merchant, log: log}
}

// CreateTransaction opens one gateway order and records it locally. Every call
// is a new payment attempt.
func (s *TransactionSvc) CreateTransaction(ctx context.Context, cust CustomerInfo, amount decimal.Decimal, opts TransactionOptions) (res *CheckoutResult, err error) {
	ctx, span := tracer.Start(ctx, "TransactionSvc.CreateTransaction")
	span.SetAttributes(
		attribute.String("reference.id", opts.ReferenceID),
		attribute.String("reference.type", string(opts.ReferenceType)),
	)
	defer func() { finish(span, err) }()

	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", domain.ErrServer, amount)
	}

	remote, err := s.gw.CreateCustomer(ctx, cust.Name, cust.Email, cust.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: create customer: %w", domain.ErrGateway, err)
	}
	if remote == nil {
		return nil, fmt.Errorf("%w: gateway returned no customer for %s", domain.ErrGateway, cust.Email)
	}

	md := make(map[string]string, len(opts.Metadata)+2)
	for k, v := range opts.Metadata {
		md[k] = v
	}
	md["reference_id"] = opts.ReferenceID
	md["reference_type"] = string(opts.ReferenceType)

	order, err := s.gw.CreateOrder(ctx, gateway.OrderRequest{
		Amount:      amount,
		Currency:    s.currency,
		CustomerID:  remote.ID,
		ReferenceID: opts.ReferenceID,
		Description: opts.Description,
		Metadata:    md,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create order: %w", domain.ErrGateway, err)
	}

	tx := &domain.Transaction{
		ID:               uuid.NewString(),
		ReferenceID:      opts.ReferenceID,
		ReferenceType:    opts.ReferenceType,
		RemoteCustomerID: remote.ID,
		RemoteOrderID:    order.ID,
		Status:           order.Status,
		Amount:           amount,
		Currency:         s.currency,
		Description:      opts.Description,
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("save transaction for order %s: %w", order.ID, err)
	}
	s.log.Info("transaction created",
		zap.String("transaction_id", tx.ID),
		zap.String("order_id", order.ID),
		zap.String("reference_id", tx.ReferenceID),
		zap.String("reference_type", string(tx.ReferenceType)),
		zap.String("amount", amount.String()))

	return &CheckoutResult{
		TransactionID: tx.ID,
		ReferenceID:   tx.ReferenceID,
		Checkout: Checkout{
			Amount:      order.Amount,
			Currency:    order.Currency,
			OrderID:     order.ID,
			Key:         s.gw.PublicKey(),
			Name:        s.merchant,
			Description: opts.Description,
			Prefill:     Prefill{Name: cust.Name, Email: cust.Email, Contact: cust.Phone},
			PaymentURI:  order.PaymentURI,
		},
	}, nil
}

// TransactionStatus asks the gateway for the order status and stores it when
// it differs from the cached one.
func (s *TransactionSvc) TransactionStatus(ctx context.Context, transactionID string) (res *ReconciledStatus, err error) {
	ctx, span := tracer.Start(ctx, "TransactionSvc.TransactionStatus")
	span.SetAttributes(attribute.String("transaction.id", transactionID))
	defer func() { finish(span, err) }()

	tx, err := s.store.ByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	remote, err := s.gw.OrderStatus(ctx, tx.RemoteOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: order status %s: %w", domain.ErrGateway, tx.RemoteOrderID, err)
	}

	status := tx.Status
	if remote != tx.Status {
		ok, err := s.store.CompareAndSetStatus(ctx, tx.ID, tx.Status, remote)
		if err != nil {
			return nil, fmt.Errorf("update transaction %s: %w", tx.ID, err)
		}
		if ok {
			s.log.Info("transaction reconciled",
				zap.String("transaction_id", tx.ID),
				zap.String("from", tx.Status),
				zap.String("to", remote))
			status = remote
		} else {
			// a concurrent reconciliation wrote first
			cur, err := s.store.ByID(ctx, tx.ID)
			if err != nil {
				return nil, err
			}
			status = cur.Status
		}
	}

	return &ReconciledStatus{
		TransactionID: tx.ID,
		Status:        status,
		OrderStatus:   remote,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
	}, nil
}

func (s *TransactionSvc) Transaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.store.ByID(ctx, id)
}

// TransactionByReference returns the latest attempt for the reference.
func (s *TransactionSvc) TransactionByReference(ctx context.Context, refID string, refType domain.ReferenceType) (*domain.Transaction, error) {
	return s.store.LatestByReference(ctx, refID, refType)
}

func (s *TransactionSvc) ListByReference(ctx context.Context, refID string, refType domain.ReferenceType) ([]domain.Transaction, error) {
	return s.store.ListByReference(ctx, refID, refType)
}
