package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewOmiseClient(pub, sec string) (*omise.Client, error) {
	c, err := omise.NewClient(pub, sec)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	return c, nil
}

// Omise maps orders onto single-use payment links: the link's payment URI is
// what the checkout widget opens, and a used link means the order is paid.
type Omise struct {
	omc       *omise.Client
	rdb       *redis.Client // optional customer id cache
	publicKey string
	cacheTTL  time.Duration
	log       *zap.Logger
}

func NewOmise(omc *omise.Client, rdb *redis.Client, publicKey string, cacheTTL time.Duration, log *zap.Logger) *Omise {
	return &Omise{omc: omc, rdb: rdb, publicKey: publicKey, cacheTTL: cacheTTL, log: log}
}

func (g *Omise) PublicKey() string { return g.publicKey }

func customerKey(email string) string {
	return "gateway:customer:" + strings.ToLower(email)
}

// CreateCustomer returns the cached customer for the email or creates one.
func (g *Omise) CreateCustomer(ctx context.Context, name, email, phone string) (*Customer, error) {
	if g.rdb != nil {
		id, err := g.rdb.Get(ctx, customerKey(email)).Result()
		switch {
		case err == nil && id != "":
			return &Customer{ID: id, Name: name, Email: email, Phone: phone}, nil
		case err != nil && !errors.Is(err, redis.Nil):
			g.log.Warn("customer cache read failed", zap.String("email", email), zap.Error(err))
		}
	}

	cust := &omise.Customer{}
	op := &operations.CreateCustomer{
		Email:       email,
		Description: fmt.Sprintf("%s (%s)", name, phone),
	}
	if err := g.omc.Do(cust, op); err != nil {
		return nil, fmt.Errorf("omise create customer: %w", err)
	}
	if cust.ID == "" {
		return nil, nil
	}

	if g.rdb != nil {
		if err := g.rdb.Set(ctx, customerKey(email), cust.ID, g.cacheTTL).Err(); err != nil {
			g.log.Warn("customer cache write failed", zap.String("email", email), zap.Error(err))
		}
	}
	return &Customer{ID: cust.ID, Name: name, Email: email, Phone: phone}, nil
}

func (g *Omise) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	link := &omise.Link{}
	op := &operations.CreateLink{
		Amount:      MinorUnits(req.Amount, req.Currency),
		Currency:    strings.ToLower(req.Currency),
		Title:       req.ReferenceID,
		Description: strings.TrimSpace(req.Description + " [" + encodeMetadata(req.Metadata) + "]"),
		Multiple:    false,
	}
	if err := g.omc.Do(link, op); err != nil {
		return nil, fmt.Errorf("omise create link: %w", err)
	}
	g.log.Debug("order opened",
		zap.String("order_id", link.ID),
		zap.String("reference_id", req.ReferenceID),
		zap.String("customer_id", req.CustomerID))

	return &Order{
		ID:         link.ID,
		Amount:     link.Amount,
		Currency:   strings.ToUpper(link.Currency),
		Status:     StatusCreated,
		PaymentURI: link.PaymentURI,
	}, nil
}

func (g *Omise) OrderStatus(ctx context.Context, orderID string) (string, error) {
	link := &omise.Link{}
	if err := g.omc.Do(link, &operations.RetrieveLink{LinkID: orderID}); err != nil {
		return "", fmt.Errorf("omise retrieve link %s: %w", orderID, err)
	}
	if link.Used {
		return StatusPaid, nil
	}
	return StatusCreated, nil
}
