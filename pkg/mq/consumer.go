package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumerConfig struct {
	URL       string
	Exchanges []string // topic exchanges the queue is bound to
	Queue     string
	Keys      []string // binding keys, applied to every exchange
	Tag       string
	Prefetch  int
	// DLXName/DLXQueue enable dead-lettering of rejected deliveries.
	DLXName  string
	DLXQueue string
}

type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  ConsumerConfig
}

// NewConsumer is the single-exchange shorthand used by the lifecycle service.
func NewConsumer(url, exchange, queue string, keys []string) (*Consumer, error) {
	return Dial(ConsumerConfig{URL: url, Exchanges: []string{exchange}, Queue: queue, Keys: keys})
}

func Dial(cfg ConsumerConfig) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(format string, args ...any) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf(format, args...)
	}

	args := amqp.Table{}
	if cfg.DLXName != "" {
		args["x-dead-letter-exchange"] = cfg.DLXName
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, args)
	if err != nil {
		return fail("declare queue: %w", err)
	}
	for _, ex := range cfg.Exchanges {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			return fail("declare exchange %s: %w", ex, err)
		}
		for _, rk := range cfg.Keys {
			if err := ch.QueueBind(q.Name, rk, ex, false, nil); err != nil {
				return fail("bind %s to %s: %w", rk, ex, err)
			}
		}
	}

	if cfg.DLXName != "" {
		if err := ch.ExchangeDeclare(cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			return fail("declare dlx: %w", err)
		}
		if _, err := ch.QueueDeclare(cfg.DLXQueue, true, false, false, false, nil); err != nil {
			return fail("declare dlq: %w", err)
		}
		if err := ch.QueueBind(cfg.DLXQueue, "#", cfg.DLXName, false, nil); err != nil {
			return fail("bind dlq: %w", err)
		}
	}

	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return fail("set qos: %w", err)
	}

	cfg.Queue = q.Name
	return &Consumer{conn: conn, ch: ch, cfg: cfg}, nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
