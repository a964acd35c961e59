package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig configures AMQPTransport.
type AMQPConfig struct {
	URL string

	// Exchange is a durable topic exchange. Default: "custodian.notifications"
	Exchange string

	// RoutingKeyPrefix is joined with the lower-cased notification type.
	// Default: "retention"
	RoutingKeyPrefix string
}

// amqpChannel is the part of *amqp.Channel the transport uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPTransport publishes notifications as persistent JSON messages for a
// mail service to consume.
type AMQPTransport struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	prefix   string
}

// amqpEnvelope is the published message body.
type amqpEnvelope struct {
	Notification
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewAMQPTransport connects and declares the exchange.
func NewAMQPTransport(cfg AMQPConfig) (*AMQPTransport, error) {
	applyAMQPDefaults(&cfg)

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &AMQPTransport{conn: conn, channel: ch, exchange: cfg.Exchange, prefix: cfg.RoutingKeyPrefix}, nil
}

func newAMQPTransportWithChannel(ch amqpChannel, cfg AMQPConfig) *AMQPTransport {
	applyAMQPDefaults(&cfg)
	return &AMQPTransport{channel: ch, exchange: cfg.Exchange, prefix: cfg.RoutingKeyPrefix}
}

func applyAMQPDefaults(cfg *AMQPConfig) {
	if cfg.Exchange == "" {
		cfg.Exchange = "custodian.notifications"
	}
	if cfg.RoutingKeyPrefix == "" {
		cfg.RoutingKeyPrefix = "retention"
	}
}

func (t *AMQPTransport) Name() string { return "amqp" }

// RoutingKey returns the routing key used for n.
func (t *AMQPTransport) RoutingKey(n Notification) string {
	return t.prefix + "." + strings.ToLower(string(n.Type))
}

// Deliver publishes n.
func (t *AMQPTransport) Deliver(ctx context.Context, n Notification) error {
	msg, err := publishing(n)
	if err != nil {
		return err
	}
	key := t.RoutingKey(n)
	if err := t.channel.PublishWithContext(ctx, t.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", key, err)
	}
	return nil
}

func publishing(n Notification) (amqp.Publishing, error) {
	rendered := Render(n)
	body, err := json.Marshal(amqpEnvelope{Notification: n, Subject: rendered.Subject, Body: rendered.Body})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    uuid.NewString(),
		Type:         string(n.Type),
	}, nil
}

// Ping fails once the broker connection is closed. The client does not
// reconnect; a restart is needed.
func (t *AMQPTransport) Ping(ctx context.Context) error {
	if t.conn != nil && t.conn.IsClosed() {
		return fmt.Errorf("broker connection closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (t *AMQPTransport) Close() error {
	if t.channel != nil {
		_ = t.channel.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
