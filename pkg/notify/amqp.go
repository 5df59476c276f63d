package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"lendingdesk/pkg/domain"
)

// AMQPNotifier publishes availability events to an exchange so downstream
// consumers (mail workers, dashboards) can react. The engine still sees a
// single Notify call.
type AMQPNotifier struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

type availabilityEvent struct {
	Title     string    `json:"title"`
	Requester string    `json:"requester"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// NewAMQPNotifier dials the broker and declares the exchange.
func NewAMQPNotifier(url, exchange string) (*AMQPNotifier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("amqp url required")
	}
	if strings.TrimSpace(exchange) == "" {
		exchange = "lendingdesk.notifications"
	}
	n := &AMQPNotifier{url: url, exchange: exchange}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	n.conn = conn
	n.ch = ch
	return nil
}

// Notify publishes one event per served waiting entry. A closed connection
// is re-dialed once; a second failure is returned to the caller, which
// treats delivery as best-effort.
func (n *AMQPNotifier) Notify(ctx context.Context, req domain.Requester, title string) error {
	body, err := json.Marshal(availabilityEvent{
		Title:     title,
		Requester: req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   Message(req, title),
		At:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil || n.conn.IsClosed() {
		if err := n.connect(); err != nil {
			return err
		}
	}
	err = n.ch.PublishWithContext(ctx, n.exchange, "title.available", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
