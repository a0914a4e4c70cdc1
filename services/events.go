package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventHoldingsChanged = "stock_list.holdings_changed"
	EventListDeleted     = "stock_list.deleted"
)

// StockListEvent - событие для внешнего аналитического джоба,
// который пересчитывает корреляции, beta и CV
type StockListEvent struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	ListName  string    `json:"list_name"`
	Symbol    string    `json:"symbol,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventPublisher публикует события списков
type EventPublisher interface {
	Publish(ctx context.Context, event StockListEvent) error
}

// NopPublisher используется, когда брокер не настроен
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, StockListEvent) error { return nil }

// RabbitPublisher публикует события в topic exchange, routing key = тип события
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewRabbitPublisher подключается к брокеру и объявляет exchange
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Printf("RabbitMQ publisher initialized, exchange: %s", exchange)
	return &RabbitPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, event StockListEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    event.CreatedAt,
			Body:         body,
		},
	)
}

func (p *RabbitPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// publish не роняет операцию: событие - подсказка джобу, источник правды - БД
func publish(ctx context.Context, publisher EventPublisher, event StockListEvent) {
	if publisher == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Printf("WARN: failed to publish %s for %s/%s: %v", event.Type, event.Username, event.ListName, err)
	}
}
