package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/oakmart/storefront/internal/core/domain"
)

// KafkaNotifier publishes order confirmations after commit. Delivery is
// best effort: the checkout outcome is already durable by the time this
// runs, so callers log failures and move on.
type KafkaNotifier struct {
	writer *kafka.Writer
}

type orderConfirmedEvent struct {
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Total       string          `json:"total"`
	Items       []confirmedItem `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}

type confirmedItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (n *KafkaNotifier) OrderConfirmed(ctx context.Context, order domain.Order, items []domain.OrderItem) error {
	event := orderConfirmedEvent{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Total.StringFixed(2),
		Items:       make([]confirmedItem, 0, len(items)),
		CreatedAt:   order.CreatedAt,
	}
	for _, it := range items {
		event.Items = append(event.Items, confirmedItem{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
		})
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.OrderNumber),
		Value: value,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// Nop discards confirmations; used when no broker is configured.
type Nop struct{}

func (Nop) OrderConfirmed(ctx context.Context, order domain.Order, items []domain.OrderItem) error {
	return nil
}
