package adapter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"storefront/internal/pkg/mq"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/port"
)

// KafkaEventProducer publishes order lifecycle events to the orders topic,
// keyed by order id so one order's events stay in partition order.
type KafkaEventProducer struct {
	writer *kafka.Writer
}

func NewKafkaEventProducer(writer *kafka.Writer) *KafkaEventProducer {
	return &KafkaEventProducer{writer: writer}
}

type eventWrapper struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func (p *KafkaEventProducer) OrderPlaced(ctx context.Context, event *domain.OrderPlacedEvent) error {
	return p.publish(ctx, event.OrderID, "order.placed", event)
}

func (p *KafkaEventProducer) OrderStatusChanged(ctx context.Context, event *domain.OrderStatusChangedEvent) error {
	return p.publish(ctx, event.OrderID, "order.status_changed", event)
}

func (p *KafkaEventProducer) publish(ctx context.Context, key, eventType string, payload interface{}) error {
	raw, err := json.Marshal(eventWrapper{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(key), raw)
}

func (p *KafkaEventProducer) Close() error {
	return p.writer.Close()
}

var _ port.EventProducer = (*KafkaEventProducer)(nil)
