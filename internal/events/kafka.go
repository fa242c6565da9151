// Package events publishes order lifecycle events to Kafka for downstream
// consumers (fulfillment, notifications). Publishing is best effort: a broker
// outage is logged and never fails the originating request.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
)

// Event types carried in the payload.
const (
	TypeOrderPlaced    = "order.placed"
	TypeOrderCancelled = "order.cancelled"
)

// encodeEvent builds the JSON payload published for every order transition.
func encodeEvent(eventType string, o *order.Order, at time.Time) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str(eventType) })
		e.Field("order_id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("user_id", func(e *jx.Encoder) { e.Str(o.UserID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(o.Total.StringFixed(2)) })
		e.Field("occurred_at", func(e *jx.Encoder) { e.Str(at.Format(time.RFC3339Nano)) })
	})
	return e.Bytes()
}

var _ order.Events = (*KafkaPublisher)(nil)

// KafkaPublisher implements order.Events on top of a franz-go client.
// Records are keyed by order id so all events of one order land in the same
// partition, in order.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the given brokers. The caller owns the
// returned publisher and must Close it on shutdown.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka client")
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

// OrderPlaced publishes an order.placed event.
func (p *KafkaPublisher) OrderPlaced(ctx context.Context, o *order.Order) {
	p.publish(ctx, TypeOrderPlaced, o)
}

// OrderCancelled publishes an order.cancelled event.
func (p *KafkaPublisher) OrderCancelled(ctx context.Context, o *order.Order) {
	p.publish(ctx, TypeOrderCancelled, o)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, o *order.Order) {
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(o.ID),
		Value: encodeEvent(eventType, o, time.Now().UTC()),
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			zctx.From(ctx).Error("Publish order event",
				zap.String("type", eventType),
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
