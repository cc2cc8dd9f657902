package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-checkout-service/pkg/broker"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	StockMovementRecorded   Type = "StockMovementRecorded"
	StockAlertRaised        Type = "StockAlertRaised"
	SaleFinalized           Type = "SaleFinalized"
	InventoryCountFinalized Type = "InventoryCountFinalized"
)

type Event struct {
	ID         string      `json:"event_id"`
	Type       Type        `json:"event_type"`
	Key        string      `json:"-"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"timestamp"`
}

func New(t Type, key string, payload interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		Key:        key,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher is the outbound port for domain events. Publishing is best
// effort: the state change that produced the event has already committed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type KafkaPublisher struct {
	producer *broker.KafkaProducer
	logger   logger.ZapLogger
}

func NewKafkaPublisher(producer *broker.KafkaProducer, log logger.ZapLogger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, e.Key, data); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("event_type", string(e.Type)),
			zap.String("event_id", e.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
