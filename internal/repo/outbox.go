package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/richardliu001/auction-market/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewOutboxEvent marshals payload into an event row. Marshal errors are
// impossible for the map payloads used by the services.
func NewOutboxEvent(aggregate, aggregateID, eventType string, payload interface{}) *model.OutboxEvent {
	b, _ := json.Marshal(payload)
	return &model.OutboxEvent{
		Aggregate: aggregate, AggregateID: aggregateID, EventType: eventType, Payload: string(b),
	}
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return r.conn(ctx, tx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = ?", false).Order("id").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// RecordOutboxFailure bumps the attempt counter of an event that failed to publish.
func (r *Repository) RecordOutboxFailure(ctx context.Context, id uint64, cause error) error {
	msg := cause.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"attempts": gorm.Expr("attempts + 1"), "last_error": msg}).Error
}

// PublishEvent sends to Kafka, keyed by aggregate id so events for one
// auction or wallet stay ordered within a partition.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: []byte(evt.Payload),
		Headers: []kafka.Header{
			{Key: "aggregate", Value: []byte(evt.Aggregate)},
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
		Time: time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}

// outboxPort is the slice of Repository the relay needs.
type outboxPort interface {
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	RecordOutboxFailure(ctx context.Context, id uint64, cause error) error
}

// OutboxRelay forwards committed outbox rows to Kafka. Delivery is
// at-least-once: a crash between publish and mark resends the event.
type OutboxRelay struct {
	port  outboxPort
	log   *zap.SugaredLogger
	batch int
}

func NewOutboxRelay(port outboxPort, log *zap.SugaredLogger, batch int) *OutboxRelay {
	return &OutboxRelay{port: port, log: log, batch: batch}
}

// Drain publishes one batch and returns how many events were delivered.
// A failed publish stops the batch so events keep their order.
func (o *OutboxRelay) Drain(ctx context.Context) int {
	events, err := o.port.PollOutbox(ctx, o.batch)
	if err != nil {
		o.log.Errorf("poll outbox: %v", err)
		return 0
	}
	sent := 0
	for _, evt := range events {
		if err := o.port.PublishEvent(ctx, evt); err != nil {
			o.log.Errorf("publish id=%d attempt=%d: %v", evt.ID, evt.Attempts+1, err)
			if rerr := o.port.RecordOutboxFailure(ctx, evt.ID, err); rerr != nil {
				o.log.Errorf("record failure id=%d: %v", evt.ID, rerr)
			}
			return sent
		}
		if err := o.port.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			o.log.Errorf("mark processed id=%d: %v", evt.ID, err)
			return sent
		}
		sent++
	}
	if sent > 0 {
		o.log.Infof("relayed %d outbox events", sent)
	}
	return sent
}
