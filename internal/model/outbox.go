package model

import "time"

// OutboxEvent is a domain event written in the same transaction as the state
// change it describes. The relay publishes it to Kafka keyed by AggregateID.
type OutboxEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	Aggregate   string    `gorm:"size:64;not null"`
	AggregateID string    `gorm:"size:36;not null"`
	EventType   string    `gorm:"size:64;not null"`
	Payload     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	Processed   bool      `gorm:"not null;default:false;index"`
	ProcessedAt *time.Time
	// Attempts counts failed publishes; LastError keeps the latest cause.
	Attempts  int    `gorm:"not null;default:0"`
	LastError string `gorm:"size:500"`
}

func (OutboxEvent) TableName() string { return "event_outbox" }
