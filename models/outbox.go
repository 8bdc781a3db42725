package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for OutboxMessage.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

const EventTransactionCreated = "transaction.created"

// OutboxMessage is written in the same database transaction as the sale it describes.
// The dispatcher publishes it after commit.
type OutboxMessage struct {
	ID               int        `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	TenantId         string     `gorm:"size:36;not null;index" json:"tenant_id"`
	EventType        string     `gorm:"size:50;not null" json:"event_type"`
	ReferenceId      int        `gorm:"index" json:"reference_id"`
	OccurredAt       time.Time  `gorm:"not null" json:"occurred_at"`
	Payload          []byte     `json:"payload"`
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m OutboxMessage) ToSaleEventMessage() config.SaleEventMessage {
	return config.SaleEventMessage{
		ID:            m.ID,
		TenantId:      m.TenantId,
		EventType:     m.EventType,
		ReferenceId:   m.ReferenceId,
		OccurredAt:    m.OccurredAt,
		Payload:       m.Payload,
		CorrelationId: m.CorrelationId,
	}
}

// writeSaleEvent records a transaction.created event inside tx.
func writeSaleEvent(ctx context.Context, tx *gorm.DB, transaction *Transaction) error {
	payload, err := json.Marshal(transaction)
	if err != nil {
		return err
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msg := OutboxMessage{
		TenantId:      transaction.TenantId,
		EventType:     EventTransactionCreated,
		ReferenceId:   transaction.ID,
		OccurredAt:    transaction.CreatedAt,
		Payload:       payload,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationId,
	}
	return tx.Create(&msg).Error
}

// OutboxCounts reports rows per publish status, for the CLI.
func OutboxCounts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		PublishStatus string
		Total         int64
	}
	var rows []row
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	if err := config.GetDB().WithContext(ctx).Model(&OutboxMessage{}).
		Select("publish_status, count(*) as total").
		Group("publish_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.PublishStatus] = r.Total
	}
	return counts, nil
}
