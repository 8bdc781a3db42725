package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/models"
	"github.com/grocerypos/pos_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxBackoff = 10 * time.Minute

// PublishFunc delivers one sale event and returns the broker's message id.
type PublishFunc func(ctx context.Context, msg config.SaleEventMessage) (string, error)

// OutboxDispatcher moves committed sale events from the outbox table to Pub/Sub.
// Several dispatchers may run at once; rows are claimed with SKIP LOCKED.
type OutboxDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	DispatcherID string
	Publish      PublishFunc

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:             db,
		Logger:         logger,
		DispatcherID:   uuid.NewString(),
		Publish:        config.PublishSaleEventWithResult,
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
	}
}

// Run polls until ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()
	for ctx.Err() == nil {
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// DispatchOnce claims one batch, publishes it and returns how many events were sent.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) int {
	if d.DB == nil || d.Publish == nil {
		return 0
	}
	// events of every tenant
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	batch, err := d.claim(ctx, time.Now().UTC())
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "claim", "claim batch", d.DispatcherID, err)
		return 0
	}

	sent := 0
	for _, rec := range batch {
		pubID, pubErr := d.Publish(ctx, rec.ToSaleEventMessage())
		d.settle(ctx, rec, pubID, pubErr)
		if pubErr == nil {
			sent++
		}
	}
	return sent
}

// claim locks due events and marks them PROCESSING for this dispatcher. A PROCESSING row
// locked longer than LockTimeout ago belongs to a dispatcher that died and is taken over.
func (d *OutboxDispatcher) claim(ctx context.Context, now time.Time) ([]models.OutboxMessage, error) {
	var batch []models.OutboxMessage
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []models.OutboxMessage
		err := tx.
			Where("(publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)) OR (publish_status = ? AND locked_at <= ?)",
				[]string{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}, now,
				models.OutboxPublishStatusProcessing, now.Add(-d.LockTimeout)).
			Order("id").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&due).Error
		if err != nil {
			return err
		}

		var claimed, exhausted []int
		for _, rec := range due {
			// only a taken-over row can arrive here with no attempts left
			if d.MaxAttempts > 0 && rec.PublishAttempts >= d.MaxAttempts {
				exhausted = append(exhausted, rec.ID)
				continue
			}
			rec.PublishAttempts++
			batch = append(batch, rec)
			claimed = append(claimed, rec.ID)
		}

		if len(exhausted) > 0 {
			reason := fmt.Sprintf("max publish attempts exceeded (%d)", d.MaxAttempts)
			if err := tx.Model(&models.OutboxMessage{}).Where("id IN ?", exhausted).Updates(deadLetter(reason)).Error; err != nil {
				return err
			}
		}
		if len(claimed) == 0 {
			return nil
		}
		return tx.Model(&models.OutboxMessage{}).Where("id IN ?", claimed).Updates(map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusProcessing,
			"locked_at":          now,
			"locked_by":          d.DispatcherID,
			"publish_attempts":   gorm.Expr("publish_attempts + 1"),
			"last_publish_error": nil,
			"next_attempt_at":    nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// settle records the publish outcome on a row this dispatcher still holds.
func (d *OutboxDispatcher) settle(ctx context.Context, rec models.OutboxMessage, pubID string, pubErr error) {
	now := time.Now().UTC()
	fields := logrus.Fields{
		"field":     "OutboxDispatcher",
		"tenant_id": rec.TenantId,
		"record_id": rec.ID,
		"attempt":   rec.PublishAttempts,
	}

	var updates map[string]interface{}
	switch {
	case pubErr == nil:
		updates = map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusSent,
			"published_at":       now,
			"pub_sub_message_id": pubID,
			"locked_at":          nil,
			"locked_by":          nil,
			"next_attempt_at":    nil,
		}
	case d.MaxAttempts > 0 && rec.PublishAttempts >= d.MaxAttempts:
		updates = deadLetter(pubErr.Error())
		d.Logger.WithFields(fields).Error("sale event moved to DEAD: " + pubErr.Error())
	default:
		next := now.Add(d.backoffFor(rec.PublishAttempts))
		updates = map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusFailed,
			"last_publish_error": pubErr.Error(),
			"next_attempt_at":    next,
			"locked_at":          nil,
			"locked_by":          nil,
		}
		fields["next_attempt_at"] = next.Format(time.RFC3339)
		d.Logger.WithFields(fields).Warn("sale event publish failed: " + pubErr.Error())
	}

	err := d.DB.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ? AND locked_by = ?", rec.ID, d.DispatcherID).
		Updates(updates).Error
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "settle", "update outbox row", rec.ID, err)
	}
}

func deadLetter(reason string) map[string]interface{} {
	return map[string]interface{}{
		"publish_status":     models.OutboxPublishStatusDead,
		"last_publish_error": reason,
		"next_attempt_at":    nil,
		"locked_at":          nil,
		"locked_by":          nil,
	}
}

// backoffFor doubles InitialBackoff per attempt, capped at maxBackoff.
func (d *OutboxDispatcher) backoffFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 20 {
		attempt = 20
	}
	backoff := d.InitialBackoff << (attempt - 1)
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
