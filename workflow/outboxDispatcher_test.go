package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.Migrate(db))
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, tenantId string, referenceId int) models.OutboxMessage {
	t.Helper()
	msg := models.OutboxMessage{
		TenantId:      tenantId,
		EventType:     models.EventTransactionCreated,
		ReferenceId:   referenceId,
		OccurredAt:    time.Now().UTC(),
		Payload:       []byte(`{"id":1}`),
		PublishStatus: models.OutboxPublishStatusPending,
		CorrelationId: "corr",
	}
	require.NoError(t, db.Create(&msg).Error)
	return msg
}

func reload(t *testing.T, db *gorm.DB, id int) models.OutboxMessage {
	t.Helper()
	var msg models.OutboxMessage
	require.NoError(t, db.Where("id = ?", id).Take(&msg).Error)
	return msg
}

func newTestDispatcher(db *gorm.DB, publish PublishFunc) *OutboxDispatcher {
	d := NewOutboxDispatcher(db, logrus.New())
	d.Publish = publish
	d.InitialBackoff = time.Minute
	d.MaxAttempts = 3
	return d
}

func TestDispatchOnce_PublishesAcrossTenants(t *testing.T) {
	db := setupOutboxDB(t)
	first := seedEvent(t, db, "tenant-a", 1)
	second := seedEvent(t, db, "tenant-b", 2)

	var published []string
	d := newTestDispatcher(db, func(ctx context.Context, msg config.SaleEventMessage) (string, error) {
		published = append(published, msg.TenantId)
		assert.Equal(t, models.EventTransactionCreated, msg.EventType)
		return fmt.Sprintf("pub-%d", msg.ID), nil
	})

	assert.Equal(t, 2, d.DispatchOnce(context.Background()))
	assert.Equal(t, []string{"tenant-a", "tenant-b"}, published)

	for _, id := range []int{first.ID, second.ID} {
		msg := reload(t, db, id)
		assert.Equal(t, models.OutboxPublishStatusSent, msg.PublishStatus)
		require.NotNil(t, msg.PubSubMessageId)
		assert.Equal(t, fmt.Sprintf("pub-%d", id), *msg.PubSubMessageId)
		assert.NotNil(t, msg.PublishedAt)
		assert.Nil(t, msg.LockedBy)
		assert.Equal(t, 1, msg.PublishAttempts)
	}

	// nothing left to send
	assert.Zero(t, d.DispatchOnce(context.Background()))
}

func TestDispatchOnce_FailureBacksOffThenDies(t *testing.T) {
	db := setupOutboxDB(t)
	event := seedEvent(t, db, "tenant-a", 1)

	d := newTestDispatcher(db, func(ctx context.Context, msg config.SaleEventMessage) (string, error) {
		return "", errors.New("topic not found")
	})

	assert.Zero(t, d.DispatchOnce(context.Background()))
	msg := reload(t, db, event.ID)
	assert.Equal(t, models.OutboxPublishStatusFailed, msg.PublishStatus)
	assert.Equal(t, 1, msg.PublishAttempts)
	require.NotNil(t, msg.LastPublishError)
	assert.Equal(t, "topic not found", *msg.LastPublishError)
	require.NotNil(t, msg.NextAttemptAt)
	assert.True(t, msg.NextAttemptAt.After(time.Now()))

	// not eligible until the backoff passes
	assert.Zero(t, d.DispatchOnce(context.Background()))
	assert.Equal(t, 1, reload(t, db, event.ID).PublishAttempts)

	for attempt := 2; attempt <= d.MaxAttempts; attempt++ {
		require.NoError(t, db.Model(&models.OutboxMessage{}).Where("id = ?", event.ID).Update("next_attempt_at", nil).Error)
		d.DispatchOnce(context.Background())
	}
	msg = reload(t, db, event.ID)
	assert.Equal(t, models.OutboxPublishStatusDead, msg.PublishStatus)
	assert.Equal(t, d.MaxAttempts, msg.PublishAttempts)
	assert.Nil(t, msg.NextAttemptAt)
}

func TestDispatchOnce_ReclaimsStaleProcessing(t *testing.T) {
	db := setupOutboxDB(t)
	event := seedEvent(t, db, "tenant-a", 1)
	stale := time.Now().UTC().Add(-time.Hour)
	owner := "crashed-dispatcher"
	require.NoError(t, db.Model(&models.OutboxMessage{}).Where("id = ?", event.ID).Updates(map[string]interface{}{
		"publish_status": models.OutboxPublishStatusProcessing,
		"locked_at":      &stale,
		"locked_by":      &owner,
	}).Error)

	d := newTestDispatcher(db, func(ctx context.Context, msg config.SaleEventMessage) (string, error) {
		return "pub-1", nil
	})
	assert.Equal(t, 1, d.DispatchOnce(context.Background()))
	assert.Equal(t, models.OutboxPublishStatusSent, reload(t, db, event.ID).PublishStatus)
}

func TestDispatchOnce_StaleRowWithoutAttemptsLeftIsDead(t *testing.T) {
	db := setupOutboxDB(t)
	event := seedEvent(t, db, "tenant-a", 1)
	stale := time.Now().UTC().Add(-time.Hour)
	owner := "crashed-dispatcher"
	require.NoError(t, db.Model(&models.OutboxMessage{}).Where("id = ?", event.ID).Updates(map[string]interface{}{
		"publish_status":   models.OutboxPublishStatusProcessing,
		"publish_attempts": 3,
		"locked_at":        &stale,
		"locked_by":        &owner,
	}).Error)

	calls := 0
	d := newTestDispatcher(db, func(ctx context.Context, msg config.SaleEventMessage) (string, error) {
		calls++
		return "pub-1", nil
	})
	assert.Zero(t, d.DispatchOnce(context.Background()))
	assert.Zero(t, calls)

	msg := reload(t, db, event.ID)
	assert.Equal(t, models.OutboxPublishStatusDead, msg.PublishStatus)
	assert.Nil(t, msg.LockedBy)
	require.NotNil(t, msg.LastPublishError)
	assert.Contains(t, *msg.LastPublishError, "max publish attempts")
}

func TestBackoffFor(t *testing.T) {
	d := &OutboxDispatcher{InitialBackoff: 5 * time.Second}
	assert.Equal(t, 5*time.Second, d.backoffFor(1))
	assert.Equal(t, 10*time.Second, d.backoffFor(2))
	assert.Equal(t, 40*time.Second, d.backoffFor(4))
	assert.Equal(t, 10*time.Minute, d.backoffFor(30))
	assert.Equal(t, 5*time.Second, d.backoffFor(0))
}

func TestRun_StopsOnCancel(t *testing.T) {
	db := setupOutboxDB(t)
	d := newTestDispatcher(db, func(ctx context.Context, msg config.SaleEventMessage) (string, error) {
		return "x", nil
	})
	d.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
