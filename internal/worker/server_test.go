package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tournament-ledger/internal/config"
	"tournament-ledger/internal/database"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/notify"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestHandleNotificationStoresInbox(t *testing.T) {
	db := newTestDB(t)
	mux := NewServeMux(NewWorker(db))

	task, err := notify.NewNotificationTask(notify.Notification{
		UserID: 12,
		Title:  "Prize credited",
		Body:   "You won 1st place",
		Data:   map[string]string{"type": "prize"},
	})
	require.NoError(t, err)

	require.NoError(t, mux.ProcessTask(context.Background(), task))
	// redelivery of the same task stores nothing new
	require.NoError(t, mux.ProcessTask(context.Background(), task))

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(12), rows[0].UserID)
	assert.Equal(t, "Prize credited", rows[0].Title)
	assert.Equal(t, "prize", rows[0].Data["type"])
	assert.Nil(t, rows[0].ReadAt)
}

func TestHandleNotificationSkipsBadPayloads(t *testing.T) {
	w := NewWorker(newTestDB(t))

	cases := map[string][]byte{
		"not json":      []byte("{"),
		"no reference":  []byte(`{"userId":1,"title":"x"}`),
		"no user":       []byte(`{"reference":"r1","title":"x"}`),
		"missing title": []byte(`{"reference":"r2","userId":1}`),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			err := w.HandleNotification(context.Background(), asynq.NewTask(notify.TypeNotification, payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, asynq.SkipRetry)
		})
	}

	var count int64
	require.NoError(t, w.DB.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}
