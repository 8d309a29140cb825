package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/notify"
)

type Worker struct {
	DB *gorm.DB
}

func NewWorker(db *gorm.DB) *Worker {
	return &Worker{DB: db}
}

// HandleNotification stores a notification in the user's inbox. Redelivery
// of the same reference is a no-op.
func (w *Worker) HandleNotification(ctx context.Context, t *asynq.Task) error {
	n, err := decodeNotification(t)
	if err != nil {
		zap.L().Warn("Dropping notification task", zap.Error(err))
		return err
	}

	row := models.Notification{
		Reference: n.Reference,
		UserID:    n.UserID,
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
	}
	res := w.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "reference"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return fmt.Errorf("failed to store notification %s: %w", n.Reference, res.Error)
	}
	if res.RowsAffected == 0 {
		zap.L().Info("Notification already stored", zap.String("reference", n.Reference))
	}
	return nil
}

func NewServeMux(w *Worker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TypeNotification, w.HandleNotification)
	return mux
}

// StartWorker consumes tasks until the process receives a termination signal.
func StartWorker(redisOpt asynq.RedisClientOpt, db *gorm.DB) error {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues:      Queues,
		},
	)

	if err := srv.Run(NewServeMux(NewWorker(db))); err != nil {
		return fmt.Errorf("could not run worker: %w", err)
	}
	return nil
}
