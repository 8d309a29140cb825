package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeNotification = "notification:send"

type Notification struct {
	Reference string            `json:"reference"`
	UserID    uint              `json:"userId"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

// Notifier delivers messages after a settlement has committed. Implementations
// must not report failures back to the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

func NewNotificationTask(n Notification) (*asynq.Task, error) {
	if n.Reference == "" {
		n.Reference = uuid.NewString()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotification, data, asynq.TaskID(fmt.Sprintf("notification:%s", n.Reference))), nil
}

// Enqueuer is the part of *asynq.Client the queue notifier uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type QueueNotifier struct {
	Client Enqueuer
}

func NewQueueNotifier(client Enqueuer) *QueueNotifier {
	return &QueueNotifier{Client: client}
}

func (q *QueueNotifier) Notify(ctx context.Context, n Notification) {
	task, err := NewNotificationTask(n)
	if err != nil {
		zap.L().Error("Failed to build notification task", zap.Uint("user_id", n.UserID), zap.Error(err))
		return
	}

	// the settlement is already committed; a cancelled request must not drop the message
	if _, err := q.Client.EnqueueContext(context.WithoutCancel(ctx), task, asynq.MaxRetry(5), asynq.Queue("default")); err != nil {
		zap.L().Error("Failed to enqueue notification",
			zap.Uint("user_id", n.UserID),
			zap.String("title", n.Title),
			zap.Error(err),
		)
	}
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}
