package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"tournament-ledger/internal/notify"
)

// Queue weights used by the worker server. Notifications are enqueued on
// "default".
var Queues = map[string]int{
	"critical": 6,
	"default":  3,
	"low":      1,
}

// decodeNotification unmarshals and checks a notification payload. Malformed
// payloads are wrapped with asynq.SkipRetry since retrying cannot fix them.
func decodeNotification(t *asynq.Task) (notify.Notification, error) {
	var n notify.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return n, fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	switch {
	case n.Reference == "":
		return n, fmt.Errorf("notification without reference: %w", asynq.SkipRetry)
	case n.UserID == 0:
		return n, fmt.Errorf("notification %s without user: %w", n.Reference, asynq.SkipRetry)
	case n.Title == "":
		return n, fmt.Errorf("notification %s without title: %w", n.Reference, asynq.SkipRetry)
	}
	return n, nil
}
