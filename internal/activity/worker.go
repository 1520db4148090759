package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

func (m *Manager) handleRecordTask(ctx context.Context, task *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// 壊れたペイロードは再試行しても直らない
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Owner == "" {
		return fmt.Errorf("missing owner in payload: %w", asynq.SkipRetry)
	}

	if err := m.store.Append(ctx, payload.Owner, payload.Event); err != nil {
		m.logger.Printf("failed to record activity event=%s: %v", payload.Event.ID, err)
		return err
	}
	return nil
}
