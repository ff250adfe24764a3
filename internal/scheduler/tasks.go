// Package scheduler runs the nightly deal reconciliation through asynq.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskDealsCleanup = "deals.cleanup"

// DealsCleanupPayload carries the paging state of a reconciliation run.
// Each batch re-enqueues itself with the next cursor until done.
type DealsCleanupPayload struct {
	Cursor int64 `json:"cursor"`
	Limit  int   `json:"limit"`
}

func NewDealsCleanupTask(payload DealsCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDealsCleanup, data), nil
}

func ParseDealsCleanupPayload(task *asynq.Task) (DealsCleanupPayload, error) {
	var payload DealsCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DealsCleanupPayload{}, err
	}
	return payload, nil
}
