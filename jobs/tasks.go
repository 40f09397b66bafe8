package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRoleExpirySweep removes lapsed user-role assignments.
	TaskRoleExpirySweep = "rbac:sweep_expired_roles"
)

// RoleExpirySweepPayload bounds one sweep run.
type RoleExpirySweepPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewRoleExpirySweepTask constructs the sweeper task.
func NewRoleExpirySweepTask(batchSize int) (*asynq.Task, error) {
	data, err := json.Marshal(RoleExpirySweepPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoleExpirySweep, data), nil
}
