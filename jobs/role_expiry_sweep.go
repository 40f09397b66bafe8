package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultSweepBatch = 1000

// RoleExpirySweepJob deletes user-role rows whose expiry has passed.
// Resolution already ignores them; sweeping keeps the join table small
// and makes role-in-use checks cheap.
type RoleExpirySweepJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRoleExpirySweepJob constructs the job.
func NewRoleExpirySweepJob(pool *pgxpool.Pool, logger *slog.Logger) *RoleExpirySweepJob {
	return &RoleExpirySweepJob{pool: pool, logger: logger}
}

// Handle processes one TaskRoleExpirySweep run.
func (j *RoleExpirySweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RoleExpirySweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	batch := payload.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	total := int64(0)
	for {
		tag, err := j.pool.Exec(ctx, `
			DELETE FROM user_roles
			WHERE (user_id, role_id) IN (
				SELECT user_id, role_id FROM user_roles
				WHERE expires_at IS NOT NULL AND expires_at <= now()
				LIMIT $1
			)`, batch)
		if err != nil {
			return err
		}
		total += tag.RowsAffected()
		if tag.RowsAffected() < int64(batch) {
			break
		}
	}
	if j.logger != nil && total > 0 {
		j.logger.Info("swept expired role assignments", slog.Int64("rows", total))
	}
	return nil
}
