package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/reelflow/reelflow/internal/models"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	post, err := q.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info("publish task for unknown post", "post_id", payload.PostID)
		return nil
	}

	// The user may have cancelled between enqueue and execution, or the
	// cycle runner may have already picked the post up. This read is only a
	// cheap skip; PublishOne's conditional claim settles any race.
	if post.Status != models.PostStatusScheduled {
		slog.Info("publish task skipped", "post_id", post.ID, "status", post.Status)
		return nil
	}

	q.runner.PublishOne(ctx, post)
	return nil
}
