package queue

import (
	job "github.com/reelflow/reelflow/internal/jobs"
	"github.com/reelflow/reelflow/internal/repository"
)

// Queue handles the immediate "publish now" path. The recurring due-post
// sweep lives in the cycle runner; this only covers user-triggered instant
// publishes so they don't wait for the next tick.
type Queue struct {
	pr     repository.QueuedPostRepository
	runner *job.PublishCycleRunner
}

func NewQueue(pr repository.QueuedPostRepository, runner *job.PublishCycleRunner) *Queue {
	return &Queue{
		pr:     pr,
		runner: runner,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
