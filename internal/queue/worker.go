package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// HandlePublishPostTask publishes one post immediately. The publisher
// already retries transient upstream errors and records the failure on
// the post row, so the task is not re-queued on error.
func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := q.pub.HandlePost(ctx, payload.PostID); err != nil {
		log.Printf("Error publishing PostID %d: %v", payload.PostID, err)
	}

	return nil
}
