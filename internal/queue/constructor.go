package queue

import (
	"github.com/sahilm27/linklater/internal/service"
)

type Queue struct {
	pub service.Publisher
}

func NewQueue(pub service.Publisher) *Queue {
	return &Queue{pub: pub}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
