package task

import (
	"context"
	"encoding/json"
	"time"
)

// EventTaskCreated 在任务写入存储后发布。
const EventTaskCreated = "task.created"

// Event 描述一次任务变更通知。
type Event struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"task_id"`
	Status    Status    `json:"status"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

func newCreatedEvent(task *Task) Event {
	return Event{
		Type:      EventTaskCreated,
		TaskID:    task.ID,
		Status:    task.Status,
		Priority:  task.Priority,
		CreatedAt: task.CreatedAt,
	}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 负责把任务事件投递给下游。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
