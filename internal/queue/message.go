package queue

import "time"

// Message is one queued unit of work for the task worker.
type Message struct {
	TaskID     string    `json:"taskId"`
	RequestID  string    `json:"requestId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
