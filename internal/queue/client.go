package queue

import (
	"context"
	"errors"
)

// ErrFull is returned by Send when the queue is at capacity.
var ErrFull = errors.New("queue is full")

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Receiver hands queued messages to a consumer.
type Receiver interface {
	Receive(ctx context.Context) (Message, error)
}

// Bounded is an in-process FIFO with a fixed capacity. Send never blocks: a
// full queue rejects the message with ErrFull.
type Bounded struct {
	ch chan Message
}

// NewBounded creates a queue holding at most capacity pending messages.
func NewBounded(capacity int) *Bounded {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded{ch: make(chan Message, capacity)}
}

// Send enqueues msg or fails immediately with ErrFull.
func (q *Bounded) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Receive blocks until a message is available or ctx is done.
func (q *Bounded) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-q.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len reports how many messages are waiting.
func (q *Bounded) Len() int {
	return len(q.ch)
}

// Cap reports the queue capacity.
func (q *Bounded) Cap() int {
	return cap(q.ch)
}

var (
	_ Client   = (*Bounded)(nil)
	_ Receiver = (*Bounded)(nil)
)
