package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBoundedIsFIFO(t *testing.T) {
	q := NewBounded(3)
	ctx := context.Background()
	for _, id := range []string{"bytecode_0", "bytecode_1", "bytecode_2"} {
		if err := q.Send(ctx, Message{TaskID: id}); err != nil {
			t.Fatalf("send %s: %v", id, err)
		}
	}
	if q.Len() != 3 || q.Cap() != 3 {
		t.Fatalf("len=%d cap=%d", q.Len(), q.Cap())
	}
	for _, want := range []string{"bytecode_0", "bytecode_1", "bytecode_2"} {
		msg, err := q.Receive(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if msg.TaskID != want {
			t.Fatalf("got %s, want %s", msg.TaskID, want)
		}
	}
}

func TestBoundedRejectsWhenFull(t *testing.T) {
	q := NewBounded(1)
	ctx := context.Background()
	if err := q.Send(ctx, Message{TaskID: "a"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- q.Send(ctx, Message{TaskID: "b"}) }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrFull) {
			t.Fatalf("expected ErrFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Send blocked on a full queue")
	}
}

func TestReceiveHonorsContext(t *testing.T) {
	q := NewBounded(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}
