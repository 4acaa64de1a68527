package workerproc

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"jar-translator/internal/queue"
	"jar-translator/internal/shared/telemetry"
	"jar-translator/internal/tasks"
)

// Processor runs one queued task to completion.
type Processor interface {
	Process(ctx context.Context, taskID string) error
}

// ErrMissingTaskID indicates a message missing the task id.
type ErrMissingTaskID struct {
	RequestID string
}

func (e ErrMissingTaskID) Error() string { return "missing task id" }

// ErrProcess indicates processing failed after the message was accepted.
type ErrProcess struct {
	TaskID    string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process task"
	}
	return "process task: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// HandleMessage validates msg and hands the task to p. A panic inside p is
// converted into an ErrProcess.
func HandleMessage(ctx context.Context, p Processor, msg queue.Message) (err error) {
	if p == nil {
		return errors.New("task processor not configured")
	}
	if strings.TrimSpace(msg.TaskID) == "" {
		return ErrMissingTaskID{RequestID: msg.RequestID}
	}

	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("panic", map[string]any{
				"request_id": msg.RequestID,
				"task_id":    msg.TaskID,
				"error":      rec,
				"stack":      string(debug.Stack()),
			})
			err = ErrProcess{TaskID: msg.TaskID, RequestID: msg.RequestID, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	ctxWithRequest := tasks.WithRequestID(ctx, msg.RequestID)
	if err := p.Process(ctxWithRequest, msg.TaskID); err != nil {
		return ErrProcess{TaskID: msg.TaskID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// Run drains r one message at a time until ctx is done. Jobs are never
// processed in parallel; the job in flight when ctx is cancelled finishes
// before Run returns.
func Run(ctx context.Context, r queue.Receiver, p Processor) {
	for {
		msg, err := r.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			telemetry.Error("worker.receive_failed", map[string]any{
				"error": err.Error(),
			})
			continue
		}

		if err := HandleMessage(context.WithoutCancel(ctx), p, msg); err != nil {
			fields := map[string]any{
				"request_id": msg.RequestID,
				"task_id":    msg.TaskID,
				"error":      err.Error(),
			}
			var missing ErrMissingTaskID
			if errors.As(err, &missing) {
				telemetry.Warn("worker.invalid_message", fields)
				continue
			}
			telemetry.Error("worker.process_failed", fields)
		}
	}
}
