package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"jar-translator/internal/llm"
	"jar-translator/internal/llm/provider"
	"jar-translator/internal/pipeline"
	"jar-translator/internal/queue"
	"jar-translator/internal/scheduler"
	"jar-translator/internal/shared/metrics"
	"jar-translator/internal/shared/storage/object"
	"jar-translator/internal/shared/telemetry"
	"jar-translator/internal/shared/util"
	"jar-translator/internal/usage"
)

const (
	taskIDPrefix    = "bytecode_"
	previewIDPrefix = "preview_"
	outputPrefix    = "translated_"

	DefaultTargetLang = "zh_cn"
	DefaultModel      = provider.Deepseek
)

// TranslatorFactory builds the translator for one job from the model id and
// the caller's credential.
type TranslatorFactory func(model, apiKey string) (llm.Translator, error)

// SubmitInput is one upload to translate.
type SubmitInput struct {
	Filename   string
	Body       io.Reader
	TargetLang string
	Model      string
	APIKey     string
	ClientID   string
}

// Service owns the task lifecycle.
type Service struct {
	Repo          Repo
	Queue         queue.Client
	Store         object.ObjectStore
	NewTranslator TranslatorFactory
	Usage         *usage.Service
	// Scheduler is the batching policy; each job runs on a copy.
	Scheduler  scheduler.Scheduler
	ScratchDir string
	ReviewMode bool
	Now        func() time.Time

	seq       atomic.Int64
	confirmMu sync.Mutex
}

// Submit stores the upload and enqueues a task for the worker. A full queue
// rejects the submission with ErrQueueFull and nothing is kept.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Task, error) {
	if strings.TrimSpace(in.APIKey) == "" {
		return Task{}, fmt.Errorf("%w: api_key is required", ErrValidation)
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = DefaultModel
	}
	model, err := provider.Normalize(model)
	if err != nil {
		return Task{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	filename, err := archiveName(in.Filename)
	if err != nil {
		return Task{}, err
	}
	if in.Body == nil {
		return Task{}, fmt.Errorf("%w: file is required", ErrValidation)
	}

	sourceKey, _, _, err := s.Store.Save(ctx, object.NamespaceUploads, filename, in.Body)
	if err != nil {
		return Task{}, fmt.Errorf("store upload: %w", err)
	}

	task := Task{
		ID:         s.nextID(taskIDPrefix),
		Status:     StatusQueued,
		Filename:   filename,
		TargetLang: normalizeLang(in.TargetLang),
		Model:      model,
		SourceKey:  sourceKey,
		Credential: strings.TrimSpace(in.APIKey),
		ClientID:   in.ClientID,
		CreatedAt:  s.now(),
	}
	if err := s.Repo.Create(ctx, task); err != nil {
		s.discard(ctx, sourceKey)
		return Task{}, err
	}

	msg := queue.Message{TaskID: task.ID, RequestID: requestIDFromContext(ctx), EnqueuedAt: task.CreatedAt}
	if err := s.Queue.Send(ctx, msg); err != nil {
		_ = s.Repo.Delete(context.WithoutCancel(ctx), task.ID)
		s.discard(ctx, sourceKey)
		if errors.Is(err, queue.ErrFull) {
			metrics.IncTaskRejected()
			telemetry.Warn("task.rejected", map[string]any{
				"request_id": msg.RequestID,
				"task_id":    task.ID,
				"reason":     "queue_full",
			})
			return Task{}, ErrQueueFull
		}
		return Task{}, fmt.Errorf("enqueue task: %w", err)
	}
	metrics.IncTaskSubmitted()
	s.reportQueueDepth()

	if s.Usage != nil {
		if _, err := s.Usage.RecordUsage(ctx); err != nil {
			telemetry.Warn("usage.record_failed", map[string]any{
				"request_id": msg.RequestID,
				"error":      err.Error(),
			})
		}
	}

	s.logStatus(ctx, task, "->"+string(StatusQueued))
	return redact(task), nil
}

// Process runs a queued task through extraction, translation and either
// review or rebuild. It is the worker's per-message body. Any failure,
// including a panic, leaves the task Failed with the cause attached.
func (s *Service) Process(ctx context.Context, taskID string) (err error) {
	startedAt := s.now()
	task, err := s.Repo.Update(ctx, taskID, transition(StatusProcessing, func(t *Task) {
		t.StartTime = &startedAt
	}))
	if err != nil {
		return err
	}
	s.reportQueueDepth()
	s.logStatus(ctx, task, transitionLabel(StatusQueued, StatusProcessing))

	defer func() {
		if rec := recover(); rec != nil {
			err = s.fail(ctx, taskID, startedAt, fmt.Errorf("panic: %v", rec))
		}
	}()

	if s.NewTranslator == nil {
		return s.fail(ctx, taskID, startedAt, errors.New("translator factory not configured"))
	}
	tr, err := s.NewTranslator(task.Model, task.Credential)
	if err != nil {
		return s.fail(ctx, taskID, startedAt, fmt.Errorf("create translator: %w", err))
	}
	defer tr.Close()

	job, err := s.prepare(ctx, task.SourceKey)
	if err != nil {
		return s.fail(ctx, taskID, startedAt, err)
	}
	defer job.Close()

	sched := s.Scheduler
	totalBatches := len(scheduler.Batches(job.Candidates(), sched.BatchSize))
	_, _ = s.Repo.Update(ctx, taskID, func(t *Task) error {
		t.TotalBatches = totalBatches
		return nil
	})
	sched.Fields = map[string]any{
		"task_id":    taskID,
		"request_id": requestIDFromContext(ctx),
	}
	res := job.Translate(ctx, &sched, tr, task.TargetLang, func(p scheduler.Progress) {
		_, _ = s.Repo.Update(ctx, taskID, func(t *Task) error {
			t.TotalBatches = p.TotalBatches
			t.CompletedBatches = p.CompletedBatches
			t.ProgressPct = p.Percent
			t.ETASeconds = int(p.ETA.Seconds())
			return nil
		})
	})

	summarize := func(t *Task) {
		t.TotalBatches = res.TotalBatches
		t.CompletedBatches = res.TotalBatches
		t.ProgressPct = 100
		t.ETASeconds = 0
		t.TotalStrings = len(res.Pairs)
		t.ChangedStrings = res.ChangedCount()
		t.FailedBatches = len(res.Failed)
		t.TranslationPairs = res.Pairs
		t.Credential = ""
	}

	// An archive with nothing to translate has nothing to review either.
	if s.ReviewMode && len(res.Pairs) > 0 {
		task, err = s.Repo.Update(ctx, taskID, transition(StatusReview, summarize))
		if err != nil {
			return s.fail(ctx, taskID, startedAt, err)
		}
		s.logStatus(ctx, task, transitionLabel(StatusProcessing, StatusReview))
		return nil
	}

	outputKey, stats, err := s.writeOutput(ctx, job, task, res.Translations)
	if err != nil {
		return s.fail(ctx, taskID, startedAt, err)
	}
	completedAt := s.now()
	task, err = s.Repo.Update(ctx, taskID, transition(StatusCompleted, func(t *Task) {
		summarize(t)
		t.OutputKey = outputKey
		t.OutputFile = outputPrefix + t.Filename
		t.CompletedAt = &completedAt
	}))
	if err != nil {
		return s.fail(ctx, taskID, startedAt, err)
	}
	metrics.IncTaskCompleted()
	metrics.ObserveTaskDurationMs(durationMs(startedAt, completedAt))
	s.logStatus(ctx, task, transitionLabel(StatusProcessing, StatusCompleted), map[string]any{
		"files_rewritten":  stats.FilesRewritten,
		"strings_replaced": stats.StringsReplaced,
		"duration_ms":      durationMs(startedAt, completedAt),
	})
	return nil
}

// Confirm applies a reviewed subset of translations to a task in Review and
// completes it. State errors leave the task unchanged; a failed rebuild
// fails the task.
func (s *Service) Confirm(ctx context.Context, taskID string, selected map[string]string) (Task, error) {
	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()

	task, err := s.Repo.Get(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if task.Status != StatusReview {
		return Task{}, ErrInvalidState
	}
	if len(selected) == 0 {
		return Task{}, ErrEmptySelection
	}

	// Once accepted, a confirm runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	startedAt := s.now()
	job, err := s.prepare(ctx, task.SourceKey)
	if err != nil {
		if errors.Is(err, ErrSourceMissing) {
			return Task{}, err
		}
		return Task{}, s.fail(ctx, taskID, startedAt, err)
	}
	defer job.Close()

	outputKey, stats, err := s.writeOutput(ctx, job, task, selected)
	if err != nil {
		return Task{}, s.fail(ctx, taskID, startedAt, err)
	}
	completedAt := s.now()
	task, err = s.Repo.Update(ctx, taskID, transition(StatusCompleted, func(t *Task) {
		t.OutputKey = outputKey
		t.OutputFile = outputPrefix + t.Filename
		t.CompletedAt = &completedAt
	}))
	if err != nil {
		return Task{}, err
	}
	metrics.IncTaskCompleted()
	s.logStatus(ctx, task, transitionLabel(StatusReview, StatusCompleted), map[string]any{
		"selected":         len(selected),
		"files_rewritten":  stats.FilesRewritten,
		"strings_replaced": stats.StringsReplaced,
	})
	return redact(task), nil
}

// Status returns a snapshot of a task.
func (s *Service) Status(ctx context.Context, taskID string) (Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return Task{}, ErrNotFound
	}
	task, err := s.Repo.Get(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	return redact(task), nil
}

// List returns every task ordered by creation.
func (s *Service) List(ctx context.Context) ([]Task, error) {
	tasks, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i] = redact(tasks[i])
	}
	return tasks, nil
}

// Download opens the rebuilt archive of a completed task. The caller closes
// the reader.
func (s *Service) Download(ctx context.Context, taskID string) (io.ReadCloser, string, error) {
	task, err := s.Repo.Get(ctx, taskID)
	if err != nil {
		return nil, "", err
	}
	if task.Status != StatusCompleted {
		return nil, "", ErrNotCompleted
	}
	body, err := s.Store.Open(ctx, task.OutputKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, "", ErrOutputMissing
		}
		return nil, "", fmt.Errorf("open output: %w", err)
	}
	return body, outputPrefix + task.Filename, nil
}

// Preview extracts the candidate strings of an upload without translating.
// Nothing is retained once it returns.
func (s *Service) Preview(ctx context.Context, filename string, body io.Reader) (Preview, error) {
	name, err := archiveName(filename)
	if err != nil {
		return Preview{}, err
	}
	job, err := pipeline.Prepare(ctx, body, s.ScratchDir)
	if err != nil {
		return Preview{}, err
	}
	defer job.Close()

	candidates := job.Candidates()
	return Preview{
		TaskID:   s.nextID(previewIDPrefix),
		Filename: name,
		Strings:  candidates,
		Total:    len(candidates),
	}, nil
}

func (s *Service) prepare(ctx context.Context, sourceKey string) (*pipeline.Job, error) {
	src, err := s.Store.Open(ctx, sourceKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, ErrSourceMissing
		}
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()
	return pipeline.Prepare(ctx, src, s.ScratchDir)
}

// writeOutput streams the rebuilt archive straight into the object store.
func (s *Service) writeOutput(ctx context.Context, job *pipeline.Job, task Task, translations map[string]string) (string, pipeline.ApplyStats, error) {
	key := path.Join(object.NamespaceOutputs, task.ID, outputPrefix+task.Filename)

	pr, pw := io.Pipe()
	statsCh := make(chan pipeline.ApplyStats, 1)
	go func() {
		stats, err := job.Apply(ctx, translations, pw)
		statsCh <- stats
		pw.CloseWithError(err)
	}()

	_, saveErr := s.Store.SaveWithKey(ctx, key, "application/java-archive", pr)
	pr.CloseWithError(saveErr)
	stats := <-statsCh
	if saveErr != nil {
		s.discard(ctx, key)
		return "", pipeline.ApplyStats{}, fmt.Errorf("write output: %w", saveErr)
	}
	return key, stats, nil
}

func (s *Service) fail(ctx context.Context, taskID string, startedAt time.Time, cause error) error {
	msg := sanitizeError(cause)
	completedAt := s.now()
	var from Status
	task, err := s.Repo.Update(context.WithoutCancel(ctx), taskID, func(t *Task) error {
		from = t.Status
		return transition(StatusFailed, func(t *Task) {
			t.Error = msg
			t.Credential = ""
			t.ETASeconds = 0
			t.CompletedAt = &completedAt
		})(t)
	})
	if err != nil {
		telemetry.Error("task.fail_update", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"task_id":    taskID,
			"error":      err.Error(),
			"cause":      msg,
		})
		return cause
	}
	metrics.IncTaskFailed()
	metrics.ObserveTaskDurationMs(durationMs(startedAt, completedAt))
	s.logStatus(ctx, task, transitionLabel(from, StatusFailed), map[string]any{
		"error":       msg,
		"duration_ms": durationMs(startedAt, completedAt),
	})
	return cause
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		telemetry.Warn("store.delete_failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (s *Service) logStatus(ctx context.Context, task Task, label string, extra ...map[string]any) {
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"task_id":           task.ID,
		"client_id":         task.ClientID,
		"status":            string(task.Status),
		"status_transition": label,
		"ai_model":          task.Model,
		"target_lang":       task.TargetLang,
	}
	for _, m := range extra {
		for k, v := range m {
			fields[k] = v
		}
	}
	if task.Status == StatusFailed {
		telemetry.Error("task.status", fields)
		return
	}
	telemetry.Info("task.status", fields)
}

func (s *Service) reportQueueDepth() {
	if q, ok := s.Queue.(interface{ Len() int }); ok {
		metrics.SetQueueDepth(q.Len())
	}
}

func (s *Service) nextID(prefix string) string {
	return prefix + strconv.FormatInt(s.seq.Add(1)-1, 10)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func archiveName(filename string) (string, error) {
	name, err := util.SanitizeFileName(util.BaseFileName(filename))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".jar") {
		return "", fmt.Errorf("%w: only .jar files are supported", ErrValidation)
	}
	return name, nil
}

func normalizeLang(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return DefaultTargetLang
	}
	return strings.ReplaceAll(code, "-", "_")
}

func redact(t Task) Task {
	t.Credential = ""
	return t
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
