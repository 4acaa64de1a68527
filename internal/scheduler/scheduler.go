// Package scheduler fans candidate strings out to a translator in fixed-size
// batches under a concurrency bound and merges the results back in order.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"jar-translator/internal/shared/metrics"
	"jar-translator/internal/shared/telemetry"
)

const (
	DefaultBatchSize    = 50
	DefaultWindow       = 5
	DefaultBatchTimeout = 2 * time.Minute
)

// Translator translates one batch. The result should have the same length and
// order as texts.
type Translator interface {
	TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// Progress is reported after every finished batch.
type Progress struct {
	CompletedBatches int
	TotalBatches     int
	Percent          int
	Elapsed          time.Duration
	ETA              time.Duration
}

// Pair is one candidate and its translation, in input order.
type Pair struct {
	Index      int    `json:"index"`
	Original   string `json:"original"`
	Translated string `json:"translated"`
	Changed    bool   `json:"changed"`
}

// Result is the merged output of Run.
type Result struct {
	Translations map[string]string
	Pairs        []Pair
	TotalBatches int
	Failed       []*BatchError
}

// ChangedCount returns how many pairs differ from their original.
func (r *Result) ChangedCount() int {
	n := 0
	for _, p := range r.Pairs {
		if p.Changed {
			n++
		}
	}
	return n
}

// Scheduler holds the batching policy. The zero value uses the defaults.
type Scheduler struct {
	BatchSize    int
	Window       int
	BatchTimeout time.Duration
	// Now is the clock used for progress and ETA.
	Now func() time.Time
	// Fields are added to every log line, e.g. a task id.
	Fields map[string]any
}

func (s *Scheduler) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return DefaultBatchSize
}

func (s *Scheduler) window() int {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultWindow
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Batches splits texts into consecutive slices of at most size strings.
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}

// Run translates texts and returns the merged result. At most Window batches
// are in flight; a new batch starts as soon as one finishes, in index order.
// Batch failures never abort the run: the failing batch keeps its original
// texts and the error is recorded in Result.Failed. onProgress may be nil and
// is never called concurrently.
func (s *Scheduler) Run(ctx context.Context, tr Translator, texts []string, targetLang string, onProgress func(Progress)) *Result {
	batches := Batches(texts, s.batchSize())
	res := &Result{
		Translations: make(map[string]string, len(texts)),
		Pairs:        make([]Pair, 0, len(texts)),
		TotalBatches: len(batches),
	}
	if len(batches) == 0 {
		return res
	}

	merged := make([][]string, len(batches))
	failed := make([]*BatchError, len(batches))

	var (
		mu        sync.Mutex
		completed int
	)
	start := s.now()

	var g errgroup.Group
	g.SetLimit(s.window())
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			out, err := s.translate(ctx, tr, batch, targetLang)
			if err != nil {
				failed[i] = &BatchError{Batch: i, Size: len(batch), Err: err}
				telemetry.Warn("task.batch_failed", s.fields(map[string]any{
					"batch": i,
					"size":  len(batch),
					"error": err.Error(),
				}))
			}
			merged[i] = out

			mu.Lock()
			defer mu.Unlock()
			completed++
			if onProgress != nil {
				onProgress(s.progress(start, completed, len(batches)))
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, out := range merged {
		base := i * s.batchSize()
		for j, translated := range out {
			original := texts[base+j]
			res.Translations[original] = translated
			res.Pairs = append(res.Pairs, Pair{
				Index:      base + j,
				Original:   original,
				Translated: translated,
				Changed:    translated != original,
			})
		}
	}
	for _, be := range failed {
		if be != nil {
			res.Failed = append(res.Failed, be)
		}
	}
	return res
}

// translate runs one batch under the batch deadline and always returns a slice
// the same length as batch: the original texts on failure, and the original
// text for any position the translator left out.
func (s *Scheduler) translate(ctx context.Context, tr Translator, batch []string, targetLang string) (out []string, err error) {
	out = append([]string(nil), batch...)
	begin := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = append([]string(nil), batch...)
			err = fmt.Errorf("translator panic: %v", r)
		}
		metrics.ObserveBatch(metrics.SinceMillis(begin), err != nil)
	}()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	timeout := s.BatchTimeout
	if timeout <= 0 {
		timeout = DefaultBatchTimeout
	}
	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	got, err := tr.TranslateBatch(bctx, batch, targetLang)
	if err != nil {
		return out, err
	}
	for i := range out {
		if i < len(got) {
			out[i] = got[i]
		}
	}
	return out, nil
}

func (s *Scheduler) progress(start time.Time, completed, total int) Progress {
	elapsed := s.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	avg := elapsed / time.Duration(completed)
	return Progress{
		CompletedBatches: completed,
		TotalBatches:     total,
		Percent:          completed * 100 / total,
		Elapsed:          elapsed,
		ETA:              avg * time.Duration(total-completed),
	}
}

func (s *Scheduler) fields(extra map[string]any) map[string]any {
	out := make(map[string]any, len(s.Fields)+len(extra))
	for k, v := range s.Fields {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
