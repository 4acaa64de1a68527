package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	tasksSubmittedTotal atomic.Uint64
	tasksRejectedTotal  atomic.Uint64
	tasksCompletedTotal atomic.Uint64
	tasksFailedTotal    atomic.Uint64
	batchesTotal        atomic.Uint64
	batchesFailedTotal  atomic.Uint64
	queueDepth          atomic.Int64

	taskDuration  = newHistogram([]float64{1000, 5000, 15000, 30000, 60000, 120000, 300000, 600000})
	batchDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncTaskSubmitted counts an accepted submission.
func IncTaskSubmitted() {
	tasksSubmittedTotal.Add(1)
}

// IncTaskRejected counts a submission refused because the queue was full.
func IncTaskRejected() {
	tasksRejectedTotal.Add(1)
}

// IncTaskCompleted increments the completed counter.
func IncTaskCompleted() {
	tasksCompletedTotal.Add(1)
}

// IncTaskFailed increments the failed counter.
func IncTaskFailed() {
	tasksFailedTotal.Add(1)
}

// SetQueueDepth records the number of tasks waiting for the worker.
func SetQueueDepth(n int) {
	queueDepth.Store(int64(n))
}

// ObserveTaskDurationMs records how long the worker spent on one task.
func ObserveTaskDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	taskDuration.Observe(value)
}

// ObserveBatch records one translation batch call.
func ObserveBatch(durationMs float64, failed bool) {
	if durationMs < 0 {
		durationMs = 0
	}
	batchesTotal.Add(1)
	if failed {
		batchesFailedTotal.Add(1)
	}
	batchDuration.Observe(durationMs)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "tasks_submitted_total", "Total translation tasks accepted", tasksSubmittedTotal.Load())
	writeCounter(&buf, "tasks_rejected_total", "Total submissions rejected with a full queue", tasksRejectedTotal.Load())
	writeCounter(&buf, "tasks_completed_total", "Total translation tasks completed", tasksCompletedTotal.Load())
	writeCounter(&buf, "tasks_failed_total", "Total translation tasks failed", tasksFailedTotal.Load())
	writeGauge(&buf, "task_queue_depth", "Tasks waiting for the worker", queueDepth.Load())
	writeCounter(&buf, "translation_batches_total", "Total translation batch calls", batchesTotal.Load())
	writeCounter(&buf, "translation_batches_failed_total", "Translation batches that fell back to source text", batchesFailedTotal.Load())
	writeHistogram(&buf, "task_duration_ms", "Task processing duration in milliseconds", taskDuration.Snapshot())
	writeHistogram(&buf, "translation_batch_duration_ms", "Translation batch duration in milliseconds", batchDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeGauge(buf *bytes.Buffer, name, help string, value int64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
