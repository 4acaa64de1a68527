// Package cleanup removes expired uploads and outputs from the object store.
package cleanup

import (
	"context"
	"time"

	"jar-translator/internal/shared/storage/object"
	"jar-translator/internal/shared/telemetry"
)

const (
	DefaultMaxAge   = time.Hour
	DefaultInterval = time.Hour
)

// Sweeper is the part of the object store the janitor needs.
type Sweeper interface {
	Sweep(ctx context.Context, namespace string, cutoff time.Time) (int, error)
}

// Janitor periodically deletes objects older than MaxAge.
type Janitor struct {
	Store      Sweeper
	MaxAge     time.Duration
	Interval   time.Duration
	Namespaces []string
	Now        func() time.Time
}

// NewJanitor sweeps the upload and output namespaces of store.
func NewJanitor(store Sweeper, maxAge, interval time.Duration) *Janitor {
	return &Janitor{
		Store:      store,
		MaxAge:     maxAge,
		Interval:   interval,
		Namespaces: []string{object.NamespaceUploads, object.NamespaceOutputs},
	}
}

// RunOnce sweeps every namespace once and returns how many objects were
// removed. A failing namespace is logged and does not stop the others.
func (j *Janitor) RunOnce(ctx context.Context) int {
	cutoff := j.now().Add(-j.maxAge())
	total := 0
	for _, ns := range j.Namespaces {
		n, err := j.Store.Sweep(ctx, ns, cutoff)
		total += n
		if err != nil {
			telemetry.Error("cleanup.sweep_failed", map[string]any{
				"namespace": ns,
				"removed":   n,
				"error":     err.Error(),
			})
			continue
		}
		telemetry.Info("cleanup.sweep", map[string]any{
			"namespace": ns,
			"removed":   n,
			"cutoff":    cutoff.Format(time.RFC3339),
		})
	}
	return total
}

// Run sweeps immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *Janitor) maxAge() time.Duration {
	if j.MaxAge > 0 {
		return j.MaxAge
	}
	return DefaultMaxAge
}

func (j *Janitor) interval() time.Duration {
	if j.Interval > 0 {
		return j.Interval
	}
	return DefaultInterval
}

func (j *Janitor) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}
