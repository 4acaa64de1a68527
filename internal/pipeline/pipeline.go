// Package pipeline runs one archive through extraction, translation and
// rebuild. The task worker and the CLI both drive it.
package pipeline

import (
	"context"
	"io"

	"jar-translator/internal/archive"
	"jar-translator/internal/classifier"
	"jar-translator/internal/extract"
	"jar-translator/internal/scheduler"
)

// Job is an opened archive with its candidates extracted. Close must be called
// on every path.
type Job struct {
	ws        *archive.Workspace
	extracted *extract.Result
}

// ApplyStats summarizes a rebuild.
type ApplyStats struct {
	FilesRewritten  int
	StringsReplaced int
	Skipped         []extract.Skipped
}

// Prepare copies src into scratch storage under scratchRoot and extracts every
// translatable string. Errors matching archive.ErrFatal mean the archive could
// not be processed at all.
func Prepare(ctx context.Context, src io.Reader, scratchRoot string) (*Job, error) {
	ws, err := archive.Open(ctx, src, scratchRoot)
	if err != nil {
		return nil, err
	}
	classes, err := ws.ClassFiles(ctx)
	if err != nil {
		ws.Close()
		return nil, err
	}
	sources := make([]extract.Source, 0, len(classes))
	for _, c := range classes {
		sources = append(sources, extract.Source{Name: c.Name, Data: c.Data})
	}
	res, err := extract.Extract(ctx, sources, classifier.ShouldTranslate)
	if err != nil {
		ws.Close()
		return nil, err
	}
	return &Job{ws: ws, extracted: res}, nil
}

// Candidates returns the unique translatable strings in extraction order.
func (j *Job) Candidates() []string {
	return j.extracted.Candidates
}

// Extracted exposes the occurrence map and skipped files.
func (j *Job) Extracted() *extract.Result {
	return j.extracted
}

// Translate runs the candidates through sched.
func (j *Job) Translate(ctx context.Context, sched *scheduler.Scheduler, tr scheduler.Translator, targetLang string, onProgress func(scheduler.Progress)) *scheduler.Result {
	return sched.Run(ctx, tr, j.extracted.Candidates, targetLang, onProgress)
}

// Apply burns translations into the class files and writes the rebuilt archive
// to dst.
func (j *Job) Apply(ctx context.Context, translations map[string]string, dst io.Writer) (ApplyStats, error) {
	rewritten, skipped, err := j.extracted.Apply(ctx, translations)
	if err != nil {
		return ApplyStats{}, err
	}
	replaced := make(map[string][]byte, len(rewritten))
	stats := ApplyStats{Skipped: skipped, FilesRewritten: len(rewritten)}
	for _, rw := range rewritten {
		replaced[rw.Name] = rw.Data
		stats.StringsReplaced += rw.Replaced
	}
	if err := j.ws.Rebuild(ctx, dst, replaced); err != nil {
		return ApplyStats{}, err
	}
	return stats, nil
}

// Close releases scratch storage.
func (j *Job) Close() error {
	return j.ws.Close()
}
