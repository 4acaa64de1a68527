package extract

import (
	"context"
	"fmt"

	"jar-translator/internal/classfile"
	"jar-translator/internal/shared/telemetry"
)

// Source is one class file's raw bytes and its name inside the archive.
type Source struct {
	Name string
	Data []byte
}

// Occurrence locates one Utf8 entry holding a candidate string.
type Occurrence struct {
	File  string `json:"file"`
	Index int    `json:"index"`
}

// Skipped records a class file that could not be decoded or re-encoded.
type Skipped struct {
	Name string
	Err  error
}

// Rewritten is a class file whose bytes changed after applying translations.
type Rewritten struct {
	Name     string
	Data     []byte
	Replaced int
}

type file struct {
	name string
	data []byte
}

// Result holds everything extracted from a set of class files.
type Result struct {
	// Candidates lists unique candidate strings in first-seen order.
	Candidates []string
	// Occurrences maps each candidate to every place it appears.
	Occurrences map[string][]Occurrence
	Skipped     []Skipped
	// Scanned counts decodable Utf8 entries across all files, candidates or not.
	Scanned int

	files []file
}

// Files returns how many class files decoded successfully.
func (r *Result) Files() int {
	return len(r.files)
}

// Extract decodes every source, collects Utf8 strings accepted by keep and
// records where each one occurs. A file that fails to decode is skipped and
// logged; only context cancellation aborts the walk.
func Extract(ctx context.Context, sources []Source, keep func(string) bool) (*Result, error) {
	res := &Result{Occurrences: make(map[string][]Occurrence)}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cf, err := classfile.Decode(src.Data)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Name: src.Name, Err: err})
			telemetry.Warn("extract.skip_file", map[string]any{
				"file":  src.Name,
				"error": err.Error(),
			})
			continue
		}
		res.files = append(res.files, file{name: src.Name, data: src.Data})

		for _, s := range cf.Strings() {
			res.Scanned++
			if !keep(s.Text) {
				continue
			}
			if _, seen := res.Occurrences[s.Text]; !seen {
				res.Candidates = append(res.Candidates, s.Text)
			}
			res.Occurrences[s.Text] = append(res.Occurrences[s.Text], Occurrence{File: src.Name, Index: s.Index})
		}
	}
	return res, nil
}

// Apply rewrites every candidate found in translations and returns the class
// files whose bytes changed. Keys that are not candidates are ignored. Each call
// starts from the original bytes, so Apply may be called repeatedly. A file that
// cannot be re-encoded (for example a translation over the Utf8 length limit)
// keeps its original bytes and is reported in the skipped list.
func (r *Result) Apply(ctx context.Context, translations map[string]string) ([]Rewritten, []Skipped, error) {
	var (
		out     []Rewritten
		skipped []Skipped
	)
	replace := func(s string) string {
		if _, ok := r.Occurrences[s]; !ok {
			return s
		}
		if t, ok := translations[s]; ok {
			return t
		}
		return s
	}

	for _, f := range r.files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		cf, err := classfile.Decode(f.data)
		if err != nil {
			skipped = append(skipped, Skipped{Name: f.name, Err: err})
			continue
		}
		n := cf.MutateUTF8(replace)
		if n == 0 {
			continue
		}
		data, err := classfile.Encode(cf)
		if err != nil {
			err = fmt.Errorf("re-encode %s: %w", f.name, err)
			skipped = append(skipped, Skipped{Name: f.name, Err: err})
			telemetry.Warn("extract.skip_file", map[string]any{
				"file":  f.name,
				"error": err.Error(),
			})
			continue
		}
		out = append(out, Rewritten{Name: f.name, Data: data, Replaced: n})
	}
	return out, skipped, nil
}
