// Package archive opens a JAR in scratch storage, hands out its class files and
// rebuilds it with a set of replaced entries.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"jar-translator/internal/shared/telemetry"
)

// MaxClassSize bounds how much of a single class entry is read into memory.
const MaxClassSize = 16 << 20

// ErrFatal matches every FatalError via errors.Is.
var ErrFatal = errors.New("archive fatal error")

// FatalError aborts a whole job: the archive cannot be opened or scratch space
// cannot be allocated.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}

// ClassEntry is one .class entry read from the archive.
type ClassEntry struct {
	Name string
	Data []byte
}

// Workspace is an archive copied into its own scratch directory. Close removes
// the directory.
type Workspace struct {
	dir    string
	reader *zip.ReadCloser
	once   sync.Once
}

// Open copies src into a fresh directory under scratchRoot and opens it as a zip
// archive. An empty scratchRoot means the OS temp dir.
func Open(ctx context.Context, src io.Reader, scratchRoot string) (*Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(scratchRoot, "jar-*")
	if err != nil {
		return nil, &FatalError{Op: "allocate scratch", Err: err}
	}

	ws, err := open(src, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return ws, nil
}

func open(src io.Reader, dir string) (*Workspace, error) {
	path := filepath.Join(dir, "source.jar")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, &FatalError{Op: "allocate scratch", Err: err}
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return nil, &FatalError{Op: "copy archive", Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &FatalError{Op: "copy archive", Err: err}
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &FatalError{Op: "open archive", Err: err}
	}
	return &Workspace{dir: dir, reader: zr}, nil
}

// Dir is the workspace's scratch directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Names lists every entry name in archive order.
func (w *Workspace) Names() []string {
	out := make([]string, 0, len(w.reader.File))
	for _, f := range w.reader.File {
		out = append(out, f.Name)
	}
	return out
}

// ClassFiles reads every entry ending in .class. Entries that cannot be read
// are logged and left out; they are still copied unchanged by Rebuild.
func (w *Workspace) ClassFiles(ctx context.Context) ([]ClassEntry, error) {
	var out []ClassEntry
	for _, f := range w.reader.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			telemetry.Warn("archive.skip_entry", map[string]any{
				"entry": f.Name,
				"error": err.Error(),
			})
			continue
		}
		out = append(out, ClassEntry{Name: f.Name, Data: data})
	}
	return out, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxClassSize {
		return nil, fmt.Errorf("entry is %d bytes, limit %d", f.UncompressedSize64, MaxClassSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxClassSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxClassSize {
		return nil, fmt.Errorf("entry exceeds %d bytes", MaxClassSize)
	}
	return data, nil
}

// Rebuild writes a new archive to dst with the same entries in the same order.
// Entries named in replaced get the new bytes, compressed with Deflate; every
// other entry is copied in its original compressed form.
func (w *Workspace) Rebuild(ctx context.Context, dst io.Writer, replaced map[string][]byte) error {
	zw := zip.NewWriter(dst)
	if w.reader.Comment != "" {
		if err := zw.SetComment(w.reader.Comment); err != nil {
			return fmt.Errorf("rebuild: comment: %w", err)
		}
	}

	for _, f := range w.reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, ok := replaced[f.Name]
		var err error
		if ok {
			err = writeReplaced(zw, f, data)
		} else {
			err = copyRaw(zw, f)
		}
		if err != nil {
			return fmt.Errorf("rebuild: entry %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("rebuild: finish: %w", err)
	}
	return nil
}

func writeReplaced(zw *zip.Writer, f *zip.File, data []byte) error {
	hdr := &zip.FileHeader{
		Name:           f.Name,
		Comment:        f.Comment,
		Method:         zip.Deflate,
		Modified:       f.Modified,
		ExternalAttrs:  f.ExternalAttrs,
		CreatorVersion: f.CreatorVersion,
	}
	out, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func copyRaw(zw *zip.Writer, f *zip.File) error {
	raw, err := f.OpenRaw()
	if err != nil {
		return err
	}
	hdr := f.FileHeader
	out, err := zw.CreateRaw(&hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, raw)
	return err
}

// Close releases the archive and removes the scratch directory. It is safe to
// call more than once.
func (w *Workspace) Close() error {
	var err error
	w.once.Do(func() {
		if cerr := w.reader.Close(); cerr != nil {
			err = cerr
		}
		if rerr := os.RemoveAll(w.dir); rerr != nil && err == nil {
			err = rerr
		}
	})
	return err
}
