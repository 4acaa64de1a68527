package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"jar-translator/internal/archive"
	"jar-translator/internal/classfile"
	"jar-translator/internal/scheduler"
	"jar-translator/internal/shared/telemetry"
)

type upperTranslator struct{}

func (upperTranslator) TranslateBatch(ctx context.Context, texts []string, lang string) ([]string, error) {
	out := make([]string, len(texts))
	for i, s := range texts {
		out[i] = strings.ToUpper(s)
	}
	return out, nil
}

func classBytes(t *testing.T, texts ...string) []byte {
	t.Helper()
	cf := &classfile.ClassFile{MajorVersion: 61, Pool: []*classfile.Entry{nil}}
	for _, s := range texts {
		cf.Pool = append(cf.Pool, &classfile.Entry{Tag: classfile.TagUtf8, Bytes: []byte(s)})
	}
	data, err := classfile.Encode(cf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func jarWith(t *testing.T, files map[string][]byte, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	files := map[string][]byte{
		"a/Menu.class":  classBytes(t, "a/Menu", "Open the menu", "getValue"),
		"b/Other.class": classBytes(t, "Open the menu", "Close"),
		"Broken.class":  []byte("not a class"),
		"readme.txt":    []byte("Open the menu"),
	}
	order := []string{"a/Menu.class", "b/Other.class", "Broken.class", "readme.txt"}

	job, err := Prepare(context.Background(), bytes.NewReader(jarWith(t, files, order)), t.TempDir())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer job.Close()

	if got := job.Candidates(); len(got) != 1 || got[0] != "Open the menu" {
		t.Fatalf("unexpected candidates %v", got)
	}
	if len(job.Extracted().Skipped) != 1 {
		t.Fatalf("expected the broken class to be skipped")
	}

	res := job.Translate(context.Background(), &scheduler.Scheduler{}, upperTranslator{}, "en_us", nil)
	if res.Translations["Open the menu"] != "OPEN THE MENU" {
		t.Fatalf("unexpected translations %v", res.Translations)
	}

	var out bytes.Buffer
	stats, err := job.Apply(context.Background(), res.Translations, &out)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if stats.FilesRewritten != 2 || stats.StringsReplaced != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	zr, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	for i, f := range zr.File {
		if f.Name != order[i] {
			t.Fatalf("entry order changed: %s at %d", f.Name, i)
		}
		rc, _ := f.Open()
		data, _ := io.ReadAll(rc)
		rc.Close()
		switch f.Name {
		case "readme.txt", "Broken.class":
			if !bytes.Equal(data, files[f.Name]) {
				t.Fatalf("%s changed", f.Name)
			}
		default:
			cf, err := classfile.Decode(data)
			if err != nil {
				t.Fatalf("decode %s: %v", f.Name, err)
			}
			found := false
			for _, s := range cf.Strings() {
				if s.Text == "OPEN THE MENU" {
					found = true
				}
				if s.Text == "Open the menu" {
					t.Fatalf("%s still has the source string", f.Name)
				}
			}
			if !found {
				t.Fatalf("%s missing translation", f.Name)
			}
		}
	}
}

func TestPrepareReleasesScratchOnFatalError(t *testing.T) {
	scratch := t.TempDir()
	_, err := Prepare(context.Background(), strings.NewReader("not a jar"), scratch)
	if !errors.Is(err, archive.ErrFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Fatalf("scratch not released")
	}
}
