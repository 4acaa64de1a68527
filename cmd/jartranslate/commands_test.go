package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"jar-translator/internal/classfile"
	"jar-translator/internal/scheduler"
)

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

func writeJar(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name string
		data []byte
	}{
		{"com/example/Menu.class", classBytes(t, "com/example/Menu", "Open the menu", "Close the door", "getValue")},
		{"META-INF/MANIFEST.MF", []byte("Manifest-Version: 1.0\n")},
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	path := filepath.Join(t.TempDir(), "mod.jar")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write jar: %v", err)
	}
	return path
}

func testCommand(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	return cmd
}

func jarStrings(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer zr.Close()
	var out []string
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry: %v", err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		cf, err := classfile.Decode(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		for _, s := range cf.Strings() {
			out = append(out, s.Text)
		}
	}
	return out
}

func TestPreviewPrintsCandidates(t *testing.T) {
	jar := writeJar(t)

	var buf bytes.Buffer
	previewJSON = false
	if err := runPreview(testCommand(&buf), []string{jar}); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if got := buf.String(); got != "Open the menu\nClose the door\n" {
		t.Fatalf("unexpected preview output %q", got)
	}

	buf.Reset()
	previewJSON = true
	t.Cleanup(func() { previewJSON = false })
	if err := runPreview(testCommand(&buf), []string{jar}); err != nil {
		t.Fatalf("preview --json: %v", err)
	}
	var got []string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode preview json: %v", err)
	}
	if len(got) != 2 || got[1] != "Close the door" {
		t.Fatalf("unexpected preview json %v", got)
	}
}

func TestApplyBurnsSelection(t *testing.T) {
	jar := writeJar(t)
	dir := t.TempDir()
	selection := filepath.Join(dir, "selection.json")
	if err := os.WriteFile(selection, []byte(`{"Open the menu":"打开菜单","getValue":"nope"}`), 0o644); err != nil {
		t.Fatalf("write selection: %v", err)
	}

	applyOut = filepath.Join(dir, "out.jar")
	t.Cleanup(func() { applyOut = "" })
	var buf bytes.Buffer
	if err := runApply(testCommand(&buf), []string{jar, selection}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got := strings.Join(jarStrings(t, applyOut), "|")
	if !strings.Contains(got, "打开菜单") || strings.Contains(got, "Open the menu") {
		t.Fatalf("translation not applied: %s", got)
	}
	if !strings.Contains(got, "getValue") || !strings.Contains(got, "Close the door") {
		t.Fatalf("non-selected strings changed: %s", got)
	}
}

func TestApplyRejectsEmptySelection(t *testing.T) {
	jar := writeJar(t)
	selection := filepath.Join(t.TempDir(), "selection.json")
	if err := os.WriteFile(selection, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write selection: %v", err)
	}
	if err := runApply(testCommand(io.Discard), []string{jar, selection}); err == nil {
		t.Fatalf("expected error for empty selection")
	}
}

func TestReadSelectionAcceptsReviewPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.json")
	pairs := []scheduler.Pair{
		{Index: 0, Original: "Open the menu", Translated: "打开菜单", Changed: true},
		{Index: 1, Original: "Close the door", Translated: "Close the door"},
	}
	if err := writePairs(path, pairs); err != nil {
		t.Fatalf("writePairs: %v", err)
	}
	got, err := readSelection(path)
	if err != nil {
		t.Fatalf("readSelection: %v", err)
	}
	if len(got) != 2 || got["Open the menu"] != "打开菜单" {
		t.Fatalf("unexpected selection %v", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`"nope"`), 0o644)
	if _, err := readSelection(bad); err == nil {
		t.Fatalf("expected error for a scalar document")
	}
}

func TestCheckExplainsVerdicts(t *testing.T) {
	var buf bytes.Buffer
	runCheck(testCommand(&buf), []string{"Open the menu", "getValue"})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "translate\t") {
		t.Fatalf("expected translate verdict, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "keep (") {
		t.Fatalf("expected keep verdict, got %q", lines[1])
	}
}

func TestOutputPath(t *testing.T) {
	if got := outputPath(filepath.Join("dir", "mod.jar"), ""); got != filepath.Join("dir", "translated_mod.jar") {
		t.Fatalf("unexpected default output %q", got)
	}
	if got := outputPath("mod.jar", "x.jar"); got != "x.jar" {
		t.Fatalf("explicit output ignored: %q", got)
	}
}
