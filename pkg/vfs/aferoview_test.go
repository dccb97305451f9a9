package vfs

import (
	"io"
	"testing"

	"github.com/spf13/afero"
)

func newTestView(t *testing.T, readOnly bool) (*AferoView, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/docs", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := afero.WriteFile(fs, "/docs/readme.txt", []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return NewAferoView(fs, readOnly), fs
}

func TestResolveAbsoluteAndRelative(t *testing.T) {
	v, _ := newTestView(t, false)

	h, err := v.Resolve("/docs/readme.txt")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if h.FullName() != "/docs/readme.txt" {
		t.Errorf("FullName = %q, want /docs/readme.txt", h.FullName())
	}
	if h.Name() != "readme.txt" {
		t.Errorf("Name = %q, want readme.txt", h.Name())
	}

	// Relative path resolves against the working directory
	h2, err := v.Resolve("docs")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if h2.FullName() != "/docs" {
		t.Errorf("FullName = %q, want /docs", h2.FullName())
	}
}

func TestResolveEmptyYieldsWorkingDir(t *testing.T) {
	v, _ := newTestView(t, false)
	h, err := v.Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if h.FullName() != "/" {
		t.Errorf("FullName = %q, want /", h.FullName())
	}
	if !h.IsDir() {
		t.Error("root should be a directory")
	}
}

func TestResolveContainsEscapeAttempts(t *testing.T) {
	v, _ := newTestView(t, false)

	// ".." components collapse at the root; the path stays inside the view.
	h, err := v.Resolve("/../../etc/passwd")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if h.FullName() != "/etc/passwd" {
		t.Errorf("FullName = %q, want /etc/passwd", h.FullName())
	}
	if h.Exists() {
		t.Error("contained path must not exist in the view")
	}

	// NUL bytes are never resolvable
	if _, err := v.Resolve("bad\x00name"); err == nil {
		t.Error("expected NUL path to fail resolution")
	}
}

func TestHandleExistence(t *testing.T) {
	v, _ := newTestView(t, false)

	h, _ := v.Resolve("/docs/readme.txt")
	if !h.Exists() {
		t.Error("readme.txt should exist")
	}
	if h.IsDir() {
		t.Error("readme.txt should not be a directory")
	}

	missing, _ := v.Resolve("/docs/nope.txt")
	if missing.Exists() {
		t.Error("nope.txt should not exist")
	}
}

func TestWritePermission(t *testing.T) {
	rw, _ := newTestView(t, false)
	ro, _ := newTestView(t, true)

	h, _ := rw.Resolve("/docs/new.txt")
	if !h.HasWritePermission() {
		t.Error("new file in writable view should be writable")
	}

	h2, _ := ro.Resolve("/docs/new.txt")
	if h2.HasWritePermission() {
		t.Error("read-only view must deny write permission")
	}
}

func TestOpenWriteAndReadBack(t *testing.T) {
	v, fs := newTestView(t, false)

	h, _ := v.Resolve("/docs/out.bin")
	w, err := h.OpenWrite(0)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if _, err := w.Write([]byte("payload")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := afero.ReadFile(fs, "/docs/out.bin")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q, want payload", data)
	}
}

func TestOpenWriteTruncatesAtOffsetZero(t *testing.T) {
	v, fs := newTestView(t, false)

	h, _ := v.Resolve("/docs/readme.txt")
	w, err := h.OpenWrite(0)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	w.Write([]byte("x"))
	w.Close()

	data, _ := afero.ReadFile(fs, "/docs/readme.txt")
	if string(data) != "x" {
		t.Errorf("content = %q, want x", data)
	}
}

func TestOpenWriteReadOnlyView(t *testing.T) {
	v, _ := newTestView(t, true)
	h, _ := v.Resolve("/docs/out.bin")
	if _, err := h.OpenWrite(0); err == nil {
		t.Error("OpenWrite on read-only view should fail")
	}
}

func TestOpenRead(t *testing.T) {
	v, _ := newTestView(t, false)
	h, _ := v.Resolve("/docs/readme.txt")

	r, err := h.OpenRead(0)
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer r.Close()

	data, _ := io.ReadAll(r)
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", data)
	}
}

func TestListDir(t *testing.T) {
	v, fs := newTestView(t, false)
	afero.WriteFile(fs, "/docs/a.txt", []byte("a"), 0644)
	fs.MkdirAll("/docs/sub", 0755)

	h, _ := v.Resolve("/docs")
	entries, err := h.ListDir()
	if err != nil {
		t.Fatalf("ListDir failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Sorted by name
	if entries[0].Name != "a.txt" || entries[1].Name != "readme.txt" || entries[2].Name != "sub" {
		t.Errorf("unexpected order: %v %v %v", entries[0].Name, entries[1].Name, entries[2].Name)
	}
	if !entries[2].IsDir {
		t.Error("sub should be a directory")
	}
	if entries[0].FullName != "/docs/a.txt" {
		t.Errorf("FullName = %q, want /docs/a.txt", entries[0].FullName)
	}
}

func TestListDirOnFileFails(t *testing.T) {
	v, _ := newTestView(t, false)
	h, _ := v.Resolve("/docs/readme.txt")
	if _, err := h.ListDir(); err == nil {
		t.Error("ListDir on a file should fail")
	}
}

func TestChangeDir(t *testing.T) {
	v, _ := newTestView(t, false)

	if err := v.ChangeDir("/docs"); err != nil {
		t.Fatalf("ChangeDir failed: %v", err)
	}
	if v.WorkingDir() != "/docs" {
		t.Errorf("WorkingDir = %q, want /docs", v.WorkingDir())
	}

	// File is not a valid working directory
	if err := v.ChangeDir("readme.txt"); err == nil {
		t.Error("ChangeDir to a file should fail")
	}
}

func TestRename(t *testing.T) {
	v, fs := newTestView(t, false)

	if err := v.Rename("/docs/readme.txt", "/docs/manual.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if _, err := fs.Stat("/docs/manual.txt"); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
	if _, err := fs.Stat("/docs/readme.txt"); err == nil {
		t.Error("old name still exists after rename")
	}

	// Relative paths resolve against the working directory
	if err := v.ChangeDir("/docs"); err != nil {
		t.Fatalf("ChangeDir failed: %v", err)
	}
	if err := v.Rename("manual.txt", "guide.txt"); err != nil {
		t.Fatalf("relative Rename failed: %v", err)
	}
	if _, err := fs.Stat("/docs/guide.txt"); err != nil {
		t.Errorf("relatively renamed file missing: %v", err)
	}
}

func TestRenameReadOnlyView(t *testing.T) {
	v, _ := newTestView(t, true)

	if err := v.Rename("/docs/readme.txt", "/docs/other.txt"); err == nil {
		t.Error("Rename on a read-only view should fail")
	}
}

func TestRemove(t *testing.T) {
	v, fs := newTestView(t, false)

	if err := v.Remove("/docs/readme.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := fs.Stat("/docs/readme.txt"); err == nil {
		t.Error("file still exists after Remove")
	}

	// Directories and missing files are refused
	if err := v.Remove("/docs"); err == nil {
		t.Error("Remove on a directory should fail")
	}
	if err := v.Remove("/docs/absent.txt"); err == nil {
		t.Error("Remove on a missing file should fail")
	}
}

func TestRemoveReadOnlyView(t *testing.T) {
	v, _ := newTestView(t, true)

	if err := v.Remove("/docs/readme.txt"); err == nil {
		t.Error("Remove on a read-only view should fail")
	}
}
