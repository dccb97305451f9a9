package listing

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/ftplab/ftpd/pkg/vfs"
)

func listView(t *testing.T) vfs.View {
	t.Helper()
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/pub/sub", 0755)
	afero.WriteFile(fs, "/pub/alpha.txt", []byte("aaaa"), 0644)
	afero.WriteFile(fs, "/pub/.hidden", []byte("h"), 0644)
	return vfs.NewAferoView(fs, false)
}

func render(t *testing.T, arg ListArgument, view vfs.View, f Formatter) string {
	t.Helper()
	r, err := List(arg, view, f)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return string(data)
}

func TestListDirectory(t *testing.T) {
	out := render(t, ListArgument{Path: "/pub"}, listView(t), NameOnlyFormatter)

	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "alpha.txt" || lines[1] != "sub" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestListShowHidden(t *testing.T) {
	out := render(t, ListArgument{Path: "/pub", ShowHidden: true}, listView(t), NameOnlyFormatter)
	if !strings.Contains(out, ".hidden") {
		t.Errorf("hidden entry missing from -a output: %q", out)
	}
}

func TestListSingleFile(t *testing.T) {
	out := render(t, ListArgument{Path: "/pub/alpha.txt"}, listView(t), NameOnlyFormatter)
	if out != "alpha.txt\r\n" {
		t.Errorf("single file listing = %q", out)
	}
}

func TestListEmptyDirectory(t *testing.T) {
	out := render(t, ListArgument{Path: "/pub/sub"}, listView(t), LongFormatter)
	if out != "" {
		t.Errorf("empty directory should produce zero lines, got %q", out)
	}
}

func TestListMissingTarget(t *testing.T) {
	if _, err := List(ListArgument{Path: "/nope"}, listView(t), LongFormatter); err == nil {
		t.Error("listing a missing target should fail")
	}
}

func TestLongFormatterLine(t *testing.T) {
	e := vfs.EntryInfo{
		Name:      "alpha.txt",
		IsDir:     false,
		Size:      4,
		Mode:      0644,
		ModTime:   time.Now(),
		Owner:     "ftp",
		Group:     "ftp",
		LinkCount: 1,
	}
	line := LongFormatter.Format(e)

	if !strings.HasPrefix(line, "-rw-r--r--") {
		t.Errorf("line should start with permissions: %q", line)
	}
	if !strings.HasSuffix(line, "alpha.txt\r\n") {
		t.Errorf("line should end with name and CRLF: %q", line)
	}
	if !strings.Contains(line, "ftp") {
		t.Errorf("line should carry owner/group: %q", line)
	}
}

func TestLongFormatterOldFileShowsYear(t *testing.T) {
	e := vfs.EntryInfo{
		Name:    "old.txt",
		Mode:    0644,
		ModTime: time.Now().Add(-365 * 24 * time.Hour),
	}
	line := LongFormatter.Format(e)
	year := time.Now().Add(-365 * 24 * time.Hour).Format("2006")
	if !strings.Contains(line, year) {
		t.Errorf("old entry should show year %s: %q", year, line)
	}
}

// The stream is recomputed per call: two invocations yield equal,
// independently consumable output.
func TestListRestartablePerCall(t *testing.T) {
	view := listView(t)
	arg := ListArgument{Path: "/pub"}

	first := render(t, arg, view, LongFormatter)
	second := render(t, arg, view, LongFormatter)
	if first != second {
		t.Error("repeated listings of an unchanged directory should match")
	}
}
