package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"Daily.md":            "# Daily\n\ncontent",
		"projects/Roadmap.md": "# Roadmap",
		"assets/logo.png":     "\x89PNG",
		".obsidian/config":    "{}",
		"node_modules/x/y.md": "hidden",
		".trash/Old.md":       "deleted",
	}
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return New([]Root{{Name: "main", Path: dir}}, nil), dir
}

func TestReadWrite(t *testing.T) {
	s, _ := testService(t)

	content, err := s.Read("main", "Daily.md")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if content != "# Daily\n\ncontent" {
		t.Errorf("Read() = %q", content)
	}

	if err := s.Write("main", "new/Deep.md", "# Deep"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := s.Read("main", "new/Deep.md")
	if err != nil || got != "# Deep" {
		t.Errorf("Read(new/Deep.md) = %q, %v", got, err)
	}
}

func TestRead_NotFound(t *testing.T) {
	s, _ := testService(t)

	_, err := s.Read("main", "Missing.md")
	if err == nil {
		t.Fatal("Read(Missing.md) error = nil")
	}
}

func TestResolve_TraversalRejected(t *testing.T) {
	s, _ := testService(t)

	if _, err := s.Resolve("main", "../outside.md"); err == nil {
		t.Error("Resolve(../outside.md) error = nil, want traversal rejection")
	}
}

func TestResolve_FilteredRejected(t *testing.T) {
	s, _ := testService(t)

	if _, err := s.Read("main", ".obsidian/config"); err == nil {
		t.Error("Read(.obsidian/config) error = nil, want access denied")
	}
}

func TestExists(t *testing.T) {
	s, _ := testService(t)

	if !s.Exists("main", "Daily.md") {
		t.Error("Exists(Daily.md) = false")
	}
	if s.Exists("main", "Missing.md") {
		t.Error("Exists(Missing.md) = true")
	}
	if s.Exists("main", "projects") {
		t.Error("Exists(projects) = true for a directory")
	}
}

func TestDeleteAndMove(t *testing.T) {
	s, _ := testService(t)

	if err := s.Move("main", "Daily.md", "archive/Daily.md", false); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if s.Exists("main", "Daily.md") {
		t.Error("source still exists after move")
	}
	if !s.Exists("main", "archive/Daily.md") {
		t.Error("target missing after move")
	}

	if err := s.Move("main", "archive/Daily.md", "projects/Roadmap.md", false); err == nil {
		t.Error("Move() onto existing target without overwrite succeeded")
	}

	if err := s.Delete("main", "archive/Daily.md"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete("main", "archive/Daily.md"); err == nil {
		t.Error("Delete() of missing file error = nil")
	}
}

func TestMarkdownFiles_FilteredAndSorted(t *testing.T) {
	s, _ := testService(t)

	files, err := s.MarkdownFiles("main")
	if err != nil {
		t.Fatalf("MarkdownFiles() error = %v", err)
	}
	want := []string{"Daily.md", "projects/Roadmap.md"}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("MarkdownFiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestAllFiles_IncludesAttachments(t *testing.T) {
	s, _ := testService(t)

	files, err := s.AllFiles("main")
	if err != nil {
		t.Fatalf("AllFiles() error = %v", err)
	}
	found := false
	for _, f := range files {
		if f == "assets/logo.png" {
			found = true
		}
	}
	if !found {
		t.Errorf("AllFiles() = %v, missing assets/logo.png", files)
	}
}

func TestListDirectory(t *testing.T) {
	s, _ := testService(t)

	listing, err := s.ListDirectory("main", "")
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}
	for _, d := range listing.Directories {
		if d == ".obsidian" || d == ".trash" {
			t.Errorf("listing exposes hidden directory %s", d)
		}
	}
	if len(listing.Files) != 1 || listing.Files[0] != "Daily.md" {
		t.Errorf("Files = %v, want [Daily.md]", listing.Files)
	}
}

func TestUnknownRoot(t *testing.T) {
	s, _ := testService(t)

	if _, err := s.Read("nope", "Daily.md"); err == nil {
		t.Error("Read with unknown root error = nil")
	}
}

func TestDefaultRoot(t *testing.T) {
	s, _ := testService(t)

	if _, err := s.Read("", "Daily.md"); err != nil {
		t.Errorf("Read with empty root error = %v, want first-root default", err)
	}
}
