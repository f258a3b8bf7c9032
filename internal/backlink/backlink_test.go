package backlink

import (
	"context"
	"sort"
	"testing"
)

type fakeRepo map[string]map[string]string

func (f fakeRepo) RootNames() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f fakeRepo) MarkdownFiles(root string) ([]string, error) {
	var files []string
	for rel := range f[root] {
		files = append(files, rel)
	}
	sort.Strings(files)
	return files, nil
}

func (f fakeRepo) Read(root, rel string) (string, error) {
	return f[root][rel], nil
}

func TestFind_GroupsAndSorts(t *testing.T) {
	repo := fakeRepo{
		"main": {
			"target.md": "# Target\n\nself [[target]] link ignored",
			"one.md":    "mentions [[target]] once",
			"many.md":   "[[target|alias]] then\n[[target#Heading]] again",
			"none.md":   "no links here",
		},
	}

	links, total, err := Find(context.Background(), repo, "main", "target.md", Options{})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2: %+v", len(links), links)
	}
	if links[0].SourcePath != "many.md" || len(links[0].Matches) != 2 {
		t.Errorf("links[0] = %+v, want many.md with 2 matches first", links[0])
	}
	if links[1].SourcePath != "one.md" {
		t.Errorf("links[1] = %+v, want one.md", links[1])
	}
}

func TestFind_PathFormAndSuffixes(t *testing.T) {
	repo := fakeRepo{
		"main": {
			"projects/roadmap.md": "# Roadmap",
			"a.md":                "see [[projects/roadmap]] for details",
			"b.md":                "see [[Roadmap#Q3|the plan]]",
			"c.md":                "embeds ![[roadmap]]",
		},
	}

	links, total, err := Find(context.Background(), repo, "main", "projects/roadmap.md", Options{})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(links) != 3 || total != 3 {
		t.Errorf("links = %d (total %d), want 3 sources", len(links), total)
	}
}

func TestFind_TitleFromFrontmatter(t *testing.T) {
	repo := fakeRepo{
		"main": {
			"t.md":   "# T",
			"src.md": "---\ntitle: Fancy Name\n---\nlinks [[t]]",
		},
	}

	links, _, err := Find(context.Background(), repo, "main", "t.md", Options{})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("len(links) = %d, want 1", len(links))
	}
	if links[0].SourceTitle != "Fancy Name" {
		t.Errorf("SourceTitle = %q, want frontmatter title", links[0].SourceTitle)
	}
}

func TestFind_ContextCapture(t *testing.T) {
	repo := fakeRepo{
		"main": {
			"t.md":   "# T",
			"src.md": "before\nthe [[t]] line\nafter\nfar away",
		},
	}

	links, _, err := Find(context.Background(), repo, "main", "t.md", Options{ContextLines: 1})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(links) != 1 || len(links[0].Matches) != 1 {
		t.Fatalf("links = %+v", links)
	}
	m := links[0].Matches[0]
	if m.Line != 2 {
		t.Errorf("Line = %d, want 2", m.Line)
	}
	if m.Context != "before\nthe [[t]] line\nafter" {
		t.Errorf("Context = %q", m.Context)
	}
}

func TestFind_ShortNameDoesNotMatchOthers(t *testing.T) {
	repo := fakeRepo{
		"main": {
			"note.md":     "# Note",
			"notebook.md": "links [[notebook]] only",
			"src.md":      "see [[notebook]]",
		},
	}

	links, _, err := Find(context.Background(), repo, "main", "note.md", Options{})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(links) != 0 {
		t.Errorf("links = %+v, want none (notebook must not match note)", links)
	}
}
