package tags

import (
	"context"
	"testing"
)

func TestExtractContent_FrontmatterShapes(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"inline list", "---\ntags: [Project/Frontend, draft]\n---\nbody"},
		{"delimited line", "---\ntags: project/frontend, draft\n---\nbody"},
		{"block list", "---\ntags:\n  - project/frontend\n  - draft\n---\nbody"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			occ := ExtractContent(tc.content)
			if len(occ) != 2 {
				t.Fatalf("len(occ) = %d, want 2: %+v", len(occ), occ)
			}
			if occ[0].Tag != "project/frontend" || occ[0].Location != LocationFrontmatter {
				t.Errorf("occ[0] = %+v", occ[0])
			}
			if occ[1].Tag != "draft" {
				t.Errorf("occ[1] = %+v", occ[1])
			}
		})
	}
}

func TestExtractContent_InlineExcludesFrontmatterBlock(t *testing.T) {
	content := "---\ntags: [meta]\n---\ntext with #inline/tag here\nand #Another"

	occ := ExtractContent(content)
	if len(occ) != 3 {
		t.Fatalf("len(occ) = %d, want 3: %+v", len(occ), occ)
	}

	inline := occ[1]
	if inline.Tag != "inline/tag" || inline.Location != LocationBody || inline.Line != 4 {
		t.Errorf("inline occurrence = %+v, want inline/tag at line 4", inline)
	}
	if occ[2].Tag != "another" {
		t.Errorf("occ[2].Tag = %q, want lowercase another", occ[2].Tag)
	}
}

func TestExtractContent_NoDoubleCounting(t *testing.T) {
	// A tags key inside frontmatter must not also match the inline scan.
	content := "---\ntags: [once]\n---\nplain body"

	occ := ExtractContent(content)
	if len(occ) != 1 {
		t.Errorf("len(occ) = %d, want 1: %+v", len(occ), occ)
	}
}

func TestMatches_Hierarchy(t *testing.T) {
	tests := []struct {
		search, tag string
		want        bool
	}{
		{"project", "project", true},
		{"project", "project/frontend", true},
		{"project", "projectx", false},
		{"project/frontend", "project", false},
		{"Project", "project/Frontend", true},
		{"#project", "project/api", true},
	}
	for _, tt := range tests {
		if got := Matches(tt.search, tt.tag); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.search, tt.tag, got, tt.want)
		}
	}
}

type fakeRepo map[string]map[string]string

func (f fakeRepo) RootNames() []string {
	return []string{"main"}
}

func (f fakeRepo) MarkdownFiles(root string) ([]string, error) {
	var files []string
	for rel := range f[root] {
		files = append(files, rel)
	}
	return files, nil
}

func (f fakeRepo) Read(root, rel string) (string, error) {
	return f[root][rel], nil
}

func TestList_Aggregation(t *testing.T) {
	repo := fakeRepo{
		"main": {
			"a.md": "---\ntags: [go, notes]\n---\nbody #go",
			"b.md": "uses #go once",
			"c.md": "no tags at all",
		},
	}

	counts, stats, err := List(context.Background(), repo)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if stats.TotalNotes != 3 || stats.NotesWithTags != 2 {
		t.Errorf("stats = %+v, want {3 2}", stats)
	}
	if len(counts) != 2 {
		t.Fatalf("len(counts) = %d, want 2: %+v", len(counts), counts)
	}
	if counts[0].Tag != "go" || counts[0].Count != 3 {
		t.Errorf("counts[0] = %+v, want go with 3", counts[0])
	}
	if counts[1].Tag != "notes" || counts[1].Count != 1 {
		t.Errorf("counts[1] = %+v, want notes with 1", counts[1])
	}
}
