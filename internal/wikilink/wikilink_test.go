package wikilink

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		raw  string
		want Link
	}{
		{"[[Note]]", Link{TargetName: "Note"}},
		{"[[Note|shown]]", Link{TargetName: "Note", DisplayText: "shown"}},
		{"[[Note#Section]]", Link{TargetName: "Note", Heading: "Section"}},
		{"[[Note#Section^abc123]]", Link{TargetName: "Note", Heading: "Section", BlockRef: "abc123"}},
		{"[[Note#^abc123]]", Link{TargetName: "Note", BlockRef: "abc123"}},
		{"[[Note#Section|shown]]", Link{TargetName: "Note", Heading: "Section", DisplayText: "shown"}},
		{"![[image.png]]", Link{TargetName: "image.png", IsEmbed: true}},
		{"[[folder/Note]]", Link{TargetName: "folder/Note"}},
	}

	ignoreRaw := cmpopts.IgnoreFields(Link{}, "Raw")
	for _, tt := range tests {
		got := Parse(tt.raw)
		if diff := cmp.Diff(tt.want, got, ignoreRaw); diff != "" {
			t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestExtract_Positions(t *testing.T) {
	content := "See [[First]] and [[Second|two]].\n\n![[embed.png]] then [[Third#H]]."

	links := Extract(content, true)
	if len(links) != 4 {
		t.Fatalf("len(links) = %d, want 4", len(links))
	}

	first := links[0]
	if first.Line != 1 || first.Column != 5 {
		t.Errorf("First at %d:%d, want 1:5", first.Line, first.Column)
	}
	embed := links[2]
	if !embed.IsEmbed || embed.Line != 3 || embed.Column != 1 {
		t.Errorf("embed = %+v, want embed at 3:1", embed)
	}

	noEmbeds := Extract(content, false)
	if len(noEmbeds) != 3 {
		t.Errorf("len(Extract excluding embeds) = %d, want 3", len(noEmbeds))
	}
}

type fakeRepo struct {
	roots map[string]struct {
		md  []string
		all []string
	}
	order []string
}

func (f *fakeRepo) RootNames() []string { return f.order }

func (f *fakeRepo) Exists(root, rel string) bool {
	r, ok := f.roots[root]
	if !ok {
		return false
	}
	for _, p := range r.all {
		if p == rel {
			return true
		}
	}
	return false
}

func (f *fakeRepo) MarkdownFiles(root string) ([]string, error) {
	return f.roots[root].md, nil
}

func (f *fakeRepo) AllFiles(root string) ([]string, error) {
	return f.roots[root].all, nil
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		order: []string{"main", "work"},
		roots: map[string]struct {
			md  []string
			all []string
		}{
			"main": {
				md:  []string{"Daily.md", "projects/Roadmap.md"},
				all: []string{"Daily.md", "projects/Roadmap.md", "assets/logo.png"},
			},
			"work": {
				md:  []string{"Roadmap.md", "Meetings.md"},
				all: []string{"Roadmap.md", "Meetings.md"},
			},
		},
	}
}

func TestResolve_ExactPathWins(t *testing.T) {
	r := NewResolver(newFakeRepo())

	got := r.Resolve("Daily")
	if !got.TargetExists || got.TargetPath != "Daily.md" || got.Root != "main" {
		t.Errorf("Resolve(Daily) = %+v", got)
	}
}

func TestResolve_BasenameScan(t *testing.T) {
	r := NewResolver(newFakeRepo())

	got := r.Resolve("roadmap")
	if !got.TargetExists || got.TargetPath != "projects/Roadmap.md" || got.Root != "main" {
		t.Errorf("Resolve(roadmap) = %+v, want first root's projects/Roadmap.md", got)
	}
}

func TestResolve_SecondRoot(t *testing.T) {
	r := NewResolver(newFakeRepo())

	got := r.Resolve("Meetings")
	if !got.TargetExists || got.Root != "work" {
		t.Errorf("Resolve(Meetings) = %+v, want hit in work root", got)
	}
}

func TestResolve_NonMarkdownEmbed(t *testing.T) {
	r := NewResolver(newFakeRepo())

	got := r.Resolve("logo.png")
	if !got.TargetExists || got.TargetPath != "assets/logo.png" {
		t.Errorf("Resolve(logo.png) = %+v", got)
	}
}

func TestResolve_MissIsNotAnError(t *testing.T) {
	r := NewResolver(newFakeRepo())

	got := r.Resolve("Nonexistent")
	if got.TargetExists || got.TargetPath != "" {
		t.Errorf("Resolve(Nonexistent) = %+v, want empty miss", got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver(newFakeRepo())

	a := r.Resolve("Roadmap")
	b := r.Resolve("Roadmap")
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Resolve() not idempotent:\n%s", diff)
	}
}
