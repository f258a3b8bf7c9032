package patch

import (
	"errors"
	"testing"

	"github.com/mdnotes/vault-mcp/internal/etag"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestApply_SequencingAgainstCumulativeState(t *testing.T) {
	content := "1\n2\n3\n4"
	ops := []Operation{
		{Kind: OpReplaceLines, StartLine: 2, EndLine: 3, Content: strPtr("A\nB")},
		{Kind: OpInsertAfter, Line: intPtr(1), Content: strPtr("X")},
	}

	got, applied, _ := Apply(content, ops)
	want := "1\nX\nA\nB\n4"
	if got != want {
		t.Errorf("Apply() = %q, want %q (operations must see cumulative state)", got, want)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}
}

func TestApply_InsertAtDocumentStart(t *testing.T) {
	got, _, _ := Apply("a\nb", []Operation{
		{Kind: OpInsertAfter, Line: intPtr(0), Content: strPtr("top")},
	})
	if got != "top\na\nb" {
		t.Errorf("Apply() = %q, want top\\na\\nb", got)
	}
}

func TestApply_DeleteLines(t *testing.T) {
	got, _, affected := Apply("1\n2\n3\n4\n5", []Operation{
		{Kind: OpDeleteLines, StartLine: 2, EndLine: 4},
	})
	if got != "1\n5" {
		t.Errorf("Apply() = %q, want 1\\n5", got)
	}
	if affected != 3 {
		t.Errorf("linesAffected = %d, want 3", affected)
	}
}

func TestApply_ReplaceFirstAndAll(t *testing.T) {
	got, applied, _ := Apply("x x x", []Operation{
		{Kind: OpReplaceFirst, Search: strPtr("x"), Replace: strPtr("y")},
	})
	if got != "y x x" || applied != 1 {
		t.Errorf("replace_first = %q (applied %d)", got, applied)
	}

	got, _, affected := Apply("x x x", []Operation{
		{Kind: OpReplaceAll, Search: strPtr("x"), Replace: strPtr("y")},
	})
	if got != "y y y" || affected != 3 {
		t.Errorf("replace_all = %q (affected %d)", got, affected)
	}
}

func TestApply_ReplaceFirstMissingIsNoop(t *testing.T) {
	got, applied, _ := Apply("abc", []Operation{
		{Kind: OpReplaceFirst, Search: strPtr("zzz"), Replace: strPtr("y")},
	})
	if got != "abc" {
		t.Errorf("Apply() = %q, want unchanged", got)
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1 (a no-op still counts as applied)", applied)
	}
}

func TestApply_ReplaceRegex(t *testing.T) {
	got, _, affected := Apply("Foo bar foo", []Operation{
		{Kind: OpReplaceRegex, Pattern: strPtr("foo"), Replace: strPtr("baz"), Flags: "gi"},
	})
	if got != "baz bar baz" || affected != 2 {
		t.Errorf("replace_regex gi = %q (affected %d)", got, affected)
	}

	got, _, affected = Apply("Foo bar foo", []Operation{
		{Kind: OpReplaceRegex, Pattern: strPtr("foo"), Replace: strPtr("baz"), Flags: "i"},
	})
	if got != "baz bar foo" || affected != 1 {
		t.Errorf("replace_regex i = %q (affected %d), want first only", got, affected)
	}
}

func TestApply_ReplaceRegexCaptures(t *testing.T) {
	got, _, _ := Apply("name: ann", []Operation{
		{Kind: OpReplaceRegex, Pattern: strPtr(`name: (\w+)`), Replace: strPtr("author: $1"), Flags: "g"},
	})
	if got != "author: ann" {
		t.Errorf("Apply() = %q, want author: ann", got)
	}
}

func TestApply_IncompleteOperationsSkipped(t *testing.T) {
	ops := []Operation{
		{Kind: OpReplaceLines, StartLine: 1, EndLine: 1}, // missing content
		{Kind: OpInsertAfter, Content: strPtr("x")},      // missing line
		{Kind: OpReplaceFirst, Search: strPtr("a")},      // missing replace
		{Kind: "unknown"},
		{Kind: OpReplaceAll, Search: strPtr("a"), Replace: strPtr("b")},
	}

	got, applied, _ := Apply("a", ops)
	if got != "b" {
		t.Errorf("Apply() = %q, want b", got)
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1 (incomplete operations skipped silently)", applied)
	}
}

func TestApply_EmptyStringIsPresent(t *testing.T) {
	// Deleting text via an empty replacement must not be mistaken for a
	// missing field.
	got, applied, _ := Apply("abc", []Operation{
		{Kind: OpReplaceAll, Search: strPtr("b"), Replace: strPtr("")},
	})
	if got != "ac" || applied != 1 {
		t.Errorf("Apply() = %q (applied %d), want ac", got, applied)
	}
}

type memStorage map[string]string

func (m memStorage) Read(root, rel string) (string, error) {
	content, ok := m[root+"/"+rel]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

func (m memStorage) Write(root, rel, content string) error {
	m[root+"/"+rel] = content
	return nil
}

func TestEngine_PatchPersists(t *testing.T) {
	store := memStorage{"main/note.md": "hello\nworld"}
	engine := NewEngine(store)

	current := etag.Compute("hello\nworld")
	result, err := engine.Patch("main", "note.md", []Operation{
		{Kind: OpReplaceFirst, Search: strPtr("world"), Replace: strPtr("there")},
	}, current)
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	if store["main/note.md"] != "hello\nthere" {
		t.Errorf("stored content = %q", store["main/note.md"])
	}
	if result.Etag != etag.Compute("hello\nthere") {
		t.Errorf("result etag = %q, want fingerprint of final content", result.Etag)
	}
	if result.Applied != 1 {
		t.Errorf("Applied = %d, want 1", result.Applied)
	}
}

func TestEngine_StaleEtagConflict(t *testing.T) {
	store := memStorage{"main/note.md": "current content"}
	engine := NewEngine(store)

	_, err := engine.Patch("main", "note.md", []Operation{
		{Kind: OpReplaceAll, Search: strPtr("current"), Replace: strPtr("new")},
	}, "0123456789abcdef")

	var conflict *Conflict
	if !errors.As(err, &conflict) {
		t.Fatalf("Patch() error = %v, want *Conflict", err)
	}
	if conflict.CurrentEtag != etag.Compute("current content") {
		t.Errorf("CurrentEtag = %q", conflict.CurrentEtag)
	}
	if conflict.ExpectedEtag != "0123456789abcdef" {
		t.Errorf("ExpectedEtag = %q", conflict.ExpectedEtag)
	}
	if conflict.Content != "current content" {
		t.Errorf("conflict Content = %q, want current document", conflict.Content)
	}
	if store["main/note.md"] != "current content" {
		t.Error("conflict mutated the stored document")
	}
}

func TestEngine_EmptyEtagSkipsValidation(t *testing.T) {
	store := memStorage{"main/note.md": "a"}
	engine := NewEngine(store)

	if _, err := engine.Patch("main", "note.md", []Operation{
		{Kind: OpReplaceAll, Search: strPtr("a"), Replace: strPtr("b")},
	}, ""); err != nil {
		t.Fatalf("Patch() with empty etag error = %v", err)
	}
	if store["main/note.md"] != "b" {
		t.Errorf("stored content = %q, want b", store["main/note.md"])
	}
}
