// Package patch applies scripted text mutations to a single document
// under optimistic concurrency control.
//
// Operations run in the order given, each against the cumulative
// result of the ones before it, never against the original snapshot.
// An operation missing required fields for its kind is skipped
// silently rather than aborting the batch; required-ness is modeled
// with pointer fields so an empty string counts as present.
package patch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mdnotes/vault-mcp/internal/etag"
)

// Operation kinds.
const (
	OpReplaceLines = "replace_lines"
	OpInsertAfter  = "insert_after"
	OpDeleteLines  = "delete_lines"
	OpReplaceFirst = "replace_first"
	OpReplaceAll   = "replace_all"
	OpReplaceRegex = "replace_regex"
)

// Operation is one scripted mutation. Which fields are required
// depends on Kind.
type Operation struct {
	Kind      string  `json:"kind"`
	StartLine int     `json:"startLine,omitempty"`
	EndLine   int     `json:"endLine,omitempty"`
	Line      *int    `json:"line,omitempty"`
	Content   *string `json:"content,omitempty"`
	Search    *string `json:"search,omitempty"`
	Replace   *string `json:"replace,omitempty"`
	Pattern   *string `json:"pattern,omitempty"`
	Flags     string  `json:"flags,omitempty"`
}

// Result reports what a successful patch did.
type Result struct {
	Applied       int
	LinesAffected int
	Content       string
	Etag          string
}

// Conflict is returned when the caller's expected fingerprint no
// longer matches the stored document. It carries both fingerprints and
// the current content so the caller can resynchronize without another
// round trip. No mutation happens on conflict.
type Conflict struct {
	ExpectedEtag string
	CurrentEtag  string
	Content      string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("conflict detected: expected etag %s, current %s", c.ExpectedEtag, c.CurrentEtag)
}

// Apply runs the operations against content, returning the final text,
// the number of operations applied, and a best-effort count of lines
// affected. Incomplete operations are skipped.
func Apply(content string, ops []Operation) (string, int, int) {
	applied := 0
	affected := 0

	for _, op := range ops {
		next, lines, ok := applyOne(content, op)
		if !ok {
			continue
		}
		content = next
		applied++
		affected += lines
	}
	return content, applied, affected
}

func applyOne(content string, op Operation) (string, int, bool) {
	switch op.Kind {
	case OpReplaceLines:
		if op.Content == nil || op.StartLine < 1 || op.EndLine < op.StartLine {
			return content, 0, false
		}
		lines := strings.Split(content, "\n")
		if op.StartLine > len(lines) {
			return content, 0, false
		}
		end := min(op.EndLine, len(lines))
		replacement := strings.Split(*op.Content, "\n")
		out := make([]string, 0, len(lines)-(end-op.StartLine+1)+len(replacement))
		out = append(out, lines[:op.StartLine-1]...)
		out = append(out, replacement...)
		out = append(out, lines[end:]...)
		return strings.Join(out, "\n"), max(end-op.StartLine+1, len(replacement)), true

	case OpInsertAfter:
		if op.Content == nil || op.Line == nil || *op.Line < 0 {
			return content, 0, false
		}
		lines := strings.Split(content, "\n")
		at := min(*op.Line, len(lines))
		inserted := strings.Split(*op.Content, "\n")
		out := make([]string, 0, len(lines)+len(inserted))
		out = append(out, lines[:at]...)
		out = append(out, inserted...)
		out = append(out, lines[at:]...)
		return strings.Join(out, "\n"), len(inserted), true

	case OpDeleteLines:
		if op.StartLine < 1 || op.EndLine < op.StartLine {
			return content, 0, false
		}
		lines := strings.Split(content, "\n")
		if op.StartLine > len(lines) {
			return content, 0, false
		}
		end := min(op.EndLine, len(lines))
		out := append([]string{}, lines[:op.StartLine-1]...)
		out = append(out, lines[end:]...)
		return strings.Join(out, "\n"), end - op.StartLine + 1, true

	case OpReplaceFirst:
		if op.Search == nil || op.Replace == nil {
			return content, 0, false
		}
		// Absent search text is a no-op, not an error.
		if !strings.Contains(content, *op.Search) {
			return content, 0, true
		}
		return strings.Replace(content, *op.Search, *op.Replace, 1), 1, true

	case OpReplaceAll:
		if op.Search == nil || op.Replace == nil {
			return content, 0, false
		}
		n := strings.Count(content, *op.Search)
		if n == 0 {
			return content, 0, true
		}
		return strings.ReplaceAll(content, *op.Search, *op.Replace), n, true

	case OpReplaceRegex:
		if op.Pattern == nil || op.Replace == nil {
			return content, 0, false
		}
		re, all, err := compilePattern(*op.Pattern, op.Flags)
		if err != nil {
			return content, 0, false
		}
		count := 0
		limit := 1
		if all {
			limit = -1
		}
		out := replaceCounted(re, content, *op.Replace, limit, &count)
		return out, count, true
	}
	return content, 0, false
}

// compilePattern translates JS-style flags: i, m, s become Go inline
// flags; g switches first-occurrence to all-occurrences replacement.
func compilePattern(pattern, flags string) (*regexp.Regexp, bool, error) {
	var inline strings.Builder
	all := false
	for _, f := range flags {
		switch f {
		case 'g':
			all = true
		case 'i', 'm', 's':
			inline.WriteRune(f)
		}
	}
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	return re, all, err
}

func replaceCounted(re *regexp.Regexp, content, replacement string, limit int, count *int) string {
	return re.ReplaceAllStringFunc(content, func(m string) string {
		if limit >= 0 && *count >= limit {
			return m
		}
		*count++
		// Expand $1-style references against this match.
		idx := re.FindStringSubmatchIndex(m)
		return string(re.ExpandString(nil, replacement, m, idx))
	})
}

// Storage is the document I/O the engine drives.
type Storage interface {
	Read(root, rel string) (string, error)
	Write(root, rel, content string) error
}

// Engine validates fingerprints and persists patched documents.
type Engine struct {
	storage Storage
}

// NewEngine creates an Engine over the given storage.
func NewEngine(storage Storage) *Engine {
	return &Engine{storage: storage}
}

// Patch reads the document, validates the caller's expected
// fingerprint, applies the operations in order and persists the result
// in one write. On fingerprint mismatch it returns a *Conflict and
// performs no mutation. An empty expectedEtag skips validation.
//
// The gap between validation and write is an accepted race: the
// protocol is optimistic, not locking.
func (e *Engine) Patch(root, rel string, ops []Operation, expectedEtag string) (Result, error) {
	current, err := e.storage.Read(root, rel)
	if err != nil {
		return Result{}, err
	}

	currentEtag := etag.Compute(current)
	if !etag.Matches(expectedEtag, currentEtag) {
		return Result{}, &Conflict{
			ExpectedEtag: expectedEtag,
			CurrentEtag:  currentEtag,
			Content:      current,
		}
	}

	final, applied, affected := Apply(current, ops)
	if err := e.storage.Write(root, rel, final); err != nil {
		return Result{}, err
	}

	return Result{
		Applied:       applied,
		LinesAffected: affected,
		Content:       final,
		Etag:          etag.Compute(final),
	}, nil
}
