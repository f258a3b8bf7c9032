// Package sections extracts the heading hierarchy of a markdown
// document as a tree of line-ranged regions.
//
// The scanner is a single forward pass over lines with two mode flags
// (inside frontmatter, inside a fenced code block). Headings inside
// code fences or blockquotes are never extracted. This is deliberately
// not a markdown parser; heading lines, fence delimiters and
// blockquote prefixes are the only syntax it knows.
package sections

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mdnotes/vault-mcp/internal/frontmatter"
)

// FrontmatterHeading is the sentinel heading name that addresses the
// frontmatter block as a pseudo-section in lookups.
const FrontmatterHeading = "frontmatter"

// Section is a heading-demarcated region of a document. Heading is nil
// for the implicit region before the first heading, which always sits
// at the root level with Level 0. All line numbers are 1-indexed and
// inclusive; a parent's range encloses all of its descendants'.
type Section struct {
	Heading   *string    `json:"heading"`
	Level     int        `json:"level"`
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
	LineCount int        `json:"lineCount"`
	Children  []*Section `json:"children"`
}

// Document is the parsed structure of one note.
type Document struct {
	TotalLines  int
	Frontmatter *frontmatter.Block
	Sections    []*Section
}

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	fencePattern   = regexp.MustCompile("^(`{3,}|~{3,})")
)

// Parse scans raw document text into a section tree. The tree is
// rebuilt from scratch on every call; nothing is cached.
func Parse(content string) Document {
	lines := strings.Split(content, "\n")
	doc := Document{TotalLines: len(lines)}

	contentStart := 1
	if block, _, _, ok := frontmatter.Detect(content); ok {
		doc.Frontmatter = &block
		contentStart = block.EndLine + 1
	}

	type heading struct {
		text  string
		level int
		line  int
	}
	var headings []heading

	inFence := false
	for i := contentStart - 1; i < len(lines); i++ {
		line := lines[i]
		if fencePattern.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence || strings.HasPrefix(line, ">") {
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			headings = append(headings, heading{
				text:  strings.TrimSpace(m[2]),
				level: len(m[1]),
				line:  i + 1,
			})
		}
	}

	// Headings-free documents have zero sections, not one null section.
	if len(headings) == 0 {
		return doc
	}

	// Flat regions first: an implicit null region covers any gap
	// between content start and the first heading.
	var flat []*Section
	if headings[0].line > contentStart {
		flat = append(flat, &Section{
			Heading:   nil,
			Level:     0,
			StartLine: contentStart,
			EndLine:   headings[0].line - 1,
		})
	}
	for i, h := range headings {
		end := len(lines)
		if i+1 < len(headings) {
			end = headings[i+1].line - 1
		}
		text := h.text
		flat = append(flat, &Section{
			Heading:   &text,
			Level:     h.level,
			StartLine: h.line,
			EndLine:   end,
		})
	}

	doc.Sections = buildTree(flat)
	for _, root := range doc.Sections {
		raiseEnds(root)
	}
	return doc
}

// buildTree nests the flat region list by heading level using a stack
// of open sections. The null pre-content region stays a root sibling
// and never enters the stack.
func buildTree(flat []*Section) []*Section {
	var roots []*Section
	var stack []*Section

	for _, sec := range flat {
		if sec.Heading == nil {
			roots = append(roots, sec)
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= sec.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, sec)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, sec)
		}
		stack = append(stack, sec)
	}
	return roots
}

// raiseEnds lifts each parent's EndLine to cover its last child,
// bottom-up, and fills in LineCount.
func raiseEnds(s *Section) {
	for _, child := range s.Children {
		raiseEnds(child)
		if child.EndLine > s.EndLine {
			s.EndLine = child.EndLine
		}
	}
	s.LineCount = s.EndLine - s.StartLine + 1
}

// Find returns the first section whose heading matches, in
// document-order depth-first traversal. Duplicate headings resolve to
// the first occurrence.
func Find(doc Document, heading string) *Section {
	var walk func(list []*Section) *Section
	walk = func(list []*Section) *Section {
		for _, s := range list {
			if s.Heading != nil && *s.Heading == heading {
				return s
			}
			if found := walk(s.Children); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(doc.Sections)
}

// ContentOptions controls section content extraction.
type ContentOptions struct {
	IncludeHeading  bool
	IncludeChildren bool
}

// Content extracts a section's text from the full document. With
// IncludeChildren false the extraction stops before the first child;
// with IncludeHeading false it starts one line after the heading.
// Bounds are clamped to the document.
func Content(content string, s *Section, opts ContentOptions) (string, int, int) {
	lines := strings.Split(content, "\n")

	start := s.StartLine
	end := s.EndLine
	if !opts.IncludeChildren && len(s.Children) > 0 {
		end = s.Children[0].StartLine - 1
	}
	if !opts.IncludeHeading && s.Heading != nil {
		start++
	}

	start = max(start, 1)
	end = min(end, len(lines))
	if start > end {
		return "", start, end
	}
	return strings.Join(lines[start-1:end], "\n"), start, end
}

// FrontmatterSection exposes the frontmatter block as a pseudo-section.
// A document without frontmatter is an error here, unlike Detect, so
// callers addressing "frontmatter" by name get a definite answer.
func FrontmatterSection(doc Document) (*Section, error) {
	if doc.Frontmatter == nil {
		return nil, fmt.Errorf("no frontmatter found")
	}
	heading := FrontmatterHeading
	return &Section{
		Heading:   &heading,
		Level:     0,
		StartLine: doc.Frontmatter.StartLine,
		EndLine:   doc.Frontmatter.EndLine,
		LineCount: doc.Frontmatter.EndLine - doc.Frontmatter.StartLine + 1,
	}, nil
}
