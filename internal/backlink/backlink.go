// Package backlink finds every document that references a given
// target, by rescanning the whole vault on each call. There is no
// persistent link index; the O(documents x size) cost per query is the
// accepted price of the stateless design.
package backlink

import (
	"context"
	"path"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mdnotes/vault-mcp/internal/frontmatter"
)

// Match is one referencing line in a source document.
type Match struct {
	Line     int    `json:"line"`
	LinkText string `json:"linkText"`
	Context  string `json:"context,omitempty"`
}

// Backlink groups all matches from one source document.
type Backlink struct {
	SourcePath  string  `json:"sourcePath"`
	SourceTitle string  `json:"sourceTitle"`
	Matches     []Match `json:"matches"`
}

// Repository is the document access a scan needs.
type Repository interface {
	RootNames() []string
	MarkdownFiles(root string) ([]string, error)
	Read(root, rel string) (string, error)
}

// Options controls a scan.
type Options struct {
	// ContextLines captures that many lines before and after each
	// matching line. Zero means no context.
	ContextLines int
}

// targetPattern builds a regex matching wikilinks to the target in
// either its path form or bare filename form, tolerating an optional
// #heading, ^block or |alias suffix.
func targetPattern(targetPath string) *regexp.Regexp {
	pathForm := strings.TrimSuffix(targetPath, ".md")
	nameForm := strings.TrimSuffix(path.Base(targetPath), ".md")

	alts := regexp.QuoteMeta(pathForm)
	if nameForm != pathForm {
		alts += "|" + regexp.QuoteMeta(nameForm)
	}
	return regexp.MustCompile(`(?i)!?\[\[\s*(?:` + alts + `)\s*(?:[#^|][^\]]*)?\]\]`)
}

// Find scans every other document in every root for references to the
// target, grouping matches per source and sorting descending by match
// count. Unreadable documents are skipped. The target never matches
// itself.
func Find(ctx context.Context, repo Repository, targetRoot, targetPath string, opts Options) ([]Backlink, int, error) {
	pattern := targetPattern(targetPath)

	var (
		mu    sync.Mutex
		links []Backlink
		total int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(runtime.NumCPU(), 1))

	for _, root := range repo.RootNames() {
		files, err := repo.MarkdownFiles(root)
		if err != nil {
			continue
		}
		for _, rel := range files {
			if root == targetRoot && rel == targetPath {
				continue
			}
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				content, err := repo.Read(root, rel)
				if err != nil {
					return nil
				}
				matches := scan(content, pattern, opts.ContextLines)
				if len(matches) == 0 {
					return nil
				}
				bl := Backlink{
					SourcePath:  sourcePath(root, rel, repo),
					SourceTitle: title(content, rel),
					Matches:     matches,
				}
				mu.Lock()
				links = append(links, bl)
				total += len(matches)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	sort.Slice(links, func(i, j int) bool {
		if len(links[i].Matches) != len(links[j].Matches) {
			return len(links[i].Matches) > len(links[j].Matches)
		}
		return links[i].SourcePath < links[j].SourcePath
	})
	return links, total, nil
}

// sourcePath prefixes the root name when more than one root is
// configured, so results stay unambiguous.
func sourcePath(root, rel string, repo Repository) string {
	if len(repo.RootNames()) > 1 {
		return root + "/" + rel
	}
	return rel
}

func scan(content string, pattern *regexp.Regexp, contextLines int) []Match {
	lines := strings.Split(content, "\n")
	var matches []Match
	for i, line := range lines {
		for _, found := range pattern.FindAllString(line, -1) {
			m := Match{Line: i + 1, LinkText: found}
			if contextLines > 0 {
				start := max(i-contextLines, 0)
				end := min(i+contextLines+1, len(lines))
				m.Context = strings.Join(lines[start:end], "\n")
			}
			matches = append(matches, m)
		}
	}
	return matches
}

// title resolves a document's display title: the frontmatter title key
// if present, else the filename stem.
func title(content, rel string) string {
	if _, raw, _, ok := frontmatter.Detect(content); ok {
		mapping := frontmatter.Parse(raw)
		if t, ok := mapping["title"].(string); ok && t != "" {
			return t
		}
	}
	return strings.TrimSuffix(path.Base(rel), ".md")
}
