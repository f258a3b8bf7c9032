// Package search provides full-text search across every configured
// root. Like the other scans, it re-reads the document set on each
// call; there is no index.
package search

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Repository is the document access a search needs.
type Repository interface {
	RootNames() []string
	MarkdownFiles(root string) ([]string, error)
	Read(root, rel string) (string, error)
}

// Params configures a search.
type Params struct {
	Query         string
	UseRegex      bool
	CaseSensitive bool
	ContextLines  int
	Limit         int
	Offset        int
}

// Match is one matching line with surrounding context.
type Match struct {
	Line    int    `json:"line"`
	Context string `json:"context"`
}

// Result groups matches per document.
type Result struct {
	Path    string  `json:"path"`
	Matches []Match `json:"matches"`
}

// Service runs searches over a repository.
type Service struct {
	repo Repository
}

// New creates a search Service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search scans every document for the query, returning per-document
// results in stable path order with pagination. The total count covers
// all matching documents before pagination. Unreadable documents are
// skipped.
func (s *Service) Search(ctx context.Context, params Params) ([]Result, int, error) {
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return nil, 0, fmt.Errorf("search query cannot be empty")
	}

	contextLines := params.ContextLines
	if contextLines <= 0 {
		contextLines = 2
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 15
	}
	offset := max(params.Offset, 0)

	pattern, err := compile(query, params.UseRegex, params.CaseSensitive)
	if err != nil {
		return nil, 0, err
	}

	type entry struct {
		key    string
		result Result
	}
	var (
		mu      sync.Mutex
		entries []entry
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(runtime.NumCPU(), 1))

	multiRoot := len(s.repo.RootNames()) > 1
	for _, root := range s.repo.RootNames() {
		files, err := s.repo.MarkdownFiles(root)
		if err != nil {
			continue
		}
		for _, rel := range files {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				content, err := s.repo.Read(root, rel)
				if err != nil {
					return nil
				}
				matches := scan(content, pattern, contextLines)
				if len(matches) == 0 {
					return nil
				}
				display := rel
				if multiRoot {
					display = root + "/" + rel
				}
				mu.Lock()
				entries = append(entries, entry{key: display, result: Result{Path: display, Matches: matches}})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	total := len(entries)
	if offset >= total {
		return []Result{}, total, nil
	}
	end := min(offset+limit, total)

	results := make([]Result, 0, end-offset)
	for _, e := range entries[offset:end] {
		results = append(results, e.result)
	}
	return results, total, nil
}

func compile(query string, useRegex, caseSensitive bool) (*regexp.Regexp, error) {
	if !useRegex {
		query = regexp.QuoteMeta(query)
	}
	if !caseSensitive {
		query = "(?i)" + query
	}
	pattern, err := regexp.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}
	return pattern, nil
}

func scan(content string, pattern *regexp.Regexp, contextLines int) []Match {
	lines := strings.Split(content, "\n")
	var matches []Match
	for i, line := range lines {
		if !pattern.MatchString(line) {
			continue
		}
		start := max(i-contextLines, 0)
		end := min(i+contextLines+1, len(lines))
		matches = append(matches, Match{
			Line:    i + 1,
			Context: strings.Join(lines[start:end], "\n"),
		})
	}
	return matches
}
