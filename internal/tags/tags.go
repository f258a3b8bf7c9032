// Package tags extracts hierarchical tags from frontmatter and inline
// document text, and aggregates them across the vault.
package tags

import (
	"context"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mdnotes/vault-mcp/internal/frontmatter"
)

// Location says where a tag occurrence was found.
type Location string

// Tag provenance values.
const (
	LocationFrontmatter Location = "frontmatter"
	LocationBody        Location = "body"
)

// Occurrence is one tag found in one document. Tags are normalized to
// lowercase; Line is set for body tags only.
type Occurrence struct {
	Tag      string   `json:"tag"`
	Location Location `json:"location"`
	Line     int      `json:"line,omitempty"`
}

var inlinePattern = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_][A-Za-z0-9_/-]*)`)

// ExtractContent returns all tag occurrences in a document: the
// frontmatter tags key (inline bracketed list, single delimited line,
// or block list, all handled by the frontmatter codec) plus inline
// #tags in the body. The frontmatter block is excluded from the inline
// scan so nothing is counted twice.
func ExtractContent(content string) []Occurrence {
	var occ []Occurrence

	bodyOffset := 0
	body := content
	if block, raw, rest, ok := frontmatter.Detect(content); ok {
		body = rest
		bodyOffset = block.EndLine
		mapping := frontmatter.Parse(raw)
		for _, tag := range FromMapping(mapping) {
			occ = append(occ, Occurrence{Tag: tag, Location: LocationFrontmatter})
		}
	}

	for lineNum, line := range strings.Split(body, "\n") {
		for _, m := range inlinePattern.FindAllStringSubmatch(line, -1) {
			occ = append(occ, Occurrence{
				Tag:      strings.ToLower(m[1]),
				Location: LocationBody,
				Line:     bodyOffset + lineNum + 1,
			})
		}
	}
	return occ
}

// FromMapping pulls normalized tags out of a parsed frontmatter
// mapping. The tags key may be a list or a comma/whitespace-separated
// string.
func FromMapping(mapping map[string]any) []string {
	raw, ok := mapping["tags"]
	if !ok {
		return nil
	}

	var tags []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "#")))
		if s != "" {
			tags = append(tags, s)
		}
	}

	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case []string:
		for _, s := range v {
			add(s)
		}
	case string:
		for _, s := range strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			add(s)
		}
	}
	return tags
}

// Matches reports whether a document tag satisfies a search tag under
// the hierarchy rule: "project" matches "project" and
// "project/frontend" but not "projectx". Comparison is
// case-insensitive.
func Matches(search, tag string) bool {
	search = strings.ToLower(strings.TrimPrefix(search, "#"))
	tag = strings.ToLower(tag)
	return tag == search || strings.HasPrefix(tag, search+"/")
}

// Repository is the document access the vault-wide aggregation needs.
type Repository interface {
	RootNames() []string
	MarkdownFiles(root string) ([]string, error)
	Read(root, rel string) (string, error)
}

// Count is one tag with its total occurrence count across the vault.
type Count struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats summarizes an aggregation pass.
type Stats struct {
	TotalNotes    int `json:"totalNotes"`
	NotesWithTags int `json:"notesWithTags"`
}

// List recomputes the aggregate tag listing across every document in
// every root. Results sort by count descending, then name, so ties are
// deterministic. Unreadable documents are skipped.
func List(ctx context.Context, repo Repository) ([]Count, Stats, error) {
	var (
		mu       sync.Mutex
		counts   = make(map[string]int)
		withTags int
		total    int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(runtime.NumCPU(), 1))

	for _, root := range repo.RootNames() {
		files, err := repo.MarkdownFiles(root)
		if err != nil {
			continue
		}
		total += len(files)
		for _, rel := range files {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				content, err := repo.Read(root, rel)
				if err != nil {
					return nil
				}
				occ := ExtractContent(content)
				if len(occ) == 0 {
					return nil
				}
				mu.Lock()
				withTags++
				for _, o := range occ {
					counts[o.Tag]++
				}
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	list := make([]Count, 0, len(counts))
	for tag, n := range counts {
		list = append(list, Count{Tag: tag, Count: n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Tag < list[j].Tag
	})
	return list, Stats{TotalNotes: total, NotesWithTags: withTags}, nil
}
