// Package wikilink parses [[target]]-style cross-reference tokens and
// resolves them against the repository's file set.
package wikilink

import (
	"path"
	"regexp"
	"strings"
)

// Link is one parsed wikilink token.
//
// Grammar, informally: an optional leading "!" marks an embed, then
// [[target#heading^block|alias]] where heading, block and alias are all
// optional. A block anchor may ride on the heading segment, in which
// case it is split out.
type Link struct {
	Raw         string `json:"raw"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	IsEmbed     bool   `json:"isEmbed"`
	TargetName  string `json:"targetName"`
	Heading     string `json:"heading,omitempty"`
	BlockRef    string `json:"blockRef,omitempty"`
	DisplayText string `json:"displayText,omitempty"`
}

// Resolution is the outcome of resolving a link target. A miss is a
// normal, queryable outcome, never an error.
type Resolution struct {
	TargetPath   string `json:"targetPath"`
	TargetExists bool   `json:"targetExists"`
	Root         string `json:"root,omitempty"`
}

var (
	tokenPattern     = regexp.MustCompile(`(!?)\[\[([^\]]+)\]\]`)
	extensionPattern = regexp.MustCompile(`\.[A-Za-z0-9]{1,10}$`)
)

// Parse parses a single raw wikilink token. It accepts the token with
// or without the surrounding brackets.
func Parse(raw string) Link {
	link := Link{Raw: raw}

	inner := strings.TrimSpace(raw)
	if strings.HasPrefix(inner, "!") {
		link.IsEmbed = true
		inner = inner[1:]
	}
	inner = strings.TrimPrefix(inner, "[[")
	inner = strings.TrimSuffix(inner, "]]")

	if idx := strings.Index(inner, "|"); idx >= 0 {
		link.DisplayText = strings.TrimSpace(inner[idx+1:])
		inner = inner[:idx]
	}
	if idx := strings.Index(inner, "#"); idx >= 0 {
		heading := inner[idx+1:]
		inner = inner[:idx]
		if caret := strings.Index(heading, "^"); caret >= 0 {
			link.BlockRef = strings.TrimSpace(heading[caret+1:])
			heading = heading[:caret]
		}
		link.Heading = strings.TrimSpace(heading)
	} else if idx := strings.Index(inner, "^"); idx >= 0 {
		link.BlockRef = strings.TrimSpace(inner[idx+1:])
		inner = inner[:idx]
	}
	link.TargetName = strings.TrimSpace(inner)
	return link
}

// Extract scans document text for wikilink tokens, recording 1-indexed
// line and column positions. With includeEmbeds false, ![[...]] tokens
// are dropped.
func Extract(content string, includeEmbeds bool) []Link {
	var links []Link
	for lineNum, line := range strings.Split(content, "\n") {
		for _, loc := range tokenPattern.FindAllStringSubmatchIndex(line, -1) {
			raw := line[loc[0]:loc[1]]
			isEmbed := loc[3] > loc[2]
			if isEmbed && !includeEmbeds {
				continue
			}
			link := Parse(raw)
			link.Line = lineNum + 1
			link.Column = loc[0] + 1
			links = append(links, link)
		}
	}
	return links
}

// Repository is the file-set view the resolver needs. Implemented by
// the vault service; scans enumerate through it so a future index
// could be substituted without touching resolution logic.
type Repository interface {
	RootNames() []string
	Exists(root, rel string) bool
	MarkdownFiles(root string) ([]string, error)
	AllFiles(root string) ([]string, error)
}

// Resolver resolves link targets against configured roots in order.
type Resolver struct {
	repo Repository
}

// NewResolver creates a Resolver over the given repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve tries each root in order: exact path match first (with .md
// appended when the target has no extension), then a case-insensitive
// basename scan over markdown files, then, for targets carrying a
// non-markdown extension, a basename scan over all files. First hit
// wins. Resolution is deterministic for an unchanged file set.
func (r *Resolver) Resolve(target string) Resolution {
	target = strings.TrimSpace(target)
	if target == "" {
		return Resolution{}
	}

	hasExt := extensionPattern.MatchString(target)
	exact := target
	if !hasExt {
		exact = target + ".md"
	}

	for _, root := range r.repo.RootNames() {
		if r.repo.Exists(root, exact) {
			return Resolution{TargetPath: exact, TargetExists: true, Root: root}
		}

		if files, err := r.repo.MarkdownFiles(root); err == nil {
			for _, f := range files {
				base := strings.TrimSuffix(path.Base(f), path.Ext(f))
				if strings.EqualFold(base, target) {
					return Resolution{TargetPath: f, TargetExists: true, Root: root}
				}
			}
		}

		if hasExt && !strings.EqualFold(path.Ext(target), ".md") {
			if files, err := r.repo.AllFiles(root); err == nil {
				for _, f := range files {
					if strings.EqualFold(path.Base(f), target) {
						return Resolution{TargetPath: f, TargetExists: true, Root: root}
					}
				}
			}
		}
	}

	return Resolution{}
}
