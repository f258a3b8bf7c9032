package vault

import (
	"regexp"
	"strings"
)

// Filter hides bookkeeping paths from every vault operation.
type Filter struct {
	compiled []*regexp.Regexp
}

// defaultIgnored covers editor and VCS bookkeeping paths; hidden
// segments are rejected unconditionally on top of these.
var defaultIgnored = []string{
	"node_modules/**",
	"Thumbs.db",
}

// NewFilter builds a Filter from glob patterns, prepending the default
// ignore set. Supported glob syntax: ** (any), * (non-slash), ? (one
// non-slash char).
func NewFilter(extra []string) *Filter {
	patterns := append(append([]string{}, defaultIgnored...), extra...)
	f := &Filter{}
	for _, p := range patterns {
		re := regexp.QuoteMeta(strings.ReplaceAll(p, "\\", "/"))
		re = strings.ReplaceAll(re, `\*\*`, ".*")
		re = strings.ReplaceAll(re, `\*`, "[^/]*")
		re = strings.ReplaceAll(re, `\?`, "[^/]")
		compiled, err := regexp.Compile("^" + re + "$")
		if err != nil {
			continue
		}
		f.compiled = append(f.compiled, compiled)
	}
	return f
}

// Allowed reports whether a root-relative path is visible. Hidden
// segments (.obsidian, .git, .trash and friends) are never visible.
func (f *Filter) Allowed(rel string) bool {
	rel = strings.TrimPrefix(strings.ReplaceAll(rel, "\\", "/"), "/")
	if rel == "" || rel == "." {
		return true
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	for _, re := range f.compiled {
		if re.MatchString(rel) {
			return false
		}
	}
	return true
}
