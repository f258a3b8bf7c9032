package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mdnotes/vault-mcp/internal/backlink"
	"github.com/mdnotes/vault-mcp/internal/frontmatter"
	"github.com/mdnotes/vault-mcp/internal/patch"
	"github.com/mdnotes/vault-mcp/internal/sections"
	"github.com/mdnotes/vault-mcp/internal/tags"
	"github.com/mdnotes/vault-mcp/internal/wikilink"
)

type (
	// ConflictInfo is the structured payload returned when a mutating
	// operation was attempted with a stale etag. It carries both
	// fingerprints and the current content so the caller can
	// resynchronize without another round trip.
	ConflictInfo struct {
		Error          string `json:"error,omitempty"`
		Message        string `json:"message,omitempty"`
		CurrentEtag    string `json:"currentEtag,omitempty"`
		ExpectedEtag   string `json:"expectedEtag,omitempty"`
		CurrentContent string `json:"currentContent,omitempty"`
	}

	// ReadInput contains parameters for reading a note.
	ReadInput struct {
		Root   string `json:"root,omitempty" jsonschema:"Named root to read from (default: first configured root)"`
		Path   string `json:"path" jsonschema:"Path to the note relative to the root"`
		Offset int    `json:"offset,omitempty" jsonschema:"Line offset to start reading from (default: 0)"`
		Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of lines to return (default: all)"`
	}

	// ReadOutput contains the result of reading a note.
	ReadOutput struct {
		Frontmatter map[string]any `json:"fm,omitempty"`
		Content     string         `json:"content"`
		TotalLines  int            `json:"totalLines"`
		Truncated   bool           `json:"truncated,omitempty"`
		Etag        string         `json:"etag"`
	}

	// WriteInput contains parameters for writing a note.
	WriteInput struct {
		Root        string         `json:"root,omitempty" jsonschema:"Named root to write to (default: first configured root)"`
		Path        string         `json:"path" jsonschema:"Path to the note relative to the root"`
		Content     string         `json:"content" jsonschema:"Content of the note"`
		Frontmatter map[string]any `json:"frontmatter,omitempty" jsonschema:"Frontmatter mapping to prepend (optional)"`
	}

	// WriteOutput contains the result of writing a note.
	WriteOutput struct {
		Success bool   `json:"success"`
		Path    string `json:"path"`
		Etag    string `json:"etag"`
	}

	// DeleteInput contains parameters for deleting a note.
	DeleteInput struct {
		Root    string `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path    string `json:"path" jsonschema:"Path to the note relative to the root"`
		Confirm string `json:"confirm" jsonschema:"Must be set to 'yes' to confirm deletion"`
	}

	// DeleteOutput contains the result of deleting a note.
	DeleteOutput struct {
		Success bool   `json:"success"`
		Path    string `json:"path"`
	}

	// RenameInput contains parameters for renaming/moving a note.
	RenameInput struct {
		Root      string `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path      string `json:"path" jsonschema:"Current path of the note"`
		NewPath   string `json:"newPath" jsonschema:"New path for the note"`
		Overwrite bool   `json:"overwrite,omitempty" jsonschema:"Allow overwriting an existing file (default: false)"`
	}

	// RenameOutput contains the result of renaming a note.
	RenameOutput struct {
		Success bool   `json:"success"`
		OldPath string `json:"oldPath"`
		NewPath string `json:"newPath"`
	}

	// ListInput contains parameters for listing a directory.
	ListInput struct {
		Root string `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path string `json:"path,omitempty" jsonschema:"Directory path relative to the root (default: root itself)"`
	}

	// ListOutput contains one directory level.
	ListOutput struct {
		Path        string   `json:"path"`
		Files       []string `json:"files"`
		Directories []string `json:"directories"`
	}

	// SectionsInput contains parameters for listing a note's sections.
	SectionsInput struct {
		Root string `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path string `json:"path" jsonschema:"Path to the note relative to the root"`
	}

	// SectionsOutput is the structural outline of a note, content
	// stripped.
	SectionsOutput struct {
		Path        string              `json:"path"`
		TotalLines  int                 `json:"totalLines"`
		Frontmatter *frontmatter.Block  `json:"frontmatter"`
		Sections    []*sections.Section `json:"sections"`
	}

	// ReadSectionInput contains parameters for reading one section.
	ReadSectionInput struct {
		Root            string `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path            string `json:"path" jsonschema:"Path to the note relative to the root"`
		Heading         string `json:"heading" jsonschema:"Exact heading text, or 'frontmatter' for the frontmatter block"`
		IncludeHeading  *bool  `json:"includeHeading,omitempty" jsonschema:"Include the heading line itself (default: true)"`
		IncludeChildren *bool  `json:"includeChildren,omitempty" jsonschema:"Include nested subsections (default: true)"`
	}

	// ReadSectionOutput contains one section's content, or a
	// structured not-found result with a suggestion.
	ReadSectionOutput struct {
		Path       string `json:"path"`
		Heading    string `json:"heading,omitempty"`
		StartLine  int    `json:"startLine,omitempty"`
		EndLine    int    `json:"endLine,omitempty"`
		LineCount  int    `json:"lineCount,omitempty"`
		Content    string `json:"content,omitempty"`
		Etag       string `json:"etag,omitempty"`
		Error      string `json:"error,omitempty"`
		Suggestion string `json:"suggestion,omitempty"`
	}

	// GetFrontmatterInput contains parameters for reading frontmatter.
	GetFrontmatterInput struct {
		Root string `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path string `json:"path" jsonschema:"Path to the note relative to the root"`
	}

	// GetFrontmatterOutput contains a note's parsed frontmatter.
	GetFrontmatterOutput struct {
		Path           string         `json:"path"`
		HasFrontmatter bool           `json:"hasFrontmatter"`
		Frontmatter    map[string]any `json:"frontmatter"`
		Raw            *string        `json:"raw"`
		Etag           string         `json:"etag"`
	}

	// UpdateFrontmatterInput contains parameters for merging
	// frontmatter updates into a note.
	UpdateFrontmatterInput struct {
		Root         string         `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path         string         `json:"path" jsonschema:"Path to the note relative to the root"`
		Updates      map[string]any `json:"updates,omitempty" jsonschema:"Keys to set; existing keys not listed are left untouched"`
		Removals     []string       `json:"removals,omitempty" jsonschema:"Keys to delete from the frontmatter"`
		ExpectedEtag string         `json:"expectedEtag,omitempty" jsonschema:"Etag from a prior read; mismatches are rejected as conflicts"`
	}

	// UpdateFrontmatterOutput contains the merged frontmatter, or a
	// conflict payload.
	UpdateFrontmatterOutput struct {
		Success     bool           `json:"success"`
		Path        string         `json:"path"`
		Frontmatter map[string]any `json:"frontmatter,omitempty"`
		Etag        string         `json:"etag,omitempty"`
		ConflictInfo
	}

	// PatchInput contains a scripted sequence of edit operations.
	PatchInput struct {
		Root         string            `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path         string            `json:"path" jsonschema:"Path to the note relative to the root"`
		Operations   []patch.Operation `json:"operations" jsonschema:"Operations applied in order against cumulative state"`
		ExpectedEtag string            `json:"expectedEtag,omitempty" jsonschema:"Etag from a prior read; mismatches are rejected as conflicts"`
	}

	// PatchOutput contains the result of a patch, or a conflict
	// payload.
	PatchOutput struct {
		Success        bool   `json:"success"`
		Path           string `json:"path"`
		PatchesApplied int    `json:"patchesApplied,omitempty"`
		LinesAffected  int    `json:"linesAffected,omitempty"`
		Etag           string `json:"etag,omitempty"`
		ConflictInfo
	}

	// ResolveLinkInput contains a single wikilink token.
	ResolveLinkInput struct {
		Link string `json:"link" jsonschema:"Wikilink token, e.g. [[Note]], [[Note#Heading|alias]] or ![[image.png]]"`
	}

	// ResolveLinkOutput is the outcome of resolving one wikilink. A
	// miss is reported as targetExists=false, never as an error.
	ResolveLinkOutput struct {
		Link         string `json:"link"`
		Resolved     bool   `json:"resolved"`
		TargetPath   string `json:"targetPath"`
		TargetExists bool   `json:"targetExists"`
		Root         string `json:"root,omitempty"`
		Heading      string `json:"heading,omitempty"`
		BlockRef     string `json:"blockRef,omitempty"`
		DisplayText  string `json:"displayText,omitempty"`
	}

	// LinksInput contains parameters for extracting a note's links.
	LinksInput struct {
		Root          string `json:"root,omitempty" jsonschema:"Named root (default: first configured root)"`
		Path          string `json:"path" jsonschema:"Path to the note relative to the root"`
		IncludeEmbeds bool   `json:"includeEmbeds,omitempty" jsonschema:"Also return ![[...]] embeds (default: false)"`
	}

	// ResolvedLink pairs an extracted link with its resolution.
	ResolvedLink struct {
		wikilink.Link
		wikilink.Resolution
	}

	// LinksOutput contains every link in a note with its resolution.
	LinksOutput struct {
		Path            string         `json:"path"`
		Links           []ResolvedLink `json:"links"`
		TotalCount      int            `json:"totalCount"`
		UnresolvedCount int            `json:"unresolvedCount"`
	}

	// BacklinksInput contains parameters for finding backlinks.
	BacklinksInput struct {
		Root         string `json:"root,omitempty" jsonschema:"Named root of the target note (default: first configured root)"`
		Path         string `json:"path" jsonschema:"Path of the target note relative to the root"`
		ContextLines int    `json:"contextLines,omitempty" jsonschema:"Lines of context around each referencing line (default: 0)"`
	}

	// BacklinksOutput contains every note referencing the target.
	BacklinksOutput struct {
		TargetPath string              `json:"targetPath"`
		Backlinks  []backlink.Backlink `json:"backlinks"`
		TotalCount int                 `json:"totalCount"`
	}

	// TagsInput contains parameters for the aggregate tag listing.
	TagsInput struct {
		Search string `json:"search,omitempty" jsonschema:"Only return tags matching this tag or nested under it (e.g. 'project' matches 'project/frontend')"`
	}

	// TagsOutput contains all unique tags with occurrence counts.
	TagsOutput struct {
		Tags          []tags.Count `json:"tags"`
		TotalTags     int          `json:"totalTags"`
		TotalNotes    int          `json:"totalNotes"`
		NotesWithTags int          `json:"notesWithTags"`
	}

	// SearchInput contains parameters for searching notes.
	SearchInput struct {
		Query         string `json:"query" jsonschema:"Search query (plain text, or regex if useRegex=true)"`
		UseRegex      bool   `json:"useRegex,omitempty" jsonschema:"Treat query as a regex pattern (default: false)"`
		CaseSensitive bool   `json:"caseSensitive,omitempty" jsonschema:"Case sensitive search (default: false)"`
		ContextLines  int    `json:"contextLines,omitempty" jsonschema:"Lines of context before/after each match (default: 2)"`
		Limit         int    `json:"limit,omitempty" jsonschema:"Maximum number of files returned (default: 15)"`
		Offset        int    `json:"offset,omitempty" jsonschema:"Skip first N files for pagination (default: 0)"`
	}

	// SearchMatch represents a single match within a file.
	SearchMatch struct {
		Line    int    `json:"line"`
		Context string `json:"context"`
	}

	// SearchResultItem represents search results for a single file.
	SearchResultItem struct {
		Path    string        `json:"path"`
		Matches []SearchMatch `json:"matches"`
	}

	// SearchOutput contains search results.
	SearchOutput struct {
		Results    []SearchResultItem `json:"results"`
		TotalFiles int                `json:"totalFiles"`
		HasMore    bool               `json:"hasMore,omitempty"`
	}
)

func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "read",
		Description: "Read a note. Returns parsed frontmatter, body content and the note's etag. Supports pagination with offset/limit for large files.",
	}, handleRead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "write",
		Description: "Create or overwrite a note with the given content and optional frontmatter. Returns the new etag.",
	}, handleWrite)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete",
		Description: "Delete a note. Requires confirm='yes' for safety.",
	}, handleDelete)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rename",
		Description: "Move or rename a note to a new path within its root.",
	}, handleRename)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list",
		Description: "List one directory level of a root: files and subdirectories, filtered and sorted.",
	}, handleList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sections",
		Description: "List a note's heading structure as a nested section tree with line ranges. Content is stripped; use read_section to fetch a section's text.",
	}, handleSections)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_section",
		Description: "Read the content of one section addressed by its exact heading text. Use heading='frontmatter' for the frontmatter block.",
	}, handleReadSection)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_frontmatter",
		Description: "Read a note's YAML frontmatter as a parsed mapping plus the raw block text.",
	}, handleGetFrontmatter)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_frontmatter",
		Description: "Merge updates into a note's frontmatter: supplied keys overwrite, unlisted keys stay, removals delete. Pass expectedEtag to reject concurrent modifications.",
	}, handleUpdateFrontmatter)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "patch",
		Description: "Apply a scripted sequence of edit operations (replace_lines, insert_after, delete_lines, replace_first, replace_all, replace_regex) in order against cumulative state. Pass expectedEtag to reject concurrent modifications. Operations missing required fields are skipped, not fatal.",
	}, handlePatch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_link",
		Description: "Resolve a single wikilink token against all roots: exact path first, then case-insensitive basename matching. A missing target is reported, not an error.",
	}, handleResolveLink)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "links",
		Description: "Extract every wikilink from a note with line/column positions and resolve each against the configured roots.",
	}, handleLinks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "backlinks",
		Description: "Find every note that links to the target, grouped per source with match counts, sorted by reference count. Scans the whole vault on each call.",
	}, handleBacklinks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tags",
		Description: "List all unique tags across the vault with occurrence counts, from both frontmatter and inline #tags. Optionally filter to a tag hierarchy.",
	}, handleTags)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Full-text search across all notes in all roots. Supports regex and case-sensitive matching. Returns matching lines with context.",
	}, handleSearch)
}
