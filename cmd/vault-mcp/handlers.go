package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mdnotes/vault-mcp/internal/backlink"
	"github.com/mdnotes/vault-mcp/internal/etag"
	"github.com/mdnotes/vault-mcp/internal/frontmatter"
	"github.com/mdnotes/vault-mcp/internal/patch"
	"github.com/mdnotes/vault-mcp/internal/search"
	"github.com/mdnotes/vault-mcp/internal/sections"
	"github.com/mdnotes/vault-mcp/internal/tags"
	"github.com/mdnotes/vault-mcp/internal/wikilink"
)

func handleRead(ctx context.Context, req *mcp.CallToolRequest, input ReadInput) (*mcp.CallToolResult, ReadOutput, error) {
	relPath := strings.TrimSpace(input.Path)
	raw, err := vaultService.Read(input.Root, relPath)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ReadOutput{}, err
	}

	tag := etag.Compute(raw)

	var fm map[string]any
	body := raw
	if _, fmBody, rest, ok := frontmatter.Detect(raw); ok {
		fm = frontmatter.Parse(fmBody)
		body = rest
	}

	lines := strings.Split(body, "\n")
	totalLines := len(lines)

	offset := max(input.Offset, 0)
	if offset >= totalLines {
		return nil, ReadOutput{
			Frontmatter: fm,
			Content:     "",
			TotalLines:  totalLines,
			Truncated:   true,
			Etag:        tag,
		}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = totalLines
	}

	endIdx := offset + limit
	truncated := false
	if endIdx >= totalLines {
		endIdx = totalLines
	} else {
		truncated = true
	}

	return nil, ReadOutput{
		Frontmatter: fm,
		Content:     strings.Join(lines[offset:endIdx], "\n"),
		TotalLines:  totalLines,
		Truncated:   truncated,
		Etag:        tag,
	}, nil
}

func handleWrite(ctx context.Context, req *mcp.CallToolRequest, input WriteInput) (*mcp.CallToolResult, WriteOutput, error) {
	relPath := strings.TrimSpace(input.Path)

	content := input.Content
	if input.Frontmatter != nil {
		content = frontmatter.Compose(input.Frontmatter, input.Content)
	}

	if err := vaultService.Write(input.Root, relPath, content); err != nil {
		return &mcp.CallToolResult{IsError: true}, WriteOutput{Success: false, Path: relPath}, err
	}

	return nil, WriteOutput{Success: true, Path: relPath, Etag: etag.Compute(content)}, nil
}

func handleDelete(ctx context.Context, req *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	relPath := strings.TrimSpace(input.Path)

	if input.Confirm != "yes" {
		return &mcp.CallToolResult{IsError: true}, DeleteOutput{Success: false, Path: relPath},
			fmt.Errorf("deletion not confirmed: set confirm='yes' to proceed")
	}

	if err := vaultService.Delete(input.Root, relPath); err != nil {
		return &mcp.CallToolResult{IsError: true}, DeleteOutput{Success: false, Path: relPath}, err
	}

	return nil, DeleteOutput{Success: true, Path: relPath}, nil
}

func handleRename(ctx context.Context, req *mcp.CallToolRequest, input RenameInput) (*mcp.CallToolResult, RenameOutput, error) {
	oldPath := strings.TrimSpace(input.Path)
	newPath := strings.TrimSpace(input.NewPath)

	if err := vaultService.Move(input.Root, oldPath, newPath, input.Overwrite); err != nil {
		return &mcp.CallToolResult{IsError: true},
			RenameOutput{Success: false, OldPath: oldPath, NewPath: newPath}, err
	}

	return nil, RenameOutput{Success: true, OldPath: oldPath, NewPath: newPath}, nil
}

func handleList(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	relPath := strings.TrimSpace(input.Path)

	listing, err := vaultService.ListDirectory(input.Root, relPath)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ListOutput{}, err
	}

	if listing.Files == nil {
		listing.Files = []string{}
	}
	if listing.Directories == nil {
		listing.Directories = []string{}
	}

	return nil, ListOutput{
		Path:        relPath,
		Files:       listing.Files,
		Directories: listing.Directories,
	}, nil
}

func handleSections(ctx context.Context, req *mcp.CallToolRequest, input SectionsInput) (*mcp.CallToolResult, SectionsOutput, error) {
	relPath := strings.TrimSpace(input.Path)
	raw, err := vaultService.Read(input.Root, relPath)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SectionsOutput{}, err
	}

	doc := sections.Parse(raw)
	if doc.Sections == nil {
		doc.Sections = []*sections.Section{}
	}

	return nil, SectionsOutput{
		Path:        relPath,
		TotalLines:  doc.TotalLines,
		Frontmatter: doc.Frontmatter,
		Sections:    doc.Sections,
	}, nil
}

func handleReadSection(ctx context.Context, req *mcp.CallToolRequest, input ReadSectionInput) (*mcp.CallToolResult, ReadSectionOutput, error) {
	relPath := strings.TrimSpace(input.Path)
	heading := strings.TrimSpace(input.Heading)

	raw, err := vaultService.Read(input.Root, relPath)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ReadSectionOutput{}, err
	}

	doc := sections.Parse(raw)

	var sec *sections.Section
	if strings.EqualFold(heading, sections.FrontmatterHeading) {
		sec, err = sections.FrontmatterSection(doc)
		if err != nil {
			return nil, ReadSectionOutput{
				Path:       relPath,
				Error:      fmt.Sprintf("no frontmatter found in %s", relPath),
				Suggestion: "use the sections tool to list what this note contains",
			}, nil
		}
	} else {
		sec = sections.Find(doc, heading)
	}
	if sec == nil {
		return nil, ReadSectionOutput{
			Path:       relPath,
			Error:      fmt.Sprintf("heading %q not found in %s", heading, relPath),
			Suggestion: "use the sections tool to list available headings",
		}, nil
	}

	opts := sections.ContentOptions{IncludeHeading: true, IncludeChildren: true}
	if input.IncludeHeading != nil {
		opts.IncludeHeading = *input.IncludeHeading
	}
	if input.IncludeChildren != nil {
		opts.IncludeChildren = *input.IncludeChildren
	}

	content, start, end := sections.Content(raw, sec, opts)
	lineCount := 0
	if end >= start {
		lineCount = end - start + 1
	}

	out := ReadSectionOutput{
		Path:      relPath,
		StartLine: start,
		EndLine:   end,
		LineCount: lineCount,
		Content:   content,
		Etag:      etag.Compute(raw),
	}
	if sec.Heading != nil {
		out.Heading = *sec.Heading
	}
	return nil, out, nil
}

func handleGetFrontmatter(ctx context.Context, req *mcp.CallToolRequest, input GetFrontmatterInput) (*mcp.CallToolResult, GetFrontmatterOutput, error) {
	relPath := strings.TrimSpace(input.Path)
	raw, err := vaultService.Read(input.Root, relPath)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, GetFrontmatterOutput{}, err
	}

	tag := etag.Compute(raw)

	_, body, _, ok := frontmatter.Detect(raw)
	if !ok {
		return nil, GetFrontmatterOutput{
			Path:           relPath,
			HasFrontmatter: false,
			Etag:           tag,
		}, nil
	}

	return nil, GetFrontmatterOutput{
		Path:           relPath,
		HasFrontmatter: true,
		Frontmatter:    frontmatter.Parse(body),
		Raw:            &body,
		Etag:           tag,
	}, nil
}

func handleUpdateFrontmatter(ctx context.Context, req *mcp.CallToolRequest, input UpdateFrontmatterInput) (*mcp.CallToolResult, UpdateFrontmatterOutput, error) {
	relPath := strings.TrimSpace(input.Path)
	raw, err := vaultService.Read(input.Root, relPath)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, UpdateFrontmatterOutput{Path: relPath}, err
	}

	currentEtag := etag.Compute(raw)
	if !etag.Matches(input.ExpectedEtag, currentEtag) {
		return nil, UpdateFrontmatterOutput{
			Path:         relPath,
			ConflictInfo: conflictPayload(input.ExpectedEtag, currentEtag, raw),
		}, nil
	}

	_, body, rest, ok := frontmatter.Detect(raw)
	mapping := map[string]any{}
	if ok {
		mapping = frontmatter.Parse(body)
	} else {
		rest = raw
	}

	maps.Copy(mapping, input.Updates)
	for _, key := range input.Removals {
		delete(mapping, key)
	}

	updated := frontmatter.Compose(mapping, rest)
	if err := vaultService.Write(input.Root, relPath, updated); err != nil {
		return &mcp.CallToolResult{IsError: true}, UpdateFrontmatterOutput{Path: relPath}, err
	}

	return nil, UpdateFrontmatterOutput{
		Success:     true,
		Path:        relPath,
		Frontmatter: mapping,
		Etag:        etag.Compute(updated),
	}, nil
}

func handlePatch(ctx context.Context, req *mcp.CallToolRequest, input PatchInput) (*mcp.CallToolResult, PatchOutput, error) {
	relPath := strings.TrimSpace(input.Path)

	result, err := patchEngine.Patch(input.Root, relPath, input.Operations, input.ExpectedEtag)
	if err != nil {
		var conflict *patch.Conflict
		if errors.As(err, &conflict) {
			return nil, PatchOutput{
				Path:         relPath,
				ConflictInfo: conflictPayload(conflict.ExpectedEtag, conflict.CurrentEtag, conflict.Content),
			}, nil
		}
		return &mcp.CallToolResult{IsError: true}, PatchOutput{Path: relPath}, err
	}

	return nil, PatchOutput{
		Success:        true,
		Path:           relPath,
		PatchesApplied: result.Applied,
		LinesAffected:  result.LinesAffected,
		Etag:           result.Etag,
	}, nil
}

func conflictPayload(expected, current, content string) ConflictInfo {
	return ConflictInfo{
		Error:          "Conflict detected",
		Message:        fmt.Sprintf("the note changed since it was read: expected etag %s, current etag %s", expected, current),
		CurrentEtag:    current,
		ExpectedEtag:   expected,
		CurrentContent: content,
	}
}

func handleResolveLink(ctx context.Context, req *mcp.CallToolRequest, input ResolveLinkInput) (*mcp.CallToolResult, ResolveLinkOutput, error) {
	token := strings.TrimSpace(input.Link)
	if token == "" {
		return &mcp.CallToolResult{IsError: true}, ResolveLinkOutput{}, fmt.Errorf("link cannot be empty")
	}

	link := wikilink.Parse(token)
	res := linkResolver.Resolve(link.TargetName)

	return nil, ResolveLinkOutput{
		Link:         token,
		Resolved:     res.TargetExists,
		TargetPath:   res.TargetPath,
		TargetExists: res.TargetExists,
		Root:         res.Root,
		Heading:      link.Heading,
		BlockRef:     link.BlockRef,
		DisplayText:  link.DisplayText,
	}, nil
}

func handleLinks(ctx context.Context, req *mcp.CallToolRequest, input LinksInput) (*mcp.CallToolResult, LinksOutput, error) {
	relPath := strings.TrimSpace(input.Path)
	raw, err := vaultService.Read(input.Root, relPath)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, LinksOutput{}, err
	}

	links := wikilink.Extract(raw, input.IncludeEmbeds)
	items := make([]ResolvedLink, 0, len(links))
	unresolved := 0
	for _, l := range links {
		res := linkResolver.Resolve(l.TargetName)
		if !res.TargetExists {
			unresolved++
		}
		items = append(items, ResolvedLink{Link: l, Resolution: res})
	}

	return nil, LinksOutput{
		Path:            relPath,
		Links:           items,
		TotalCount:      len(items),
		UnresolvedCount: unresolved,
	}, nil
}

func handleBacklinks(ctx context.Context, req *mcp.CallToolRequest, input BacklinksInput) (*mcp.CallToolResult, BacklinksOutput, error) {
	relPath := strings.TrimSpace(input.Path)
	if path.Ext(relPath) == "" {
		relPath += ".md"
	}

	root := input.Root
	if root == "" {
		if names := vaultService.RootNames(); len(names) > 0 {
			root = names[0]
		}
	}

	links, total, err := backlink.Find(ctx, vaultService, root, relPath, backlink.Options{
		ContextLines: input.ContextLines,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, BacklinksOutput{}, err
	}
	if links == nil {
		links = []backlink.Backlink{}
	}

	return nil, BacklinksOutput{
		TargetPath: relPath,
		Backlinks:  links,
		TotalCount: total,
	}, nil
}

func handleTags(ctx context.Context, req *mcp.CallToolRequest, input TagsInput) (*mcp.CallToolResult, TagsOutput, error) {
	counts, stats, err := tags.List(ctx, vaultService)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, TagsOutput{}, err
	}

	if query := strings.TrimSpace(input.Search); query != "" {
		filtered := make([]tags.Count, 0, len(counts))
		for _, c := range counts {
			if tags.Matches(query, c.Tag) {
				filtered = append(filtered, c)
			}
		}
		counts = filtered
	}
	if counts == nil {
		counts = []tags.Count{}
	}

	return nil, TagsOutput{
		Tags:          counts,
		TotalTags:     len(counts),
		TotalNotes:    stats.TotalNotes,
		NotesWithTags: stats.NotesWithTags,
	}, nil
}

func handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	results, totalFiles, err := searchService.Search(ctx, search.Params{
		Query:         input.Query,
		UseRegex:      input.UseRegex,
		CaseSensitive: input.CaseSensitive,
		ContextLines:  input.ContextLines,
		Limit:         input.Limit,
		Offset:        input.Offset,
	})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, SearchOutput{}, err
	}

	items := make([]SearchResultItem, 0, len(results))
	for _, r := range results {
		matches := make([]SearchMatch, 0, len(r.Matches))
		for _, m := range r.Matches {
			matches = append(matches, SearchMatch{Line: m.Line, Context: m.Context})
		}
		items = append(items, SearchResultItem{Path: r.Path, Matches: matches})
	}

	offset := max(input.Offset, 0)
	hasMore := totalFiles > offset+len(items)

	return nil, SearchOutput{
		Results:    items,
		TotalFiles: totalFiles,
		HasMore:    hasMore,
	}, nil
}
