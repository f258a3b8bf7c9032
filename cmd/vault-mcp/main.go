// Package main implements the MCP server for markdown note vaults.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	_ "github.com/joho/godotenv/autoload"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/mdnotes/vault-mcp/internal/config"
	"github.com/mdnotes/vault-mcp/internal/patch"
	"github.com/mdnotes/vault-mcp/internal/search"
	"github.com/mdnotes/vault-mcp/internal/vault"
	"github.com/mdnotes/vault-mcp/internal/wikilink"
)

var (
	vaultService  *vault.Service
	searchService *search.Service
	linkResolver  *wikilink.Resolver
	patchEngine   *patch.Engine
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:   "vault-mcp [vault-path]",
		Short: "MCP server for markdown note repositories",
		Long: `vault-mcp is a Model Context Protocol (MCP) server exposing one or
more directories of markdown notes to MCP-compatible AI harnesses.
It understands YAML frontmatter, heading sections, [[wikilinks]],
backlinks and #tags, and guards concurrent edits with ETag
fingerprints.`,
		Example: `vault-mcp ~/notes
vault-mcp --config vault-mcp.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, args, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file declaring named roots")

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string, configPath string) error {
	cfg, err := loadConfig(configPath, args)
	if err != nil {
		return err
	}

	// stdout belongs to the MCP transport, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	})))

	roots := make([]vault.Root, len(cfg.Roots))
	for i, r := range cfg.Roots {
		roots[i] = vault.Root{Name: r.Name, Path: r.Path}
	}
	vaultService = vault.New(roots, vault.NewFilter(cfg.Ignore))
	searchService = search.New(vaultService)
	linkResolver = wikilink.NewResolver(vaultService)
	patchEngine = patch.NewEngine(vaultService)

	slog.Info("starting vault-mcp", "version", version, "roots", len(roots))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "vault-mcp",
		Version: version,
	}, nil)

	registerTools(server)

	if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("error running server: %w", err)
	}

	return nil
}

func loadConfig(configPath string, args []string) (*config.Config, error) {
	if configPath != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("pass either a vault path or --config, not both")
		}
		return config.Load(configPath)
	}

	vaultPath := ""
	if len(args) > 0 {
		vaultPath = args[0]
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		vaultPath = wd
	}
	return config.NewDefaultConfig(vaultPath), nil
}
