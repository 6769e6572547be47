// linctx: token-efficient Linear MCP server.
//
// Serves a Linear workspace to AI agents over MCP, encoding every reply
// in the compact TOON line format with per-session short keys.
//
// Usage:
//
//	linctx serve <workspace.json>   # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	linctxserver "github.com/linctx/linctx/internal/server"
	"github.com/linctx/linctx/internal/workspace"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: serve needs a workspace document path")
			printUsage()
			os.Exit(1)
		}
		if err := run(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("linctx v%s\n", linctxserver.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(workspacePath string) error {
	provider, err := workspace.NewFileProvider(workspacePath)
	if err != nil {
		return fmt.Errorf("loading workspace: %w", err)
	}

	cfg := linctxserver.Config{
		Provider:       provider,
		WorkspaceName:  os.Getenv("LINCTX_WORKSPACE"),
		DefaultTeamKey: os.Getenv("LINCTX_DEFAULT_TEAM"),
		CacheDir:       os.Getenv("LINCTX_CACHE_DIR"),
	}
	// Stdio sessions live as long as the process; no TTL needed.
	cfg.RegistryTTL = 0
	if ttl := os.Getenv("LINCTX_REGISTRY_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("parsing LINCTX_REGISTRY_TTL: %w", err)
		}
		cfg.RegistryTTL = d
	}

	s, cleanup, err := linctxserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `linctx v%s — token-efficient Linear MCP server

Usage:
  linctx serve <workspace.json>   Start the MCP server (stdio transport)
  linctx version                  Print the version

Environment:
  LINCTX_DEFAULT_TEAM   Team key whose short keys go unprefixed (e.g. SQT)
  LINCTX_WORKSPACE      Workspace name for the snapshot cache
  LINCTX_CACHE_DIR      Directory for the sqlite snapshot cache (off if empty)
  LINCTX_REGISTRY_TTL   Registry expiry for stateless transports (e.g. 30m)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "linctx": {
        "command": "linctx",
        "args": ["serve", "/path/to/workspace.json"]
      }
    }
  }
`, linctxserver.Version)
}
