// Package server wires all MCP components and creates the server
// instance. This is the composition root: it creates concrete
// implementations and injects them into the tools that depend on
// abstractions. No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/linctx/linctx/internal/registry"
	"github.com/linctx/linctx/internal/snapcache"
	"github.com/linctx/linctx/internal/tools"
	"github.com/linctx/linctx/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config holds server-level options.
type Config struct {
	// Provider is the external collaborator that owns all Linear I/O.
	Provider workspace.Provider

	// WorkspaceName keys the snapshot cache rows.
	WorkspaceName string

	// DefaultTeamKey selects the team whose short keys go unprefixed.
	DefaultTeamKey string

	// RegistryTTL expires session registries. Zero means no expiry —
	// the right setting for persistent (stdio) transports. Stateless
	// transports should keep the 30-minute default.
	RegistryTTL time.Duration

	// CacheDir holds the sqlite snapshot cache. Empty disables the
	// cache and every registry build fetches from the provider.
	CacheDir string
}

// New creates and configures the MCP server with all tools registered.
//
// The returned cleanup function closes the snapshot cache and must be
// called on shutdown (typically via defer). It is always non-nil and
// safe to call even when the cache is disabled.
func New(cfg Config) (*server.MCPServer, func(), error) {
	if cfg.Provider == nil {
		return nil, noop, fmt.Errorf("no workspace provider configured")
	}

	// --- Snapshot source ---
	//
	// The cache is best-effort: if sqlite can't initialize, registry
	// builds just fetch from the provider every time.
	provider := cfg.Provider
	cleanup := noop
	if cfg.CacheDir != "" {
		cache, err := snapcache.New(snapcache.Config{
			DataDir: cfg.CacheDir,
			MaxAge:  snapcache.DefaultConfig().MaxAge,
		})
		if err != nil {
			log.Printf("WARNING: snapshot cache disabled: %v", err)
		} else {
			provider = snapcache.Wrap(cfg.Provider, cache, cfg.WorkspaceName)
			cleanup = func() {
				if err := cache.Close(); err != nil {
					log.Printf("WARNING: snapshot cache close: %v", err)
				}
			}
		}
	}

	// --- Registry store ---

	store := registry.NewStore(registry.StoreConfig{
		DefaultTeamKey: cfg.DefaultTeamKey,
		TTL:            cfg.RegistryTTL,
	}, provider.FetchSnapshot)

	// --- MCP server ---

	s := server.NewMCPServer(
		"linctx",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// Sessions without a client id (plain stdio) all share this key.
	fallbackSession := uuid.NewString()

	workspaceTool := tools.NewWorkspaceTool(store, fallbackSession)
	s.AddTool(workspaceTool.Definition(), workspaceTool.Handle)

	issuesTool := tools.NewIssuesTool(store, provider, fallbackSession)
	s.AddTool(issuesTool.Definition(), issuesTool.Handle)

	issueTool := tools.NewIssueTool(store, provider, fallbackSession)
	s.AddTool(issueTool.Definition(), issueTool.Handle)

	updateStateTool := tools.NewUpdateStateTool(store, provider, fallbackSession)
	s.AddTool(updateStateTool.Definition(), updateStateTool.Handle)

	resolveTool := tools.NewResolveKeyTool(store, fallbackSession)
	s.AddTool(resolveTool.Definition(), resolveTool.Handle)

	refreshTool := tools.NewRefreshTool(store, fallbackSession)
	s.AddTool(refreshTool.Definition(), refreshTool.Handle)

	return s, cleanup, nil
}

// noop is the default cleanup when the snapshot cache is disabled.
func noop() {}

// serverInstructions tells the agent how to work with short keys.
func serverInstructions() string {
	return `You have access to linctx, a token-efficient Linear workspace server.

## Responses are TOON, not JSON

Tool replies use a compact line format:

    _meta{workspace,defaultTeam,...}:
      Acme,SQT,...

    issues[2]{identifier,title,state,assignee,...}:
      SQT-1,Fix login crash,s0,u1,...
      SQT-2,"Retry, then fail",s2,u0,...

A header names the section, its row count, and its fields; each indented
row holds comma-separated values in field order. Values containing commas,
quotes, or newlines are quoted. If a reply ever starts with "{", it is a
JSON fallback — parse it as JSON instead.

## Short keys

Entities are referenced by compact session keys, not ids:
- u<N>: users, pr<N>: projects — global.
- s<N>: workflow states of the default team; other teams use a prefixed
  form like sqm:s0. Label keys are label names, prefixed the same way
  when team-scoped.
- ext<N>: placeholder for an entity missing from the snapshot (e.g. a
  deactivated user). Valid only within the reply that introduced it.

Workflow:
1. Call linear_workspace first — it lists every key with display data.
2. Use those keys in linear_issues filters, linear_issue reads, and
   linear_update_state writes.
3. Writes are team-checked: an unprefixed state key only works for the
   default team. Error messages include the correctly prefixed key.
4. After linear_refresh (or a force_refresh), ALL previous keys are
   void — call linear_workspace again before reusing any key.`
}
