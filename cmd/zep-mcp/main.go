// zep-mcp: persistent cross-platform memory for AI assistants.
//
// An MCP server backed by Zep Cloud that gives any MCP client
// (Claude Desktop, Cursor, Claude Code, and friends) shared long-term
// memory: sessions, conversation storage, semantic search, and
// cross-platform context sharing.
//
// Usage:
//
//	zep-mcp serve    # Start the MCP server (stdio or SSE per TRANSPORT)
//	zep-mcp update   # Update to the latest version
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/aaronwhaley/zep-mcp/internal/server"
	"github.com/aaronwhaley/zep-mcp/internal/updater"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("zep-mcp v%s\n", mcpserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cfg, cleanup, err := mcpserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	if cfg.Transport == "sse" {
		return runSSE(s, cfg.Addr())
	}

	// ServeStdio installs its own SIGTERM/SIGINT handling and returns
	// when stdin closes.
	return server.ServeStdio(s)
}

// runSSE serves the MCP server over SSE and shuts it down gracefully on
// interrupt.
func runSSE(s *server.MCPServer, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sse := server.NewSSEServer(s)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	fmt.Fprintf(os.Stderr, "zep-mcp SSE transport listening on %s\n", addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("sse server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("sse shutdown: %w", err)
		}
		return nil
	}
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. This runs in a goroutine during
// "serve" and is best-effort — network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(mcpserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: zep-mcp update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(mcpserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(mcpserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart zep-mcp to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `zep-mcp v%s — Zep Cloud memory MCP server

Usage:
  zep-mcp serve    Start the MCP server
  zep-mcp update   Update to the latest version

Configuration (environment or .env):
  ZEP_API_KEY   Zep Cloud API key (required)
  TRANSPORT     "stdio" or "sse" (default: sse)
  ZEP_USER_IDS  Comma-separated allow-list of user ids

For stdio clients, add to your AI tool's MCP config:

  {
    "mcpServers": {
      "zep-memory": {
        "command": "zep-mcp",
        "args": ["serve"],
        "env": { "ZEP_API_KEY": "z_...", "TRANSPORT": "stdio" }
      }
    }
  }

Learn more: https://github.com/aaronwhaley/zep-mcp
`, mcpserver.Version)
}
