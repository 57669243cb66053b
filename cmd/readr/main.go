package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/readrhq/readr/internal/compose"
	"github.com/readrhq/readr/internal/config"
	"github.com/readrhq/readr/internal/feed"
	"github.com/readrhq/readr/internal/fetch"
	"github.com/readrhq/readr/internal/server"
	"github.com/readrhq/readr/internal/store"
	"github.com/readrhq/readr/internal/summary"
	"github.com/readrhq/readr/internal/window"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "readr",
	Short:   "Finite news editions",
	Long:    "Readr assembles a fixed card deck with freshly summarized news for each 12-hour window.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Load .env if present; missing file is fine.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("readr", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/readr/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds and the summarizer API key.")
		return nil
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Ensure the current window's edition exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		label := window.CurrentLabel(time.Now())
		fmt.Printf("Ensuring edition for window %s...\n", label)

		ready := buildReadiness(db)
		if err := ready.EnsureWindowReady(context.Background(), label); err != nil {
			return fmt.Errorf("composing edition: %w", err)
		}

		ed, err := db.GetEditionByLabel(label)
		if err != nil {
			return err
		}
		if ed == nil {
			return fmt.Errorf("edition for %s not found after composition", label)
		}

		fmt.Printf("Edition ready: %d cards (%d news)\n", len(ed.Cards), len(ed.NewsCards()))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, buildReadiness(db), port)
	},
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and window status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		label := window.CurrentLabel(time.Now())
		fmt.Printf("Current window: %s\n\n", label)
		fmt.Printf("Editions: %d\n", stats.Editions)
		fmt.Printf("Cards: %d\n", stats.Cards)
		fmt.Printf("Sessions: %d\n", stats.Sessions)
		fmt.Printf("Cached summaries: %d\n", stats.CachedSummaries)

		ed, err := db.GetEditionByLabel(label)
		if err != nil {
			return err
		}
		switch {
		case ed == nil:
			fmt.Println("\nCurrent window: no edition yet")
		case ed.IsPlaceholder():
			fmt.Println("\nCurrent window: seeded placeholder (will recompose)")
		default:
			fmt.Printf("\nCurrent window: ready (%d cards, %d news)\n", len(ed.Cards), len(ed.NewsCards()))
		}
		return nil
	},
}

func buildReadiness(db *store.DB) *window.Readiness {
	aggregator := feed.NewAggregator(cfg.FeedURLs())
	summarizer := summary.NewSummarizer(cfg.Summarizer.Model, cfg.APIKey(), cfg.Summarizer.BaseURL)

	var snippets compose.SnippetFiller
	if cfg.Sources.FetchSnippets {
		snippets = fetch.NewSnippetFetcher(0)
	}

	composer := compose.NewComposer(db, aggregator, summarizer, snippets)
	composer.GreetingName = cfg.Edition.GreetingName
	composer.Location = cfg.Edition.Location

	return window.NewReadiness(db, composer)
}

func openDB() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "readr.db")
	return store.Open(dbPath)
}
