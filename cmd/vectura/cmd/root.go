// Package cmd provides the CLI commands for Vectura.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vecturakit/vectura/internal/cliui"
	"github.com/vecturakit/vectura/internal/config"
	"github.com/vecturakit/vectura/internal/embedder"
	"github.com/vecturakit/vectura/internal/storage"
	"github.com/vecturakit/vectura/internal/telemetry"
	"github.com/vecturakit/vectura/internal/textengine"
	"github.com/vecturakit/vectura/internal/vlog"
	"github.com/vecturakit/vectura/pkg/hybrid"
	"github.com/vecturakit/vectura/pkg/vecsearch"

	"github.com/vecturakit/vectura"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	name       string
	dir        string
	offline    bool
	vectorOnly bool
	noColor    bool
	debug      bool
}

var flags rootFlags

// NewRootCmd creates the root command for the vectura CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vectura",
		Short: "An embeddable vector database",
		Long: `Vectura is an embeddable vector database with hybrid (BM25 + vector)
search, backed by a one-file-per-document storage layout.

Run 'vectura add <text>' to add your first document, then
'vectura search <query>' to find it again.`,
		PersistentPreRunE: setupLogging,
	}

	root.PersistentFlags().StringVar(&flags.name, "name", "default", "database name (storage subdirectory)")
	root.PersistentFlags().StringVar(&flags.dir, "dir", ".", "directory to look for vectura.yaml in")
	root.PersistentFlags().BoolVar(&flags.offline, "offline", false, "use the deterministic static embedder instead of Ollama")
	root.PersistentFlags().BoolVar(&flags.vectorOnly, "vector-only", false, "use vector-only search, skipping the BM25 text engine")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable styled output")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging to the database's log directory")

	root.AddCommand(newAddCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newVersionCmd())

	return root
}

var loggingCleanup func()

func setupLogging(cmd *cobra.Command, args []string) error {
	if !flags.debug {
		return nil
	}
	cleanup, err := vlog.SetupDefault(flags.name)
	if err != nil {
		return fmt.Errorf("setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Info("debug logging enabled", slog.String("database", flags.name))
	return nil
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}()
	return NewRootCmd().Execute()
}

func styles() cliui.Styles {
	noColor := flags.noColor || !isatty.IsTerminal(os.Stdout.Fd())
	return cliui.GetStyles(noColor)
}

// openedDB bundles a DB with the resources its Close must also release.
type openedDB struct {
	*vectura.DB
	telemetryStore *telemetry.SQLiteStore
	textEngine     textengine.Engine
}

func (o *openedDB) Close() error {
	err := o.DB.Close()
	if o.textEngine != nil {
		if cerr := o.textEngine.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if o.telemetryStore != nil {
		if cerr := o.telemetryStore.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openDatabase loads configuration for flags.name/flags.dir and
// constructs a ready-to-use DB, wiring the embedder, storage, search
// engine and telemetry collector the configuration names.
func openDatabase(ctx context.Context) (*openedDB, error) {
	cfg, err := config.Load(flags.name, flags.dir)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	store, err := storage.NewFileStore(cfg.DirectoryURL)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var emb embedder.Embedder
	if flags.offline {
		emb = embedder.NewStatic()
	} else {
		emb = embedder.NewOllama(embedder.OllamaConfig{})
	}

	strategy, err := cfg.MemoryStrategy.Resolve()
	if err != nil {
		return nil, err
	}

	opts := []vectura.Option{
		vectura.WithStorage(store),
		vectura.WithEmbedder(emb),
		vectura.WithMemoryStrategy(strategy),
		vectura.WithDefaultNumResults(cfg.SearchOptions.DefaultNumResults),
	}
	if cfg.Dimension > 0 {
		opts = append(opts, vectura.WithDimension(cfg.Dimension))
	}
	if cfg.SearchOptions.MinThreshold != nil {
		opts = append(opts, vectura.WithDefaultThreshold(*cfg.SearchOptions.MinThreshold))
	}

	result := &openedDB{}

	if flags.vectorOnly {
		opts = append(opts, vectura.WithSearcher(vecsearch.New(emb)))
	} else {
		textEngine, err := textengine.NewBleve(filepath.Join(cfg.DirectoryURL, "bleve.idx"))
		if err != nil {
			return nil, fmt.Errorf("open text engine: %w", err)
		}
		result.textEngine = textEngine

		hybridCfg := hybrid.Config{
			VectorWeight:            cfg.SearchOptions.HybridWeight,
			BM25NormalizationFactor: cfg.SearchOptions.BM25NormalizationFactor,
		}
		opts = append(opts, vectura.WithSearcher(hybrid.New(vecsearch.New(emb), textEngine, emb, hybridCfg)))
	}

	telemetryStore, err := telemetry.OpenSQLiteStore(filepath.Join(cfg.DirectoryURL, "telemetry.db"))
	if err == nil {
		result.telemetryStore = telemetryStore
		opts = append(opts, vectura.WithTelemetry(telemetry.New(telemetryStore)))
	} else {
		slog.Debug("telemetry disabled", slog.String("error", err.Error()))
	}

	db, err := vectura.Open(ctx, opts...)
	if err != nil {
		return nil, err
	}
	result.DB = db

	return result, nil
}
