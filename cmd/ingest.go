package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kindredapp/kindred/internal/ai"
	"github.com/kindredapp/kindred/internal/config"
	"github.com/kindredapp/kindred/internal/database"
	"github.com/kindredapp/kindred/internal/rag"
	"github.com/kindredapp/kindred/internal/sqlc"
	"github.com/kindredapp/kindred/internal/vecindex"
)

var ingestChunkSize int

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index documents into the vector index",
	Long: `Ingest reads a file or walks a directory, splits text into chunks,
embeds each chunk, and upserts the vectors into the index.

Supported file types: .md, .txt, .json. When no path is given the
command prompts for one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveIngestPath(args)
		if err != nil {
			return err
		}
		return runIngest(path)
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", rag.DefaultChunkSize, "maximum chunk size in characters")
	rootCmd.AddCommand(ingestCmd)
}

// resolveIngestPath returns the path argument, prompting on stdin when
// the command was invoked without one.
func resolveIngestPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	fmt.Print("Path to file or directory: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading path: %w", err)
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", fmt.Errorf("no path given")
	}
	return path, nil
}

func runIngest(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	pool, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	client, err := ai.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating AI client: %w", err)
	}

	index := vecindex.New(sqlc.New(pool), cfg.EmbedderDimension, logger)
	ingester := rag.NewIngester(client, index, ingestChunkSize, logger)

	result, err := ingester.IngestPath(ctx, path)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}

	fmt.Printf("Indexed %d chunks from %d files (%d skipped)\n",
		result.ChunksIndexed, result.FilesProcessed, result.FilesSkipped)

	if total, err := index.Count(ctx); err == nil {
		fmt.Printf("Index now holds %d records\n", total)
	}
	return nil
}
