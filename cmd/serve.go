package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kindredapp/kindred/internal/ai"
	"github.com/kindredapp/kindred/internal/api"
	"github.com/kindredapp/kindred/internal/chat"
	"github.com/kindredapp/kindred/internal/config"
	"github.com/kindredapp/kindred/internal/database"
	"github.com/kindredapp/kindred/internal/feedback"
	"github.com/kindredapp/kindred/internal/knowledge"
	"github.com/kindredapp/kindred/internal/legal"
	"github.com/kindredapp/kindred/internal/notify"
	"github.com/kindredapp/kindred/internal/rag"
	"github.com/kindredapp/kindred/internal/sqlc"
	"github.com/kindredapp/kindred/internal/vecindex"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting HTTP API server", "version", Version)

	pool, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	client, err := ai.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating AI client: %w", err)
	}

	queries := sqlc.New(pool)
	index := vecindex.New(queries, cfg.EmbedderDimension, logger)
	knowledgeStore := knowledge.NewStore(queries, logger)
	extractor := knowledge.NewExtractor(client, knowledgeStore, logger)

	retriever := rag.NewRetriever(client, index, knowledgeStore, logger,
		rag.WithThreshold(cfg.KnowledgeThreshold),
		rag.WithEmbedConcurrency(cfg.EmbedConcurrency),
		rag.WithDefaultTopK(cfg.DefaultTopK),
		rag.WithRecorder(rag.NewPostgresRecorder(pool, logger)),
	)

	chatService := chat.NewService(queries, client, retriever, extractor, logger)
	analytics := rag.NewAnalytics(pool, queries, logger)

	server, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Chat:        chatService,
		Analytics:   analytics,
		Voice:       client,
		Legal:       legal.NewService(queries, logger),
		Feedback:    feedback.NewStore(queries, logger),
		Notify:      notify.NewStore(queries, logger),
		Pool:        pool,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	return server.Run(ctx, addr)
}
