// Package api exposes the HTTP JSON surface of the service.
//
// Routes:
//
//	POST   /api/chat                          one chat turn
//	GET    /api/conversations                 list a user's conversations
//	GET    /api/conversations/{id}/messages   message history
//	DELETE /api/conversations/{id}            delete a conversation
//	GET    /api/rag                           retrieval telemetry
//	POST   /api/voice/transcribe              audio to text
//	POST   /api/voice/speak                   text to audio
//	GET    /api/legal/{document}              terms / privacy markdown
//	POST   /api/legal/accept                  record acceptance
//	POST   /api/feedback                      submit feedback
//	POST   /api/notifications/register        register push token
//	DELETE /api/notifications/register        remove push token
//	GET    /health, GET /ready                probes (outside the middleware stack)
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kindredapp/kindred/internal/chat"
	"github.com/kindredapp/kindred/internal/feedback"
	"github.com/kindredapp/kindred/internal/legal"
	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/notify"
	"github.com/kindredapp/kindred/internal/rag"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// ReadHeaderTimeout bounds header reads (Slowloris protection).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because chat turns wait on the model.
	WriteTimeout = 2 * time.Minute

	// IdleTimeout bounds keep-alive connections.
	IdleTimeout = 2 * time.Minute
)

// ServerConfig contains everything the API server depends on.
type ServerConfig struct {
	Logger      log.Logger
	Chat        *chat.Service   // Required
	Analytics   *rag.Analytics  // Optional: nil disables GET /api/rag
	Voice       VoiceService    // Optional: nil disables /api/voice routes
	Legal       *legal.Service  // Required
	Feedback    *feedback.Store // Required
	Notify      *notify.Store   // Required
	Pool        *pgxpool.Pool   // Optional: nil makes /ready always fail
	CORSOrigins []string        // Allowed origins for CORS
	TrustProxy  bool            // Trust X-Real-IP/X-Forwarded-For
	RateBurst   int             // Rate limiter burst per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Legal == nil || cfg.Feedback == nil || cfg.Notify == nil {
		return nil, errors.New("legal, feedback, and notify services are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{service: cfg.Chat, logger: logger}
	lh := &legalHandler{service: cfg.Legal, logger: logger}
	fh := &feedbackHandler{store: cfg.Feedback, logger: logger}
	nh := &notifyHandler{store: cfg.Notify, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("GET /api/conversations", ch.conversations)
	mux.HandleFunc("GET /api/conversations/{id}/messages", ch.messages)
	mux.HandleFunc("DELETE /api/conversations/{id}", ch.deleteConversation)
	mux.HandleFunc("GET /api/legal/{document}", lh.document)
	mux.HandleFunc("POST /api/legal/accept", lh.accept)
	mux.HandleFunc("POST /api/feedback", fh.submit)
	mux.HandleFunc("POST /api/notifications/register", nh.register)
	mux.HandleFunc("DELETE /api/notifications/register", nh.unregister)

	if cfg.Voice != nil {
		vh := &voiceHandler{service: cfg.Voice, logger: logger}
		mux.HandleFunc("POST /api/voice/transcribe", vh.transcribe)
		mux.HandleFunc("POST /api/voice/speak", vh.speak)
	}

	if cfg.Analytics != nil {
		rh := &ragHandler{analytics: cfg.Analytics, logger: logger}
		mux.HandleFunc("GET /api/rag", rh.stats)
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must precede Logging so request_id is available in log
	// attributes; CORS must precede RateLimit so preflight OPTIONS gets
	// proper headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes stay outside the middleware stack so orchestrators are
	// never rate limited.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
