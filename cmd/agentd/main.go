package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/askdb/askdb/internal/agentd"
	"github.com/askdb/askdb/internal/agentd/llm"
	"github.com/askdb/askdb/internal/agentd/memory"
	"github.com/askdb/askdb/internal/agentd/userdb"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/logging"
)

func main() {
	// Best effort: local development keeps GEMINI_API_KEY in a .env file.
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logging.Setup(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	log.Info().
		Str("host", cfg.Agent.Host).
		Int("port", cfg.Agent.Port).
		Msg("Starting askdb agent")

	history := newHistory(cfg)

	userDB, err := userdb.NewService(cfg.Agent.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize user database storage")
	}

	provider := newProvider(cfg)
	log.Info().Str("provider", provider.Name()).Msg("LLM provider selected")

	router := agentd.NewRouter(cfg, history, userDB, provider)

	server := &http.Server{
		Addr:         cfg.Agent.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Agent.ReadTimeout,
		WriteTimeout: cfg.Agent.WriteTimeout,
	}

	go func() {
		log.Info().Msgf("Agent listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down agent...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Agent.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Agent forced to shutdown")
	}

	log.Info().Msg("Agent stopped")
}

// newHistory picks the configured history backend, falling back to process
// memory when redis is unreachable.
func newHistory(cfg *config.Config) memory.History {
	if cfg.Agent.MemoryBackend == "redis" {
		r, err := memory.NewRedis(cfg.Redis)
		if err == nil {
			log.Info().Str("addr", cfg.Redis.Addr()).Msg("Using redis history backend")
			return r
		}
		log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory history")
	}
	return memory.NewInMemory()
}

// newProvider picks the configured LLM provider, falling back to the offline
// static provider when gemini has no API key.
func newProvider(cfg *config.Config) llm.Provider {
	if cfg.LLM.Provider == "gemini" {
		g := llm.NewGemini(cfg.LLM.Gemini)
		if g.IsConfigured() {
			return g
		}
		log.Warn().Msg("GEMINI_API_KEY not set, falling back to static provider")
	}
	return llm.NewStatic()
}
