package agentd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/askdb/askdb/internal/agentd/handler"
	"github.com/askdb/askdb/internal/agentd/llm"
	"github.com/askdb/askdb/internal/agentd/memory"
	custommiddleware "github.com/askdb/askdb/internal/agentd/middleware"
	"github.com/askdb/askdb/internal/agentd/userdb"
	"github.com/askdb/askdb/internal/config"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, history memory.History, userDB *userdb.Service, provider llm.Provider) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Agent.WriteTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	chatHandler := handler.NewChatHandler(history, userDB, provider)
	dbHandler := handler.NewDatabaseHandler(userDB, history, cfg.Agent.MaxRows)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck(provider))

		r.Post("/chat", chatHandler.Chat)
		r.Get("/history", chatHandler.History)

		r.Post("/execute-sql", dbHandler.Execute)
		r.Post("/upload", dbHandler.Upload)
		r.Get("/database-status", dbHandler.Status)
		r.Delete("/database", dbHandler.Delete)
	})

	return r
}
