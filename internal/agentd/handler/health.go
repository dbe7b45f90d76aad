package handler

import (
	"net/http"

	"github.com/askdb/askdb/internal/agentd/llm"
	"github.com/askdb/askdb/internal/agentd/response"
)

// HealthCheck returns a simple health check response
func HealthCheck(provider llm.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"status":     "ok",
			"provider":   provider.Name(),
			"configured": provider.IsConfigured(),
		})
	}
}
