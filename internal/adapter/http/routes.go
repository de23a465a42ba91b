package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/healthz", h.Health)
	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Agents
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)
		r.Delete("/agents/{id}", h.DeleteAgent)
		r.Post("/agents/{id}/prompt", h.PromptAgent)
		r.Get("/agents/{id}/responses", h.ListAgentResponses)

		// Swarm directory and message log
		r.Get("/swarm/agents", h.ListSwarmAgents)
		r.Get("/swarm/messages", h.ListMessages)
		r.Post("/swarm/messages", h.SendMessage)

		// Tasks
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/{id}", h.GetTask)
		r.Post("/tasks/{id}/dispatch", h.DispatchTask)

		// Risk
		r.Post("/risk/validate", h.ValidateTransaction)

		// Chain
		r.Get("/chain/snapshot", h.ChainSnapshot)
		r.Get("/chain/balance/{address}", h.ChainBalance)

		// Knowledge
		r.Post("/knowledge/documents", h.SeedKnowledge)
		r.Get("/knowledge/search", h.SearchKnowledge)
	})
}
