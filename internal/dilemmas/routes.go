package dilemmas

import (
	"net/http"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handler, secureCookies bool) http.Handler {
	r := chi.NewRouter()

	r.Get("/dilemmas", h.ListDilemmas)
	r.Get("/dilemmas/{id}", h.GetDilemma)
	r.Post("/dilemmas/{id}/ai-response", h.AIResponse)
	r.Get("/dilemmas/{id}/ai-responses", h.AIResponseHistory)
	r.Get("/dilemmas/{id}/percentages", h.Percentages)
	r.Get("/frameworks/distribution", h.FrameworkDistribution)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(secureCookies))
		r.Post("/responses", h.SaveResponse)
		r.Get("/responses", h.ListResponses)
		r.Put("/score", h.SaveScore)
		r.Get("/score", h.GetScore)
		r.Get("/comparison", h.Comparison)
	})

	return r
}
