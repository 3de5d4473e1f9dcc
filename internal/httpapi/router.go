package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router realising spec.md §6's endpoint table,
// grounded on the teacher's chi.NewRouter + middleware.Logger/Recoverer
// setup in cmd/server/main.go.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/api/analysis", func(r chi.Router) {
		r.Post("/start", h.StartAnalysis)
		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/cleanup", h.CacheCleanup)
		r.Post("/cache/clear", h.CacheClear)
		r.Get("/formats", h.Formats)
		r.Get("/{id}/status", h.TaskStatus)
		r.Post("/{id}/cancel", h.CancelTask)
	})

	r.Route("/api/tracks", func(r chi.Router) {
		r.Get("/", h.ListTracks)
		r.Get("/search/similar", h.SimilarTracks)
		r.Get("/*", h.GetTrack)
	})

	r.Route("/api/playlists", func(r chi.Router) {
		r.Post("/generate", h.GeneratePlaylist)
		r.Get("/generate/{id}/status", h.TaskStatus)
		r.Get("/generate/{id}/result", h.PlaylistResult)
		r.Post("/export", h.ExportPlaylist)
	})

	return r
}
