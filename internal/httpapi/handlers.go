// Package httpapi implements the REST surface of spec.md §6 over
// github.com/go-chi/chi/v5, the router library the teacher's own
// internal/http and internal/handlers packages build on — generalised here
// from an HTMX page-rendering surface to a pure JSON API, per DESIGN.md.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/navidrums/internal/analysis"
	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/config"
	"github.com/cesargomez89/navidrums/internal/domain"
	"github.com/cesargomez89/navidrums/internal/export"
	"github.com/cesargomez89/navidrums/internal/logger"
	"github.com/cesargomez89/navidrums/internal/playlist"
	"github.com/cesargomez89/navidrums/internal/preset"
	"github.com/cesargomez89/navidrums/internal/scanner"
	"github.com/cesargomez89/navidrums/internal/store"
	"github.com/cesargomez89/navidrums/internal/taskmanager"
)

// Version is reported by GET /health; overridable at build time.
var Version = "dev"

// Handler wires the core packages into the REST contract. Every field is a
// constructed dependency; Handler owns no state of its own.
type Handler struct {
	Config   *config.Config
	Store    *store.Store
	Tasks    *taskmanager.Manager
	Pipeline *analysis.Pipeline
	Engine   *playlist.Engine
	Exporter *export.Exporter
	Presets  *preset.Store
	Logger   *logger.Logger
}

func (h *Handler) log() *logger.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return logger.Default()
}

// Health answers GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: Version,
		Components: map[string]string{
			"cache":    "ok",
			"analyzer": "ok",
		},
	})
}

// StartAnalysis answers POST /api/analysis/start. The candidate set is
// scanned once synchronously to report total_files immediately, then the
// pipeline's own RunFunc re-scans in the background task (the scan itself
// is a cheap directory walk, not the expensive step).
func (h *Handler) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	var req startAnalysisRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	scanResult, err := scanner.Scan(scanner.Request{
		Directories:     req.Directories,
		FilePaths:       req.FilePaths,
		Recursive:       req.Recursive,
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
		MinFileSizeKB:   h.Config.MinFileSizeKB,
		MaxFileSizeMB:   h.Config.MaxFileSizeMB,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	analysisReq := analysis.Request{
		Directories:     req.Directories,
		FilePaths:       req.FilePaths,
		Recursive:       req.Recursive,
		OverwriteCache:  req.OverwriteCache,
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
	}
	id, err := h.Tasks.Submit(domain.TaskKindAnalysis, h.Pipeline.RunFunc(analysisReq))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startAnalysisResponse{
		TaskID:     id,
		TotalFiles: len(scanResult.Files),
		StatusURL:  "/api/analysis/" + id + "/status",
	})
}

// TaskStatus answers both GET /api/analysis/{id}/status and
// GET /api/playlists/generate/{id}/status: a task snapshot is a task
// snapshot regardless of kind.
func (h *Handler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := h.Tasks.Status(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// CancelTask answers POST /api/analysis/{id}/cancel. Cancellation is
// idempotent: cancelling an already-terminal task is not an error.
func (h *Handler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Tasks.Cancel(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// CacheStats answers GET /api/analysis/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Stats())
}

// CacheCleanup answers POST /api/analysis/cache/cleanup.
func (h *Handler) CacheCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	removed, freed, err := h.Store.Cleanup(req.OlderThanDays, req.MaxSizeGB)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cleanupResponse{Removed: removed, FreedBytes: freed})
}

// CacheClear answers POST /api/analysis/cache/clear.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Clear(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Formats answers GET /api/analysis/formats.
func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formatsResponse{Formats: domain.SupportedFormats()})
}

// ListTracks answers GET /api/tracks.
func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var keys []string
	if k := q.Get("key"); k != "" {
		keys = append(keys, k)
	}
	if c := q.Get("camelot"); c != "" {
		keys = append(keys, c)
	}
	var moods []domain.Mood
	if m := q.Get("mood"); m != "" {
		moods = append(moods, domain.Mood(m))
	}

	opts := store.ListOptions{
		Filter: store.ListFilter{
			Search:    q.Get("search"),
			Keys:      keys,
			Moods:     moods,
			MinBPM:    atofDefault(q.Get("min_bpm"), 0),
			MaxBPM:    atofDefault(q.Get("max_bpm"), 0),
			MinEnergy: atofDefault(q.Get("min_energy"), 0),
			MaxEnergy: atofDefault(q.Get("max_energy"), 0),
		},
		SortBy:   store.SortField(q.Get("sort_by")),
		SortDesc: strings.EqualFold(q.Get("sort_order"), "desc"),
		Page:     atoiDefault(q.Get("page"), 1),
		PerPage:  atoiDefault(q.Get("per_page"), 50),
	}

	tracks, total, err := h.Store.List(opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trackListResponse{Tracks: tracks, Total: total, Page: opts.Page, PerPage: opts.PerPage})
}

const tracksPrefix = "/api/tracks/"

// GetTrack answers GET /api/tracks/{path}; path arrives URL-encoded as a
// single segment per spec.md §6. The router matches this on a wildcard and
// the encoded value is recovered from r.URL.EscapedPath() rather than a chi
// URL param, since Go's automatic path decoding would otherwise turn an
// encoded "%2F" in the path back into a literal "/" before routing sees it.
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	encoded := strings.TrimPrefix(r.URL.EscapedPath(), tracksPrefix)
	path, err := url.QueryUnescape(encoded)
	if err != nil {
		writeError(w, apierr.InvalidArgument("invalid path encoding: %v", err))
		return
	}
	track, err := h.Store.GetByPath(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// SimilarTracks answers GET /api/tracks/search/similar.
func (h *Handler) SimilarTracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trackPath := q.Get("track_path")
	if trackPath == "" {
		writeError(w, apierr.InvalidArgument("track_path is required"))
		return
	}
	limit := atoiDefault(q.Get("limit"), 10)
	threshold := atofDefault(q.Get("similarity_threshold"), 0)

	results, err := h.Store.SimilarWithDistance(trackPath, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]similarTrack, 0, len(results))
	for _, res := range results {
		similarity := 1.0 / (1.0 + res.Distance)
		if similarity < threshold {
			continue
		}
		out = append(out, similarTrack{Track: res.Track, Similarity: similarity})
	}
	writeJSON(w, http.StatusOK, similarResponse{Tracks: out})
}

// GeneratePlaylist answers POST /api/playlists/generate.
func (h *Handler) GeneratePlaylist(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	base, err := h.Presets.Get(req.PresetName)
	if err != nil {
		writeError(w, err)
		return
	}
	curve, overrides := splitCustomRules(req.CustomRules)
	p := preset.Resolve(base, overrides, curve)

	engineReq := playlist.Request{
		TrackFilePaths:        req.TrackFilePaths,
		TargetDurationMinutes: req.TargetDurationMinutes,
		Surprise:              req.Surprise,
	}
	if req.Seed != nil {
		engineReq.SeedTrackPath = *req.Seed
	}

	id, err := h.Tasks.Submit(domain.TaskKindPlaylistGeneration, h.Engine.RunFunc(engineReq, p))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, taskAcceptedResponse{TaskID: id})
}

// splitCustomRules pulls the "named_curve" string override (if present) out
// of a generation request's custom_rules object and returns the remaining
// numeric overrides for preset.Resolve.
func splitCustomRules(raw map[string]interface{}) (curve string, overrides map[string]float64) {
	overrides = make(map[string]float64, len(raw))
	for key, v := range raw {
		switch val := v.(type) {
		case string:
			if key == "named_curve" {
				curve = val
			}
		case float64:
			overrides[key] = val
		}
	}
	return curve, overrides
}

// PlaylistResult answers GET /api/playlists/generate/{id}/result.
func (h *Handler) PlaylistResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, ready, err := h.Tasks.Result(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ready {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExportPlaylist answers POST /api/playlists/export.
func (h *Handler) ExportPlaylist(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	format := export.Format(req.FormatType)
	path, err := h.Exporter.Save(req.PlaylistData, format, req.Filename, req.IncludeMetadata)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Path: path, Format: string(format)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	ae, ok := apierr.As(err)
	if !ok {
		ae = apierr.Internal(err.Error(), err)
	}
	writeJSON(w, ae.HTTPStatus(), errorEnvelope{Error: errorBody{
		Code:    string(ae.Code),
		Message: ae.Message,
		Details: ae.Details,
	}})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return apierr.InvalidArgument("invalid request body: %v", err)
	}
	return nil
}

func atoiDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func atofDefault(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
