package httpapi

import "github.com/cesargomez89/navidrums/internal/domain"

// healthResponse is GET /health's body (spec.md §6).
type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

// startAnalysisRequest is POST /api/analysis/start's body.
type startAnalysisRequest struct {
	Directories     []string `json:"directories"`
	FilePaths       []string `json:"file_paths"`
	Recursive       bool     `json:"recursive"`
	OverwriteCache  bool     `json:"overwrite_cache"`
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
}

// startAnalysisResponse is POST /api/analysis/start's body.
type startAnalysisResponse struct {
	TaskID     string `json:"task_id"`
	TotalFiles int    `json:"total_files"`
	StatusURL  string `json:"status_url"`
}

// cleanupRequest is POST /api/analysis/cache/cleanup's body.
type cleanupRequest struct {
	OlderThanDays int     `json:"older_than_days"`
	MaxSizeGB     float64 `json:"max_size_gb"`
}

// cleanupResponse is POST /api/analysis/cache/cleanup's body.
type cleanupResponse struct {
	Removed     int   `json:"removed"`
	FreedBytes  int64 `json:"freed_bytes"`
}

// formatsResponse is GET /api/analysis/formats's body.
type formatsResponse struct {
	Formats []string `json:"formats"`
}

// trackListResponse is GET /api/tracks's body.
type trackListResponse struct {
	Tracks  []domain.Track `json:"tracks"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

// similarResponse is GET /api/tracks/search/similar's body.
type similarResponse struct {
	Tracks []similarTrack `json:"tracks"`
}

type similarTrack struct {
	domain.Track
	Similarity float64 `json:"similarity"`
}

// generateRequest is POST /api/playlists/generate's body.
type generateRequest struct {
	TrackFilePaths        []string               `json:"track_file_paths"`
	PresetName            string                 `json:"preset_name"`
	CustomRules           map[string]interface{} `json:"custom_rules"`
	TargetDurationMinutes int                    `json:"target_duration_minutes"`
	Seed                  *string                `json:"seed"`
	Surprise              float64                `json:"surprise"`
}

// taskAcceptedResponse is the {task_id} body shared by the start-analysis
// and generate-playlist endpoints.
type taskAcceptedResponse struct {
	TaskID string `json:"task_id"`
}

// exportRequest is POST /api/playlists/export's body. playlist_data carries
// the full Playlist inline, since this module keeps no separate playlist
// store beyond task results (spec.md §6 names no playlist-by-id lookup).
type exportRequest struct {
	PlaylistData    domain.Playlist `json:"playlist_data"`
	FormatType      string          `json:"format_type"`
	Filename        string          `json:"filename"`
	IncludeMetadata bool            `json:"include_metadata"`
}

// exportResponse is POST /api/playlists/export's body.
type exportResponse struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}
