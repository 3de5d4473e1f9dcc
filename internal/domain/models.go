package domain

import "time"

// EnergyPoint is one sample of an energy-over-time curve.
type EnergyPoint struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

// Features are produced by the extractor and immutable once written.
type Features struct {
	BPM               float64            `json:"bpm"`
	Key               string             `json:"key"`
	Camelot           string             `json:"camelot"`
	Energy            float64            `json:"energy"`
	Valence           float64            `json:"valence"`
	Danceability      float64            `json:"danceability"`
	Acousticness      float64            `json:"acousticness"`
	Instrumentalness  float64            `json:"instrumentalness"`
	EnergyTimeseries  []EnergyPoint      `json:"energy_timeseries"`
	Confidence        map[string]float64 `json:"confidence"`
	Mood              Mood               `json:"mood"`
	MoodScores        map[Mood]float64   `json:"mood_scores"`
	AnalysisVersion   int                `json:"analysis_version"`

	// Supplemented, informational only (see SPEC_FULL.md §3).
	Loudness            *float64 `json:"loudness_db,omitempty"`
	SpectralCentroidHz  *float64 `json:"spectral_centroid_hz,omitempty"`
}

// Track is the unit of the library.
type Track struct {
	Path      string `json:"path"`
	ContentID string `json:"content_id,omitempty"`

	FileSize        int64     `json:"file_size"`
	MTime           time.Time `json:"mtime"`
	Format          string    `json:"format"`
	Bitrate         int       `json:"bitrate,omitempty"`
	SampleRate      int       `json:"sample_rate,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`

	Title  *string `json:"title,omitempty"`
	Artist *string `json:"artist,omitempty"`
	Album  *string `json:"album,omitempty"`
	Year   *int    `json:"year,omitempty"`

	// Tags is a supplemented free-form field, see SPEC_FULL.md §3.
	Tags []string `json:"tags,omitempty"`

	Features   *Features  `json:"features,omitempty"`
	AnalysedAt *time.Time `json:"analysed_at,omitempty"`
}

// HasFeatures reports whether the track has been analysed.
func (t *Track) HasFeatures() bool {
	return t.Features != nil
}

// CacheEntry is the on-disk materialisation of a track's analysis result,
// keyed by content_id (spec.md §4.5/§6).
type CacheEntry struct {
	ContentID       string    `json:"content_id"`
	PathAtWrite     string    `json:"path_at_write"`
	FileSize        int64     `json:"file_size"`
	MTime           time.Time `json:"mtime"`
	AnalysisVersion int       `json:"analysis_version"`
	AnalysedAt      time.Time `json:"analysed_at"`
	Features        Features  `json:"features"`

	// ExtractorVersion is supplemented, informational only; see SPEC_FULL.md §3.
	ExtractorVersion string `json:"extractor_version,omitempty"`
}

// PathIndexEntry is the fast-reject validation record for a canonical path,
// stored in cache/index.json (spec.md §6).
type PathIndexEntry struct {
	ContentID       string    `json:"content_id"`
	FileSize        int64     `json:"file_size"`
	MTime           time.Time `json:"mtime"`
	AnalysisVersion int       `json:"analysis_version"`
}

// TaskError is one entry in a task's bounded error list (spec.md §7).
type TaskError struct {
	Path    string `json:"path,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AnalysisSummary is the terminal result of an analysis task.
type AnalysisSummary struct {
	TotalFiles     int         `json:"total_files"`
	AnalysedFiles  int         `json:"analysed_files"`
	CacheHits      int         `json:"cache_hits"`
	FailedFiles    int         `json:"failed_files"`
	Errors         []TaskError `json:"errors,omitempty"`
}

// Task is a background job tracked by the TaskManager.
type Task struct {
	ID    string    `json:"id"`
	Kind  TaskKind  `json:"kind"`
	State TaskState `json:"state"`

	// Progress is on a [0.0, 100.0] scale; 100.0 once State == completed.
	Progress float64 `json:"progress"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	TotalFiles     int         `json:"total_files,omitempty"`
	ProcessedFiles int         `json:"processed_files,omitempty"`
	CurrentFile    string      `json:"current_file,omitempty"`
	ErrorCount     int         `json:"error_count,omitempty"`
	Errors         []TaskError `json:"errors,omitempty"`

	// Result carries either an AnalysisSummary or a Playlist, present iff
	// State == TaskStateCompleted.
	Result interface{} `json:"result,omitempty"`

	FailureReason string `json:"failure_reason,omitempty"`
}

// PlaylistTrackRef is one entry in a generated playlist.
type PlaylistTrackRef struct {
	Path            string  `json:"path"`
	TransitionScore float64 `json:"transition_score"`
}

// PlaylistMetadata carries playlist-level aggregates.
type PlaylistMetadata struct {
	TotalDuration float64            `json:"total_duration"`
	AvgBPM        float64            `json:"avg_bpm"`
	EnergyCurve   [16]float64        `json:"energy_curve"`
	PresetName    string             `json:"preset_name"`
	Parameters    map[string]float64 `json:"parameters,omitempty"`
	Truncated     bool               `json:"truncated"`
	Empty         bool               `json:"empty"`
}

// Playlist is an ordered sequence of track references, never mutated once
// created.
type Playlist struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Tracks    []PlaylistTrackRef `json:"tracks"`
	Metadata  PlaylistMetadata   `json:"metadata"`
}

// Preset is a declarative playlist generation rule set.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	BPMRange    [2]float64 `json:"bpm_range"`
	EnergyRange [2]float64 `json:"energy_range"`

	TargetEnergyCurve []float64 `json:"target_energy_curve,omitempty"`
	NamedCurve        CurveName `json:"named_curve,omitempty"`

	HarmonyStrictness float64 `json:"harmony_strictness"`
	MoodConsistency   float64 `json:"mood_consistency"`

	Weights [5]float64 `json:"weights"`

	MaxBPMJump           float64 `json:"max_bpm_jump"`
	AvoidSameArtistWindow int    `json:"avoid_same_artist_window"`
	MinTrackDuration     float64 `json:"min_track_duration"`
	MaxTrackDuration     float64 `json:"max_track_duration"`
}

// DefaultWeights is the spec-mandated default scoring weight vector
// (harmony, bpm, energy, mood, freshness/surprise).
func DefaultWeights() [5]float64 {
	return [5]float64{0.30, 0.20, 0.30, 0.15, 0.05}
}

// DefaultPreset returns the built-in "default" preset.
func DefaultPreset() Preset {
	return Preset{
		Name:                  "default",
		Description:           "Balanced harmonic mixing with moderate energy build.",
		BPMRange:              [2]float64{60, 200},
		EnergyRange:           [2]float64{0, 1},
		NamedCurve:            CurveWave,
		HarmonyStrictness:     0.8,
		MoodConsistency:       0.5,
		Weights:               DefaultWeights(),
		MaxBPMJump:            8,
		AvoidSameArtistWindow: 3,
		MinTrackDuration:      60,
		MaxTrackDuration:      900,
	}
}
