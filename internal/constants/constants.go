// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = "8080"

	DefaultMaxWorkers           = 4
	DefaultMinFileSizeKB        = 1
	DefaultMaxFileSizeMB        = 512
	DefaultCacheTTLDays         = 30
	DefaultAnalysisTimeoutSec   = 300
	DefaultGenerationTimeoutSec = 60
	DefaultGlobalTaskCeiling    = 8
	DefaultBeamWidth            = 8

	DefaultScanMaxDepth = 32
	DefaultPollInterval = 500 * time.Millisecond

	DefaultRetryCount = 3
	DefaultRetryBase  = 200 * time.Millisecond
	RetryBackoffCap   = 3 * time.Second

	CompletedTaskRetention = 24 * time.Hour
	FailedTaskRetention    = 1 * time.Hour
	SweepInterval          = 1 * time.Minute

	MaxTaskErrors = 50
)

// Camelot Wheel bounds
const (
	CamelotMinNumber = 1
	CamelotMaxNumber = 12
)

// Scoring weights for the default playlist preset (spec.md §4.6), in the
// same (harmony, bpm, energy, mood, surprise) order as domain.DefaultWeights.
const (
	WeightHarmony    = 0.30
	WeightBPM        = 0.20
	WeightEnergyFlow = 0.30
	WeightMood       = 0.15
	WeightSurprise   = 0.05
)

// File Extensions recognised by the Scanner
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtWAV  = ".wav"
	ExtM4A  = ".m4a"
	ExtAAC  = ".aac"
	ExtOGG  = ".ogg"

	ExtM3U  = ".m3u"
	ExtJPG  = ".jpg"
)

// MIME Types used by tag readers and export writers
const (
	MimeTypeFLAC = "audio/flac"
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeWAV  = "audio/wav"
	MimeTypeM4A  = "audio/mp4"
	MimeTypeJPEG = "image/jpeg"
)

// On-disk layout under DataRoot (spec.md §6)
const (
	CacheDirName    = "cache"
	PresetsDirName  = "presets"
	ExportsDirName  = "exports"
	ByContentDir    = "by_content"
	IndexFileName   = "index.json"
)

// File Permissions
const (
	DirPermissions  = 0o755
	FilePermissions = 0o644
)

// HTTP Status Codes
const (
	StatusOK                     = 200
	StatusAccepted               = 202
	StatusBadRequest             = 400
	StatusNotFound               = 404
	StatusConflict               = 409
	StatusUnsupportedMediaType   = 415
	StatusUnprocessableEntity    = 422
	StatusTooManyRequests        = 429
	StatusInternalError          = 500
	StatusServiceUnavailable     = 503
	StatusGatewayTimeout         = 504
)

// Characters to sanitize from filesystem-derived names
const InvalidPathChars = "<>:\"/\\|?*"
