package domain

// TaskKind identifies what a Task is doing.
type TaskKind string

const (
	TaskKindAnalysis           TaskKind = "analysis"
	TaskKindPlaylistGeneration TaskKind = "playlist_generation"
)

// TaskState is the task lifecycle state machine of spec.md §3.
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// Mood is the fixed, closed vocabulary classifier tag set.
type Mood string

const (
	MoodEnergetic   Mood = "energetic"
	MoodHappy       Mood = "happy"
	MoodCalm        Mood = "calm"
	MoodMelancholic Mood = "melancholic"
	MoodAggressive  Mood = "aggressive"
	MoodEuphoric    Mood = "euphoric"
	MoodDark        Mood = "dark"
	MoodDriving     Mood = "driving"
	MoodNeutral     Mood = "neutral"
)

// Moods lists the fixed mood vocabulary in a stable order, used to build
// per-tag score maps deterministically.
func Moods() []Mood {
	return []Mood{
		MoodEnergetic, MoodHappy, MoodCalm, MoodMelancholic, MoodAggressive,
		MoodEuphoric, MoodDark, MoodDriving, MoodNeutral,
	}
}

// SupportedFormats lists the file extensions the Scanner will accept.
func SupportedFormats() []string {
	return []string{".mp3", ".flac", ".wav", ".m4a", ".aac", ".ogg"}
}

// ErrorClass classifies FeatureExtractor and Store failures, per spec.md §4.4/§7.
type ErrorClass string

const (
	ErrClassUnsupportedFormat ErrorClass = "unsupported_format"
	ErrClassCorruptFile       ErrorClass = "corrupt_file"
	ErrClassTimeout           ErrorClass = "timeout"
	ErrClassInternal          ErrorClass = "internal"
	ErrClassIOError           ErrorClass = "io_error"
)

// ExportFormat enumerates playlist export targets.
type ExportFormat string

const (
	ExportFormatM3U       ExportFormat = "m3u"
	ExportFormatJSON      ExportFormat = "json"
	ExportFormatCSV       ExportFormat = "csv"
	ExportFormatRekordbox ExportFormat = "rekordbox"
)

// CurveName names a built-in target energy curve shape.
type CurveName string

const (
	CurveFlat       CurveName = "flat"
	CurveBuildup    CurveName = "buildup"
	CurvePeakValley CurveName = "peak_valley"
	CurveWave       CurveName = "wave"
	CurveCooldown   CurveName = "cooldown"
)
