package constants

import (
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	if DefaultPort != "8080" {
		t.Errorf("Expected DefaultPort to be '8080', got '%s'", DefaultPort)
	}

	if DefaultHost == "" {
		t.Error("DefaultHost should not be empty")
	}

	if DefaultMaxWorkers < 1 {
		t.Errorf("Expected DefaultMaxWorkers to be at least 1, got %d", DefaultMaxWorkers)
	}

	if DefaultBeamWidth < 1 {
		t.Errorf("Expected DefaultBeamWidth to be at least 1, got %d", DefaultBeamWidth)
	}
}

func TestTimeouts(t *testing.T) {
	if DefaultAnalysisTimeoutSec != 300 {
		t.Errorf("Expected DefaultAnalysisTimeoutSec to be 300, got %d", DefaultAnalysisTimeoutSec)
	}

	if DefaultGenerationTimeoutSec != 60 {
		t.Errorf("Expected DefaultGenerationTimeoutSec to be 60, got %d", DefaultGenerationTimeoutSec)
	}

	if DefaultPollInterval != 500*time.Millisecond {
		t.Errorf("Expected DefaultPollInterval to be 500ms, got %v", DefaultPollInterval)
	}

	if DefaultRetryBase != 200*time.Millisecond {
		t.Errorf("Expected DefaultRetryBase to be 200ms, got %v", DefaultRetryBase)
	}
}

func TestRetryCount(t *testing.T) {
	if DefaultRetryCount != 3 {
		t.Errorf("Expected DefaultRetryCount to be 3, got %d", DefaultRetryCount)
	}
}

func TestCamelotBounds(t *testing.T) {
	if CamelotMinNumber != 1 {
		t.Errorf("Expected CamelotMinNumber to be 1, got %d", CamelotMinNumber)
	}
	if CamelotMaxNumber != 12 {
		t.Errorf("Expected CamelotMaxNumber to be 12, got %d", CamelotMaxNumber)
	}
}

func TestScoringWeightsSumToOne(t *testing.T) {
	sum := WeightHarmony + WeightBPM + WeightEnergyFlow + WeightMood + WeightSurprise
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected default scoring weights to sum to 1.0, got %f", sum)
	}
}

func TestFileExtensions(t *testing.T) {
	extensions := []string{
		ExtFLAC,
		ExtMP3,
		ExtWAV,
		ExtM4A,
		ExtAAC,
		ExtOGG,
	}

	for _, ext := range extensions {
		if ext == "" {
			t.Error("File extension constant should not be empty")
		}
		if ext[0] != '.' {
			t.Errorf("File extension %s should start with .", ext)
		}
	}
}

func TestMimeTypes(t *testing.T) {
	types := []string{
		MimeTypeFLAC,
		MimeTypeMP3,
		MimeTypeWAV,
		MimeTypeM4A,
		MimeTypeJPEG,
	}

	for _, m := range types {
		if m == "" {
			t.Error("MIME type constant should not be empty")
		}
	}
}

func TestOnDiskLayoutNames(t *testing.T) {
	names := []string{CacheDirName, PresetsDirName, ExportsDirName, ByContentDir, IndexFileName}
	for _, n := range names {
		if n == "" {
			t.Error("on-disk layout constant should not be empty")
		}
	}
}

func TestHTTPStatusCodes(t *testing.T) {
	if StatusOK != 200 {
		t.Errorf("Expected StatusOK to be 200, got %d", StatusOK)
	}

	if StatusBadRequest != 400 {
		t.Errorf("Expected StatusBadRequest to be 400, got %d", StatusBadRequest)
	}

	if StatusNotFound != 404 {
		t.Errorf("Expected StatusNotFound to be 404, got %d", StatusNotFound)
	}

	if StatusUnprocessableEntity != 422 {
		t.Errorf("Expected StatusUnprocessableEntity to be 422, got %d", StatusUnprocessableEntity)
	}

	if StatusInternalError != 500 {
		t.Errorf("Expected StatusInternalError to be 500, got %d", StatusInternalError)
	}
}

func TestInvalidPathChars(t *testing.T) {
	if InvalidPathChars == "" {
		t.Error("InvalidPathChars should not be empty")
	}
}
