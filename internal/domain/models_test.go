package domain

import (
	"testing"
	"time"
)

func TestTaskKind_Constants(t *testing.T) {
	tests := []struct {
		name     string
		kind     TaskKind
		expected string
	}{
		{"analysis", TaskKindAnalysis, "analysis"},
		{"playlist_generation", TaskKindPlaylistGeneration, "playlist_generation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.kind) != tt.expected {
				t.Errorf("TaskKind %s = %q, want %q", tt.name, tt.kind, tt.expected)
			}
		})
	}
}

func TestTaskState_Constants(t *testing.T) {
	states := []TaskState{
		TaskStatePending, TaskStateRunning, TaskStateCompleted,
		TaskStateFailed, TaskStateCancelled,
	}
	for _, s := range states {
		if s == "" {
			t.Error("TaskState constant should not be empty")
		}
	}
}

func TestMoods_FixedVocabulary(t *testing.T) {
	moods := Moods()
	if len(moods) != 9 {
		t.Fatalf("expected 9 moods, got %d", len(moods))
	}
	seen := map[Mood]bool{}
	for _, m := range moods {
		if seen[m] {
			t.Errorf("duplicate mood %s", m)
		}
		seen[m] = true
	}
	if !seen[MoodNeutral] {
		t.Error("expected neutral to be part of the fixed mood set")
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	if len(formats) == 0 {
		t.Fatal("expected at least one supported format")
	}
	for _, f := range formats {
		if f[0] != '.' {
			t.Errorf("format %s should start with .", f)
		}
	}
}

func TestTrack_HasFeatures(t *testing.T) {
	tr := &Track{Path: "/music/a.flac"}
	if tr.HasFeatures() {
		t.Error("expected fresh track to have no features")
	}
	tr.Features = &Features{BPM: 128}
	if !tr.HasFeatures() {
		t.Error("expected track with assigned Features to report HasFeatures true")
	}
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	w := DefaultWeights()
	var sum float64
	for _, v := range w {
		sum += v
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected default weights to sum to 1.0, got %f", sum)
	}
}

func TestDefaultPreset(t *testing.T) {
	p := DefaultPreset()
	if p.Name != "default" {
		t.Errorf("expected preset name 'default', got %q", p.Name)
	}
	if p.Weights != DefaultWeights() {
		t.Error("expected default preset to use the default weight vector")
	}
	if p.MaxBPMJump <= 0 {
		t.Error("expected a positive max bpm jump")
	}
}

func TestPlaylist_TrackRefOrdering(t *testing.T) {
	pl := Playlist{
		ID:        "pl-1",
		CreatedAt: time.Now(),
		Tracks: []PlaylistTrackRef{
			{Path: "/a.flac", TransitionScore: 0},
			{Path: "/b.flac", TransitionScore: 0.82},
		},
	}
	if pl.Tracks[0].TransitionScore != 0 {
		t.Error("first track's transition score must be undefined/zero")
	}
	if len(pl.Tracks) != 2 {
		t.Errorf("expected 2 tracks, got %d", len(pl.Tracks))
	}
}

func TestCacheEntry_RoundTripFields(t *testing.T) {
	now := time.Now().UTC()
	entry := CacheEntry{
		ContentID:       "abc123",
		PathAtWrite:     "/music/track.flac",
		FileSize:        1024,
		MTime:           now,
		AnalysisVersion: 1,
		AnalysedAt:      now,
		Features:        Features{BPM: 120, Key: "Am", Camelot: "8A", AnalysisVersion: 1},
	}
	if entry.Features.BPM != 120 {
		t.Errorf("expected BPM 120, got %f", entry.Features.BPM)
	}
	if entry.ContentID == "" {
		t.Error("expected a non-empty content id")
	}
}
