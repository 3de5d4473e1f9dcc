package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cesargomez89/navidrums/internal/domain"
)

func writeAudioFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), 30*24*time.Hour, 1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func putEntry(t *testing.T, s *Store, path string, features domain.Features) {
	t.Helper()
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	entry := domain.CacheEntry{
		ContentID:       "cid-" + filepath.Base(path),
		PathAtWrite:     path,
		FileSize:        stat.Size(),
		MTime:           stat.ModTime(),
		AnalysisVersion: 1,
		AnalysedAt:      time.Now(),
		Features:        features,
	}
	if err := s.Put(entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestStore_PutThenLookupHits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.flac")
	writeAudioFile(t, path, []byte("audio"))

	s, err := New(dir+"-data", 0, 1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	putEntry(t, s, path, domain.Features{BPM: 128})

	stat, _ := os.Stat(path)
	entry, ok := s.Lookup(path, stat.Size(), stat.ModTime())
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if entry.Features.BPM != 128 {
		t.Errorf("expected BPM 128, got %f", entry.Features.BPM)
	}
}

func TestStore_LookupMissesOnSizeChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.flac")
	writeAudioFile(t, path, []byte("audio"))

	s := newTestStore(t)
	putEntry(t, s, path, domain.Features{BPM: 128})

	if _, ok := s.Lookup(path, 99999, time.Now()); ok {
		t.Error("expected a miss when size does not match")
	}
}

func TestStore_GetByPath_RehashesOnColdIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp3")
	writeAudioFile(t, path, []byte("audio-bytes"))

	s := newTestStore(t)
	track, err := s.GetByPath(path)
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if track.Path != path {
		t.Errorf("expected path %s, got %s", path, track.Path)
	}
	if track.HasFeatures() {
		t.Error("expected no features before any Put")
	}
}

func TestStore_GetByPath_MissingFileFails(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetByPath("/nonexistent/track.mp3"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestStore_List_FiltersByBPMAndMood(t *testing.T) {
	dir := t.TempDir()
	fast := filepath.Join(dir, "fast.mp3")
	slow := filepath.Join(dir, "slow.mp3")
	writeAudioFile(t, fast, []byte("fast"))
	writeAudioFile(t, slow, []byte("slow"))

	s := newTestStore(t)
	putEntry(t, s, fast, domain.Features{BPM: 140, Mood: domain.MoodEnergetic})
	putEntry(t, s, slow, domain.Features{BPM: 80, Mood: domain.MoodCalm})

	tracks, total, err := s.List(ListOptions{Filter: ListFilter{MinBPM: 120}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(tracks) != 1 || tracks[0].Path != fast {
		t.Errorf("expected only the fast track, got %+v (total=%d)", tracks, total)
	}
}

func TestStore_List_Pagination(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, "t"+string(rune('a'+i))+".mp3")
		writeAudioFile(t, p, []byte{byte(i)})
		putEntry(t, s, p, domain.Features{BPM: float64(100 + i)})
	}

	page1, total, err := s.List(ListOptions{PerPage: 2, Page: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 || len(page1) != 2 {
		t.Fatalf("expected 5 total, 2 on page 1, got total=%d len=%d", total, len(page1))
	}
}

func TestStore_Similar_OrdersByFeatureDistance(t *testing.T) {
	dir := t.TempDir()
	origin := filepath.Join(dir, "origin.mp3")
	near := filepath.Join(dir, "near.mp3")
	far := filepath.Join(dir, "far.mp3")
	writeAudioFile(t, origin, []byte("o"))
	writeAudioFile(t, near, []byte("n"))
	writeAudioFile(t, far, []byte("f"))

	s := newTestStore(t)
	putEntry(t, s, origin, domain.Features{BPM: 120, Energy: 0.5, Key: "Am", Camelot: "8A"})
	putEntry(t, s, near, domain.Features{BPM: 122, Energy: 0.52, Key: "Em", Camelot: "9A"})
	putEntry(t, s, far, domain.Features{BPM: 200, Energy: 0.1, Key: "F#", Camelot: "2B"})

	results, err := s.Similar(origin, 2)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Path != near {
		t.Errorf("expected %s to be the closest match, got %s", near, results[0].Path)
	}
}

func TestStore_Stats_ComputesHistograms(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "b.mp3")
	writeAudioFile(t, a, []byte("a"))
	writeAudioFile(t, b, []byte("b"))

	s := newTestStore(t)
	putEntry(t, s, a, domain.Features{BPM: 120, Mood: domain.MoodEnergetic})
	putEntry(t, s, b, domain.Features{BPM: 120, Mood: domain.MoodEnergetic})

	agg := s.Stats()
	if agg.TotalTracks != 2 {
		t.Errorf("expected 2 total tracks, got %d", agg.TotalTracks)
	}
	if agg.BPMHistogram[120] != 2 {
		t.Errorf("expected 2 tracks at BPM 120, got %d", agg.BPMHistogram[120])
	}
	if agg.MoodHistogram[string(domain.MoodEnergetic)] != 2 {
		t.Errorf("expected 2 energetic tracks, got %d", agg.MoodHistogram[string(domain.MoodEnergetic)])
	}
	if agg.CacheHitRate != 1.0 {
		t.Errorf("expected a cache hit rate of 1.0, got %f", agg.CacheHitRate)
	}
}

func TestStore_Clear_RemovesEverything(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	writeAudioFile(t, a, []byte("a"))

	s := newTestStore(t)
	putEntry(t, s, a, domain.Features{BPM: 120})

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stat, _ := os.Stat(a)
	if _, ok := s.Lookup(a, stat.Size(), stat.ModTime()); ok {
		t.Error("expected no cache hit after Clear")
	}
}

func TestStore_Cleanup_RemovesEntriesOverAgeThreshold(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	writeAudioFile(t, a, []byte("a"))

	s := newTestStore(t)
	putEntry(t, s, a, domain.Features{BPM: 120})

	removed, _, err := s.Cleanup(0, 0)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected no removals with olderThanDays=0, maxSizeGB=0, got %d", removed)
	}

	removed, freed, err := s.Cleanup(-1, 0)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	_ = freed
	if removed != 0 {
		t.Errorf("negative olderThanDays should not trigger removal (treated as disabled), got %d", removed)
	}
}

func TestStore_PersistsIndexAcrossReopen(t *testing.T) {
	dataRoot := t.TempDir()
	trackDir := t.TempDir()
	path := filepath.Join(trackDir, "a.mp3")
	writeAudioFile(t, path, []byte("a"))

	s1, err := New(dataRoot, 0, 1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	putEntry(t, s1, path, domain.Features{BPM: 128})

	s2, err := New(dataRoot, 0, 1, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stat, _ := os.Stat(path)
	if _, ok := s2.Lookup(path, stat.Size(), stat.ModTime()); !ok {
		t.Error("expected the reopened store to see the persisted index")
	}
}
