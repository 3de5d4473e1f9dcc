package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cesargomez89/navidrums/internal/domain"
)

type fakeProvider struct {
	tracks map[string]domain.Track
}

func (f *fakeProvider) GetByPath(path string) (domain.Track, error) {
	if t, ok := f.tracks[path]; ok {
		return t, nil
	}
	return domain.Track{}, os.ErrNotExist
}

func strp(s string) *string { return &s }

func samplePlaylist() (domain.Playlist, *fakeProvider) {
	title1, artist1 := "Track One", "Artist A"
	title2, artist2 := "Track Two", "Artist B"
	provider := &fakeProvider{tracks: map[string]domain.Track{
		"a.flac": {
			Path: "a.flac", Title: &title1, Artist: &artist1, DurationSeconds: 200, FileSize: 4096,
			Features: &domain.Features{BPM: 124, Key: "Am", Camelot: "8A", Energy: 0.6, Valence: 0.5, Danceability: 0.7, Mood: domain.MoodEnergetic},
		},
		"b.flac": {
			Path: "b.flac", Title: &title2, Artist: &artist2, DurationSeconds: 210, FileSize: 5120,
			Features: &domain.Features{BPM: 126, Key: "Em", Camelot: "9A", Energy: 0.65, Valence: 0.55, Danceability: 0.72, Mood: domain.MoodEnergetic},
		},
	}}
	pl := domain.Playlist{
		ID:        "pl-1",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tracks: []domain.PlaylistTrackRef{
			{Path: "a.flac", TransitionScore: 0},
			{Path: "b.flac", TransitionScore: 0.9},
		},
		Metadata: domain.PlaylistMetadata{
			TotalDuration: 410,
			AvgBPM:        125,
			PresetName:    "warmup",
		},
	}
	return pl, provider
}

func TestRender_M3U_HasExtinfPerTrack(t *testing.T) {
	pl, provider := samplePlaylist()
	e := &Exporter{Provider: provider}

	data, err := e.Render(pl, FormatM3U, true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "#EXTM3U\n") {
		t.Fatalf("expected an #EXTM3U header, got: %s", text)
	}
	if strings.Count(text, "#EXTINF:") != 2 {
		t.Errorf("expected 2 EXTINF lines, got: %s", text)
	}
	if !strings.Contains(text, "a.flac") || !strings.Contains(text, "b.flac") {
		t.Errorf("expected both track paths present, got: %s", text)
	}
}

func TestRender_M3U_NoMetadataOmitsComments(t *testing.T) {
	pl, provider := samplePlaylist()
	e := &Exporter{Provider: provider}

	data, err := e.Render(pl, FormatM3U, false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(data), "# Playlist:") {
		t.Errorf("expected no metadata comments when includeMetadata is false")
	}
}

func TestRender_JSON_RoundTrips(t *testing.T) {
	pl, provider := samplePlaylist()
	e := &Exporter{Provider: provider}

	data, err := e.Render(pl, FormatJSON, true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var decoded jsonPlaylist
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.TrackCount != 2 {
		t.Errorf("expected 2 tracks, got %d", decoded.TrackCount)
	}
	if decoded.Tracks[0].Artist != "Artist A" {
		t.Errorf("expected first track artist Artist A, got %s", decoded.Tracks[0].Artist)
	}
	if decoded.Metadata == nil {
		t.Errorf("expected metadata to be included")
	}
}

func TestRender_CSV_HasHeaderAndOneRowPerTrack(t *testing.T) {
	pl, provider := samplePlaylist()
	e := &Exporter{Provider: provider}

	data, err := e.Render(pl, FormatCSV, false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parsing csv: %v", err)
	}
	if len(rows) != 3 { // header + 2 tracks
		t.Fatalf("expected 3 rows (header + 2 tracks), got %d", len(rows))
	}
	if rows[0][0] != "index" {
		t.Errorf("expected the first column header to be 'index', got %s", rows[0][0])
	}
}

func TestRender_Rekordbox_ContainsCollectionAndPlaylistNodes(t *testing.T) {
	pl, provider := samplePlaylist()
	e := &Exporter{Provider: provider}

	data, err := e.Render(pl, FormatRekordbox, true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `<COLLECTION Entries="2">`) {
		t.Errorf("expected a COLLECTION node with 2 entries, got: %s", text)
	}
	if !strings.Contains(text, `Name="warmup"`) {
		t.Errorf("expected the playlist node to carry the preset name, got: %s", text)
	}
	if strings.Count(text, "<TRACK ") != 4 { // 2 collection entries + 2 playlist refs
		t.Errorf("expected 4 TRACK elements, got: %s", text)
	}
}

func TestRender_UnsupportedFormatFails(t *testing.T) {
	pl, provider := samplePlaylist()
	e := &Exporter{Provider: provider}

	if _, err := e.Render(pl, Format("wav"), false); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestSave_WritesFileUnderExportsDir(t *testing.T) {
	pl, provider := samplePlaylist()
	dir := t.TempDir()
	e := &Exporter{Provider: provider, ExportsDir: dir}

	path, err := e.Save(pl, FormatJSON, "", true)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("expected the export to land under %s, got %s", dir, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected the exported file to exist: %v", err)
	}
}

func TestSave_ExplicitFilenameIsHonoured(t *testing.T) {
	pl, provider := samplePlaylist()
	dir := t.TempDir()
	e := &Exporter{Provider: provider, ExportsDir: dir}

	path, err := e.Save(pl, FormatM3U, "custom.m3u", false)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "custom.m3u" {
		t.Errorf("expected filename custom.m3u, got %s", filepath.Base(path))
	}
}
