// Package export renders a generated Playlist into one of the formats
// spec.md §6 names (m3u, json, csv, rekordbox) as a pure render(playlist,
// format) -> bytes function, then optionally persists the result under the
// exports directory. Grounded on original_source/.../playlist_exporter.py's
// four _export_* methods, re-expressed idiomatically: encoding/csv and
// encoding/json for the structured formats, text/template for the
// Rekordbox XML body (mirroring the teacher's internal/storage/template.go
// templated-file-write pattern).
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/domain"
	"github.com/cesargomez89/navidrums/internal/storage"
)

// Format is one of the four supported export targets.
type Format string

const (
	FormatM3U       Format = "m3u"
	FormatJSON      Format = "json"
	FormatCSV       Format = "csv"
	FormatRekordbox Format = "rekordbox"
)

// TrackProvider resolves a playlist's path references into full track
// metadata for rendering. Kept narrow, matching the pattern used by
// internal/workerpool's CacheStore and internal/playlist's TrackProvider.
type TrackProvider interface {
	GetByPath(path string) (domain.Track, error)
}

// Exporter renders and persists playlists. ExportsDir is the writable
// directory spec.md §6 names; Render never touches disk on its own.
type Exporter struct {
	Provider   TrackProvider
	ExportsDir string
}

// resolvedTrack pairs a playlist's track reference with full metadata; any
// path the Provider can't resolve still renders, with zero-value metadata.
type resolvedTrack struct {
	domain.PlaylistTrackRef
	Track domain.Track
}

func (e *Exporter) resolve(playlist domain.Playlist) []resolvedTrack {
	out := make([]resolvedTrack, len(playlist.Tracks))
	for i, ref := range playlist.Tracks {
		t, err := e.Provider.GetByPath(ref.Path)
		if err != nil {
			t = domain.Track{Path: ref.Path}
		}
		out[i] = resolvedTrack{PlaylistTrackRef: ref, Track: t}
	}
	return out
}

// Render implements the format dispatch table spec.md §9 calls for: the
// Exporter is polymorphic over a closed set of formats, not a class
// hierarchy.
func (e *Exporter) Render(playlist domain.Playlist, format Format, includeMetadata bool) ([]byte, error) {
	tracks := e.resolve(playlist)
	switch format {
	case FormatM3U:
		return renderM3U(playlist, tracks, includeMetadata), nil
	case FormatJSON:
		return renderJSON(playlist, tracks, includeMetadata)
	case FormatCSV:
		return renderCSV(tracks)
	case FormatRekordbox:
		return renderRekordbox(playlist, tracks)
	default:
		return nil, apierr.InvalidArgument("unsupported export format %q", format)
	}
}

// Save renders the playlist and writes it under ExportsDir, generating a
// filename from the preset name and a timestamp when filename is empty,
// per original_source/.../playlist_exporter.py's export_playlist().
func (e *Exporter) Save(playlist domain.Playlist, format Format, filename string, includeMetadata bool) (string, error) {
	data, err := e.Render(playlist, format, includeMetadata)
	if err != nil {
		return "", err
	}
	if filename == "" {
		filename = fmt.Sprintf("%s_%s.%s", sanitizeFilename(playlist.Metadata.PresetName), exportTimestamp(playlist.CreatedAt), format)
	}
	path := filepath.Join(e.ExportsDir, filename)
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("writing export file: %w", err)
	}
	return path, nil
}

func exportTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("20060102_150405")
}

func sanitizeFilename(name string) string {
	if name == "" {
		return "playlist"
	}
	return storage.Sanitize(name)
}

// renderM3U writes the extended-M3U format: an #EXTM3U header, optional
// metadata comment lines, then one #EXTINF + path pair per track.
func renderM3U(playlist domain.Playlist, tracks []resolvedTrack, includeMetadata bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")

	if includeMetadata {
		fmt.Fprintf(&buf, "# Playlist: %s\n", playlist.Metadata.PresetName)
		fmt.Fprintf(&buf, "# Created: %s\n", playlist.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&buf, "# Total Duration: %.1f minutes\n", playlist.Metadata.TotalDuration/60)
		fmt.Fprintf(&buf, "# Track Count: %d\n", len(tracks))
		buf.WriteString("#\n")
	}

	for _, rt := range tracks {
		artist := "Unknown"
		if rt.Track.Artist != nil {
			artist = *rt.Track.Artist
		}
		title := rt.Track.Path
		if rt.Track.Title != nil {
			title = *rt.Track.Title
		}
		fmt.Fprintf(&buf, "#EXTINF:%d,%s - %s\n", int(rt.Track.DurationSeconds), artist, title)
		fmt.Fprintf(&buf, "%s\n", rt.Track.Path)
	}
	return buf.Bytes()
}

type jsonTrack struct {
	Index           int      `json:"index"`
	Path            string   `json:"path"`
	Title           string   `json:"title,omitempty"`
	Artist          string   `json:"artist,omitempty"`
	Album           string   `json:"album,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	TransitionScore float64  `json:"transition_score"`
	Features        *domain.Features `json:"features,omitempty"`
}

type jsonPlaylist struct {
	Version      string                  `json:"version"`
	Format       string                  `json:"format"`
	CreatedAt    time.Time               `json:"created_at"`
	Metadata     *domain.PlaylistMetadata `json:"metadata,omitempty"`
	TrackCount   int                     `json:"track_count"`
	Tracks       []jsonTrack             `json:"tracks"`
}

func renderJSON(playlist domain.Playlist, tracks []resolvedTrack, includeMetadata bool) ([]byte, error) {
	out := jsonPlaylist{
		Version:    "1.0",
		Format:     "dj-playlist-engine",
		CreatedAt:  playlist.CreatedAt,
		TrackCount: len(tracks),
		Tracks:     make([]jsonTrack, len(tracks)),
	}
	if includeMetadata {
		md := playlist.Metadata
		out.Metadata = &md
	}
	for i, rt := range tracks {
		jt := jsonTrack{
			Index:           i + 1,
			Path:            rt.Track.Path,
			DurationSeconds: rt.Track.DurationSeconds,
			TransitionScore: rt.TransitionScore,
		}
		if rt.Track.Title != nil {
			jt.Title = *rt.Track.Title
		}
		if rt.Track.Artist != nil {
			jt.Artist = *rt.Track.Artist
		}
		if rt.Track.Album != nil {
			jt.Album = *rt.Track.Album
		}
		if includeMetadata {
			jt.Features = rt.Track.Features
		}
		out.Tracks[i] = jt
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling json export: %w", err)
	}
	return data, nil
}

var csvHeader = []string{
	"index", "path", "title", "artist", "album", "duration_seconds",
	"bpm", "key", "camelot", "energy", "valence", "danceability", "mood",
}

func renderCSV(tracks []resolvedTrack) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for i, rt := range tracks {
		t := rt.Track
		title, artist, album := "", "", ""
		if t.Title != nil {
			title = *t.Title
		}
		if t.Artist != nil {
			artist = *t.Artist
		}
		if t.Album != nil {
			album = *t.Album
		}
		row := []string{
			strconv.Itoa(i + 1),
			t.Path,
			title,
			artist,
			album,
			strconv.FormatFloat(t.DurationSeconds, 'f', 0, 64),
		}
		if t.Features != nil {
			row = append(row,
				strconv.FormatFloat(t.Features.BPM, 'f', 2, 64),
				t.Features.Key,
				t.Features.Camelot,
				strconv.FormatFloat(t.Features.Energy, 'f', 3, 64),
				strconv.FormatFloat(t.Features.Valence, 'f', 3, 64),
				strconv.FormatFloat(t.Features.Danceability, 'f', 3, 64),
				string(t.Features.Mood),
			)
		} else {
			row = append(row, "0", "", "", "0", "0", "0", "")
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// rekordboxTrack and rekordboxData feed the Rekordbox XML template. Cue
// points and beatgrid are deliberately absent fields, not zeroed ones
// (spec.md §9: the source format claims cue support the extractor never
// produces; representing "absent" as 0 would misrepresent real cues).
type rekordboxTrack struct {
	TrackID    int
	Name       string
	Artist     string
	Album      string
	Size       int64
	TotalTime  int
	Bitrate    int
	SampleRate int
	AverageBPM string
	Tonality   string
	Comments   string
	Location   string
	DateAdded  string
}

type rekordboxData struct {
	PlaylistName string
	EntryCount   int
	Tracks       []rekordboxTrack
}

const rekordboxTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<DJ_PLAYLISTS Version="1.0.0">
  <PRODUCT Name="DJ Playlist Engine" Version="1.0"/>
  <COLLECTION Entries="{{.EntryCount}}">
{{- range .Tracks}}
    <TRACK TrackID="{{.TrackID}}" Name="{{.Name}}" Artist="{{.Artist}}" Album="{{.Album}}" Kind="Audio File" Size="{{.Size}}" TotalTime="{{.TotalTime}}" AverageBpm="{{.AverageBPM}}" Tonality="{{.Tonality}}" BitRate="{{.Bitrate}}" SampleRate="{{.SampleRate}}" Comments="{{.Comments}}" DateAdded="{{.DateAdded}}" Location="{{.Location}}"/>
{{- end}}
  </COLLECTION>
  <PLAYLISTS>
    <NODE Type="0" Name="ROOT" Count="1">
      <NODE Type="1" Name="{{.PlaylistName}}" Entries="{{.EntryCount}}" KeyType="0">
{{- range .Tracks}}
        <TRACK Key="{{.TrackID}}"/>
{{- end}}
      </NODE>
    </NODE>
  </PLAYLISTS>
</DJ_PLAYLISTS>
`

var rekordboxTmpl = template.Must(template.New("rekordbox").Parse(rekordboxTemplate))

func renderRekordbox(playlist domain.Playlist, tracks []resolvedTrack) ([]byte, error) {
	data := rekordboxData{
		PlaylistName: playlist.Metadata.PresetName,
		EntryCount:   len(tracks),
		Tracks:       make([]rekordboxTrack, len(tracks)),
	}
	now := playlist.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	for i, rt := range tracks {
		t := rt.Track
		name, artist, album := t.Path, "", ""
		if t.Title != nil {
			name = *t.Title
		}
		if t.Artist != nil {
			artist = *t.Artist
		}
		if t.Album != nil {
			album = *t.Album
		}
		bpm, tonality, comments := "0.00", "", ""
		if t.Features != nil {
			bpm = strconv.FormatFloat(t.Features.BPM, 'f', 2, 64)
			tonality = t.Features.Key
			comments = fmt.Sprintf("Energy: %.2f, Valence: %.2f", t.Features.Energy, t.Features.Valence)
		}
		data.Tracks[i] = rekordboxTrack{
			TrackID:    i + 1,
			Name:       xmlEscape(name),
			Artist:     xmlEscape(artist),
			Album:      xmlEscape(album),
			Size:       t.FileSize,
			TotalTime:  int(t.DurationSeconds),
			Bitrate:    t.Bitrate,
			SampleRate: t.SampleRate,
			AverageBPM: bpm,
			Tonality:   tonality,
			Comments:   xmlEscape(comments),
			Location:   "file://localhost/" + strings.ReplaceAll(t.Path, "\\", "/"),
			DateAdded:  now.Format("2006-01-02"),
		}
	}

	var buf bytes.Buffer
	if err := rekordboxTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing rekordbox template: %w", err)
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
