// Package tags reads embedded container metadata from audio files. It is
// the read-side counterpart of the teacher's internal/tagging package
// (which only ever wrote tags for downloaded files); here the same
// libraries — github.com/bogem/id3v2/v2 for MP3 and github.com/mewkiz/flac
// for FLAC — are used to probe existing library files during a scan.
package tags

import (
	"os"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// Info is the embedded-tag and container probe result for one file.
type Info struct {
	Format          string
	DurationSeconds float64
	Bitrate         int
	SampleRate      int

	Title  *string
	Artist *string
	Album  *string
	Year   *int
}

func ptr[T any](v T) *T { return &v }

// Probe reads container-level metadata for path. FLAC gets duration,
// sample rate and tag extraction, MP3 gets ID3v2 tag extraction only (no
// duration); other supported extensions return a minimal Info carrying only Format,
// since the corpus has no reader for them.
func Probe(path string) (*Info, error) {
	ext := strings.ToLower(path[strings.LastIndex(path, ".")+1:])

	switch ext {
	case "flac":
		return probeFLAC(path)
	case "mp3":
		return probeMP3(path)
	default:
		return &Info{Format: ext}, nil
	}
}

func probeFLAC(path string) (*Info, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, apierr.CorruptFile("failed to parse FLAC metadata for %s: %v", path, err)
	}
	defer stream.Close()

	info := &Info{Format: "flac"}
	if stream.Info != nil && stream.Info.SampleRate > 0 {
		info.SampleRate = int(stream.Info.SampleRate)
		info.DurationSeconds = float64(stream.Info.NSamples) / float64(stream.Info.SampleRate)
		info.Bitrate = estimateBitrate(path, info.DurationSeconds)
	}

	for _, block := range stream.Blocks {
		if block.Type != meta.TypeVorbisComment {
			continue
		}
		vc, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		applyVorbisTags(info, vc)
	}

	return info, nil
}

func applyVorbisTags(info *Info, vc *meta.VorbisComment) {
	for _, kv := range vc.Tags {
		switch strings.ToUpper(kv[0]) {
		case "TITLE":
			info.Title = ptr(kv[1])
		case "ARTIST":
			info.Artist = ptr(kv[1])
		case "ALBUM":
			info.Album = ptr(kv[1])
		case "DATE":
			if y, err := strconv.Atoi(kv[1][:minInt(4, len(kv[1]))]); err == nil {
				info.Year = ptr(y)
			}
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func probeMP3(path string) (*Info, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, apierr.CorruptFile("failed to parse ID3v2 tags for %s: %v", path, err)
	}
	defer tag.Close()

	info := &Info{Format: "mp3"}
	if title := tag.Title(); title != "" {
		info.Title = ptr(title)
	}
	if artist := tag.Artist(); artist != "" {
		info.Artist = ptr(artist)
	}
	if album := tag.Album(); album != "" {
		info.Album = ptr(album)
	}
	if year := tag.Year(); year != "" {
		if y, err := strconv.Atoi(year[:minInt(4, len(year))]); err == nil {
			info.Year = ptr(y)
		}
	}
	return info, nil
}

// estimateBitrate derives an approximate bitrate (kbps) from file size and
// duration when the container doesn't expose one directly.
func estimateBitrate(path string, durationSeconds float64) int {
	if durationSeconds <= 0 {
		return 0
	}
	stat, err := os.Stat(path)
	if err != nil || stat.Size() == 0 {
		return 0
	}
	return int(float64(stat.Size()*8) / durationSeconds / 1000)
}
