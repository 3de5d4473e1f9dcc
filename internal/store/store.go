// Package store implements the content-addressed cache and track query
// surface of spec.md §4.5, persisted on disk per spec.md §6: a path index
// at cache/index.json and one CacheEntry file per content_id under
// cache/by_content/<cid[0:2]>/<cid>.json. Atomic writes and directory
// handling are grounded on the teacher's internal/storage helpers; unlike
// the teacher (sqlite via repository/schema.go), there is no database here —
// the spec's on-disk layout is plain JSON, so this package owns its own
// persistence instead of wiring sqlx/modernc.org/sqlite (see DESIGN.md).
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/camelot"
	"github.com/cesargomez89/navidrums/internal/domain"
	"github.com/cesargomez89/navidrums/internal/logger"
	"github.com/cesargomez89/navidrums/internal/storage"
	"github.com/cesargomez89/navidrums/internal/tags"
)

const indexFileName = "index.json"
const byContentDirName = "by_content"

// Store is the single in-process owner of the on-disk cache. A single
// RWMutex guards the in-memory path index (spec.md §4.5: "a single
// reader-writer lock protects the in-memory indexes"); per-content_id
// writes are additionally serialised by a keyed mutex so that reads of
// features by path never block on writes to a different path.
type Store struct {
	cacheDir        string
	analysisVersion int
	ttl             time.Duration
	log             *logger.Logger

	mu        sync.RWMutex
	pathIndex map[string]domain.PathIndexEntry

	writeLocks *keyedMutex
}

// Aggregates is the result of Stats(), spec.md §4.5.
type Aggregates struct {
	TotalTracks   int             `json:"total_tracks"`
	BPMHistogram  map[int]int     `json:"bpm_histogram"`
	MoodHistogram map[string]int  `json:"mood_histogram"`
	CacheHitRate  float64         `json:"cache_hit_rate"`

	hits, misses int
}

// New opens (or initialises) the on-disk cache rooted at dataRoot/cache.
func New(dataRoot string, ttl time.Duration, analysisVersion int, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Default()
	}
	s := &Store{
		cacheDir:        filepath.Join(dataRoot, "cache"),
		analysisVersion: analysisVersion,
		ttl:             ttl,
		log:             log.WithComponent("store"),
		pathIndex:       make(map[string]domain.PathIndexEntry),
		writeLocks:      newKeyedMutex(),
	}
	if err := storage.EnsureDir(s.cacheDir); err != nil {
		return nil, apierr.IOError("failed to create cache directory", err)
	}
	if err := storage.EnsureDir(filepath.Join(s.cacheDir, byContentDirName)); err != nil {
		return nil, apierr.IOError("failed to create content cache directory", err)
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.cacheDir, indexFileName)
}

func (s *Store) entryPath(contentID string) string {
	prefix := contentID
	if len(prefix) > 2 {
		prefix = contentID[:2]
	}
	return filepath.Join(s.cacheDir, byContentDirName, prefix, contentID+".json")
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apierr.IOError("failed to read cache index", err)
	}
	var idx map[string]domain.PathIndexEntry
	if err := json.Unmarshal(data, &idx); err != nil {
		s.log.Warn("cache index is corrupt, starting fresh", "error", err)
		return nil
	}
	s.mu.Lock()
	s.pathIndex = idx
	s.mu.Unlock()
	return nil
}

// Flush persists the in-memory path index, used at shutdown per spec.md
// §6 ("flushes the cache index within 5 s of a signal").
func (s *Store) Flush() error {
	s.mu.RLock()
	snapshot := make(map[string]domain.PathIndexEntry, len(s.pathIndex))
	for k, v := range s.pathIndex {
		snapshot[k] = v
	}
	s.mu.RUnlock()
	return s.persistIndex(snapshot)
}

func (s *Store) persistIndex(idx map[string]domain.PathIndexEntry) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return apierr.Internal("failed to marshal cache index", err)
	}
	if err := storage.WriteFileAtomic(s.indexPath(), data); err != nil {
		return apierr.IOError("failed to write cache index", err)
	}
	return nil
}

// Lookup is the fast-reject path used by the worker pool before extraction:
// it checks the path index without touching the by_content files' hash,
// and loads the cache entry only when size/mtime agree and the analysis
// version is current. Satisfies workerpool.CacheStore.
func (s *Store) Lookup(path string, size int64, mtime time.Time) (domain.CacheEntry, bool) {
	s.mu.RLock()
	pe, ok := s.pathIndex[path]
	s.mu.RUnlock()
	if !ok {
		return domain.CacheEntry{}, false
	}
	if pe.FileSize != size || !pe.MTime.Equal(mtime) || pe.AnalysisVersion != s.analysisVersion {
		return domain.CacheEntry{}, false
	}
	entry, err := s.readEntry(pe.ContentID)
	if err != nil {
		return domain.CacheEntry{}, false
	}
	if time.Since(entry.AnalysedAt) > s.ttl && s.ttl > 0 {
		return domain.CacheEntry{}, false
	}
	return entry, true
}

// readEntry loads and validates a CacheEntry. camelot and key are two views
// of one property (spec.md §3); a stored entry where they disagree is not a
// miss to silently re-derive, it is a fatal store error.
func (s *Store) readEntry(contentID string) (domain.CacheEntry, error) {
	data, err := os.ReadFile(s.entryPath(contentID))
	if err != nil {
		return domain.CacheEntry{}, err
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.CacheEntry{}, err
	}
	if err := validateCamelot(entry.Features); err != nil {
		return domain.CacheEntry{}, apierr.Internal("cache entry "+contentID+" has inconsistent key/camelot", err)
	}
	return entry, nil
}

// validateCamelot checks the t.camelot == KeyToCamelot(t.key) testable
// property spec.md §8 mandates. Features carrying neither a key nor a
// camelot code pass; features carrying only one of the two are rejected.
func validateCamelot(f domain.Features) error {
	if f.Key == "" && f.Camelot == "" {
		return nil
	}
	want, err := camelot.KeyToCamelot(f.Key)
	if err != nil {
		return err
	}
	if want != f.Camelot {
		return fmt.Errorf("key %s maps to camelot %s but entry has %s", f.Key, want, f.Camelot)
	}
	return nil
}

// Put writes a freshly analysed entry: the CacheEntry file first (atomic
// rename), then the path index, both inside the per-content_id critical
// section. Satisfies workerpool.CacheStore.
func (s *Store) Put(entry domain.CacheEntry) error {
	unlock := s.writeLocks.Lock(entry.ContentID)
	defer unlock()

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return apierr.Internal("failed to marshal cache entry", err)
	}
	if err := storage.WriteFileAtomic(s.entryPath(entry.ContentID), data); err != nil {
		return apierr.IOError("failed to write cache entry for "+entry.ContentID, err)
	}

	s.mu.Lock()
	s.pathIndex[entry.PathAtWrite] = domain.PathIndexEntry{
		ContentID:       entry.ContentID,
		FileSize:        entry.FileSize,
		MTime:           entry.MTime,
		AnalysisVersion: entry.AnalysisVersion,
	}
	snapshot := make(map[string]domain.PathIndexEntry, len(s.pathIndex))
	for k, v := range s.pathIndex {
		snapshot[k] = v
	}
	s.mu.Unlock()

	return s.persistIndex(snapshot)
}

// GetByPath implements the full read path of spec.md §4.5, including the
// re-hash fallback when the fast-reject check misses.
func (s *Store) GetByPath(path string) (domain.Track, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return domain.Track{}, apierr.NotFound("track %s not found: %v", path, err)
	}

	s.mu.RLock()
	pe, hit := s.pathIndex[path]
	s.mu.RUnlock()

	var entry domain.CacheEntry
	if hit && pe.FileSize == stat.Size() && pe.MTime.Equal(stat.ModTime()) && pe.AnalysisVersion == s.analysisVersion {
		entry, err = s.readEntry(pe.ContentID)
		if err != nil {
			hit = false
		}
	} else {
		hit = false
	}

	if !hit {
		contentID, err := storage.HashFile(path)
		if err != nil {
			return domain.Track{}, apierr.IOError("failed to hash "+path, err)
		}
		s.mu.Lock()
		s.pathIndex[path] = domain.PathIndexEntry{
			ContentID:       contentID,
			FileSize:        stat.Size(),
			MTime:           stat.ModTime(),
			AnalysisVersion: s.analysisVersion,
		}
		s.mu.Unlock()

		entry, err = s.readEntry(contentID)
		if err != nil {
			return s.trackFromStat(path, stat, nil), nil
		}
	}

	return s.trackFromStat(path, stat, &entry), nil
}

func (s *Store) trackFromStat(path string, stat os.FileInfo, entry *domain.CacheEntry) domain.Track {
	t := domain.Track{
		Path:            path,
		FileSize:        stat.Size(),
		MTime:           stat.ModTime(),
		Format:          strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		DurationSeconds: 0,
	}
	if info, err := tags.Probe(path); err == nil {
		t.Format = info.Format
		t.Bitrate = info.Bitrate
		t.SampleRate = info.SampleRate
		t.DurationSeconds = info.DurationSeconds
		t.Title = info.Title
		t.Artist = info.Artist
		t.Album = info.Album
		t.Year = info.Year
	}
	if entry != nil {
		t.ContentID = entry.ContentID
		features := entry.Features
		t.Features = &features
		analysedAt := entry.AnalysedAt
		t.AnalysedAt = &analysedAt
	}
	return t
}

// ListFilter narrows List() per spec.md §4.5.
type ListFilter struct {
	MinBPM, MaxBPM     float64
	Keys               []string // accepts either musical key or camelot notation
	Moods              []domain.Mood
	MinEnergy, MaxEnergy float64
	Search             string // substring match on artist, title, or filename
}

type SortField string

const (
	SortByArtist SortField = "artist"
	SortByTitle  SortField = "title"
	SortByPath   SortField = "path"
	SortByBPM    SortField = "bpm"
	SortByEnergy SortField = "energy"
)

type ListOptions struct {
	Filter   ListFilter
	SortBy   SortField
	SortDesc bool
	Page     int
	PerPage  int
}

// List returns the filtered, deterministically sorted, paginated track set.
func (s *Store) List(opts ListOptions) ([]domain.Track, int, error) {
	paths := s.allPaths()
	tracks := make([]domain.Track, 0, len(paths))
	for _, p := range paths {
		t, err := s.GetByPath(p)
		if err != nil {
			continue
		}
		if matchesFilter(t, opts.Filter) {
			tracks = append(tracks, t)
		}
	}

	sortTracks(tracks, opts.SortBy, opts.SortDesc)

	total := len(tracks)
	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	start := (page - 1) * perPage
	if start >= total {
		return []domain.Track{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return tracks[start:end], total, nil
}

func (s *Store) allPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.pathIndex))
	for p := range s.pathIndex {
		paths = append(paths, p)
	}
	return paths
}

func matchesFilter(t domain.Track, f ListFilter) bool {
	if t.Features != nil {
		if f.MinBPM > 0 && t.Features.BPM < f.MinBPM {
			return false
		}
		if f.MaxBPM > 0 && t.Features.BPM > f.MaxBPM {
			return false
		}
		if f.MinEnergy > 0 && t.Features.Energy < f.MinEnergy {
			return false
		}
		if f.MaxEnergy > 0 && t.Features.Energy > f.MaxEnergy {
			return false
		}
		if len(f.Keys) > 0 && !containsFold(f.Keys, t.Features.Key) && !containsFold(f.Keys, t.Features.Camelot) {
			return false
		}
		if len(f.Moods) > 0 {
			found := false
			for _, m := range f.Moods {
				if m == t.Features.Mood {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	} else if len(f.Keys) > 0 || len(f.Moods) > 0 || f.MinBPM > 0 || f.MaxBPM > 0 {
		return false
	}

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystack := strings.ToLower(filepath.Base(t.Path))
		if t.Title != nil {
			haystack += " " + strings.ToLower(*t.Title)
		}
		if t.Artist != nil {
			haystack += " " + strings.ToLower(*t.Artist)
		}
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func sortTracks(tracks []domain.Track, by SortField, desc bool) {
	less := func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		switch by {
		case SortByBPM:
			va, vb := 0.0, 0.0
			if a.Features != nil {
				va = a.Features.BPM
			}
			if b.Features != nil {
				vb = b.Features.BPM
			}
			return va < vb
		case SortByEnergy:
			va, vb := 0.0, 0.0
			if a.Features != nil {
				va = a.Features.Energy
			}
			if b.Features != nil {
				vb = b.Features.Energy
			}
			return va < vb
		case SortByTitle:
			return strVal(a.Title) < strVal(b.Title)
		case SortByPath:
			return a.Path < b.Path
		default: // SortByArtist, the default per spec.md §4.5's (artist, title, path)
			sa, sb := strVal(a.Artist), strVal(b.Artist)
			if sa != sb {
				return sa < sb
			}
			sta, stb := strVal(a.Title), strVal(b.Title)
			if sta != stb {
				return sta < stb
			}
			return a.Path < b.Path
		}
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SimilarResult pairs a candidate track with its distance to the query
// track, for callers that need to apply a similarity threshold (spec.md §6's
// `similarity_threshold` query parameter on /api/tracks/search/similar).
type SimilarResult struct {
	Track    domain.Track
	Distance float64
}

// Similar implements the k-nearest query of spec.md §4.5 over a weighted
// distance on (bpm_norm, energy, valence, danceability, mode, key_circle).
func (s *Store) Similar(path string, k int) ([]domain.Track, error) {
	results, err := s.SimilarWithDistance(path, k)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Track, 0, len(results))
	for _, r := range results {
		out = append(out, r.Track)
	}
	return out, nil
}

// SimilarWithDistance is the same k-nearest query as Similar but also
// exposes each result's distance, so a similarity threshold can be applied
// by the caller (1/(1+distance), monotonically decreasing in distance).
func (s *Store) SimilarWithDistance(path string, k int) ([]SimilarResult, error) {
	origin, err := s.GetByPath(path)
	if err != nil {
		return nil, err
	}
	if origin.Features == nil {
		return nil, apierr.Conflict("track %s has not been analysed", path)
	}

	var candidates []SimilarResult
	for _, p := range s.allPaths() {
		if p == path {
			continue
		}
		t, err := s.GetByPath(p)
		if err != nil || t.Features == nil {
			continue
		}
		candidates = append(candidates, SimilarResult{Track: t, Distance: featureDistance(*origin.Features, *t.Features)})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Distance < candidates[j].Distance })

	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k], nil
}

func featureDistance(a, b domain.Features) float64 {
	bpmNormA, bpmNormB := normalizeBPM(a.BPM), normalizeBPM(b.BPM)
	modeA, modeB := modeOf(a.Key), modeOf(b.Key)

	d := 0.0
	d += sq(bpmNormA - bpmNormB)
	d += sq(a.Energy - b.Energy)
	d += sq(a.Valence - b.Valence)
	d += sq(a.Danceability - b.Danceability)
	d += sq(modeA - modeB)

	posA, okA := camelot.WheelPosition(a.Camelot)
	posB, okB := camelot.WheelPosition(b.Camelot)
	if okA && okB {
		diff := math.Abs(posA - posB)
		if diff > 6 {
			diff = 12 - diff
		}
		d += sq(diff / 6.0)
	}

	return math.Sqrt(d)
}

func normalizeBPM(bpm float64) float64 {
	v := (bpm - 40.0) / 200.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func modeOf(key string) float64 {
	if strings.HasSuffix(key, "m") {
		return 0
	}
	return 1
}

func sq(v float64) float64 { return v * v }

// Stats implements the Aggregates query of spec.md §4.5.
func (s *Store) Stats() Aggregates {
	agg := Aggregates{BPMHistogram: make(map[int]int), MoodHistogram: make(map[string]int)}
	for _, p := range s.allPaths() {
		t, err := s.GetByPath(p)
		if err != nil {
			continue
		}
		agg.TotalTracks++
		if t.Features != nil {
			agg.hits++
			agg.BPMHistogram[int(math.Round(t.Features.BPM))]++
			agg.MoodHistogram[string(t.Features.Mood)]++
		} else {
			agg.misses++
		}
	}
	if agg.hits+agg.misses > 0 {
		agg.CacheHitRate = float64(agg.hits) / float64(agg.hits+agg.misses)
	}
	return agg
}

// Cleanup removes cache entries older than olderThanDays (if >0) and, when
// maxSizeGB is positive and the content cache exceeds it, evicts the oldest
// entries first until the budget is met. Returns the number of entries
// removed and the bytes freed.
func (s *Store) Cleanup(olderThanDays int, maxSizeGB float64) (removed int, freedBytes int64, err error) {
	type candidate struct {
		contentID  string
		path       string
		size       int64
		analysedAt time.Time
	}

	s.mu.RLock()
	var all []candidate
	for path, pe := range s.pathIndex {
		fi, statErr := os.Stat(s.entryPath(pe.ContentID))
		size := int64(0)
		analysedAt := time.Time{}
		if statErr == nil {
			size = fi.Size()
			analysedAt = fi.ModTime()
		}
		all = append(all, candidate{contentID: pe.ContentID, path: path, size: size, analysedAt: analysedAt})
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].analysedAt.Before(all[j].analysedAt) })

	var totalSize int64
	for _, c := range all {
		totalSize += c.size
	}

	toRemove := make(map[string]bool)
	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, c := range all {
			if !c.analysedAt.IsZero() && c.analysedAt.Before(cutoff) {
				toRemove[c.path] = true
			}
		}
	}
	if maxSizeGB > 0 {
		budget := int64(maxSizeGB * 1024 * 1024 * 1024)
		running := totalSize
		for _, c := range all {
			if running <= budget {
				break
			}
			if toRemove[c.path] {
				continue
			}
			toRemove[c.path] = true
			running -= c.size
		}
	}

	s.mu.Lock()
	for _, c := range all {
		if !toRemove[c.path] {
			continue
		}
		delete(s.pathIndex, c.path)
		removed++
		freedBytes += c.size
	}
	snapshot := make(map[string]domain.PathIndexEntry, len(s.pathIndex))
	for k, v := range s.pathIndex {
		snapshot[k] = v
	}
	s.mu.Unlock()

	for _, c := range all {
		if toRemove[c.path] {
			os.Remove(s.entryPath(c.contentID))
		}
	}

	if err := s.persistIndex(snapshot); err != nil {
		return removed, freedBytes, err
	}
	return removed, freedBytes, nil
}

// Clear empties the entire cache: every content entry and the path index.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.pathIndex = make(map[string]domain.PathIndexEntry)
	s.mu.Unlock()

	byContent := filepath.Join(s.cacheDir, byContentDirName)
	entries, err := os.ReadDir(byContent)
	if err == nil {
		for _, e := range entries {
			os.RemoveAll(filepath.Join(byContent, e.Name()))
		}
	}
	return s.persistIndex(map[string]domain.PathIndexEntry{})
}
