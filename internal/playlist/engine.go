// Package playlist implements the PlaylistEngine of spec.md §4.6: bounded
// beam search over a candidate pool, scored by a weighted mix of harmonic
// compatibility, BPM continuity, target energy curve fit, mood coherence,
// and freshness, with an optional reproducible "surprise" perturbation.
// Grounded on original_source/.../playlist_engine.py's scoring primitives
// (camelot matrix, mood matrix, energy-flow optimisation), restructured
// around an explicit beam instead of the original's greedy next-best walk.
package playlist

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/camelot"
	"github.com/cesargomez89/navidrums/internal/constants"
	"github.com/cesargomez89/navidrums/internal/domain"
	"github.com/cesargomez89/navidrums/internal/logger"
	"github.com/cesargomez89/navidrums/internal/store"
	"github.com/cesargomez89/navidrums/internal/taskid"
	"github.com/cesargomez89/navidrums/internal/taskmanager"
)

// TrackProvider is the subset of internal/store's Store the engine needs
// to resolve a candidate pool, kept narrow for testability.
type TrackProvider interface {
	GetByPath(path string) (domain.Track, error)
	List(opts store.ListOptions) ([]domain.Track, int, error)
}

// Request mirrors the POST /api/playlists/generate body of spec.md §6.
type Request struct {
	TrackFilePaths        []string
	SeedTrackPath         string
	TargetDurationMinutes int
	Surprise              float64
}

// Engine is the constructed dependency set the RunFunc closure needs.
type Engine struct {
	Provider  TrackProvider
	BeamWidth int
	Logger    *logger.Logger
}

// candidate is the engine's working representation of an analysed track.
type candidate struct {
	path            string
	artist          string
	bpm             float64
	energy          float64
	valence         float64
	camelot         string
	mood            domain.Mood
	durationSeconds float64
}

func newCandidate(t domain.Track) (candidate, bool) {
	if t.Features == nil {
		return candidate{}, false
	}
	artist := ""
	if t.Artist != nil {
		artist = *t.Artist
	}
	return candidate{
		path:            t.Path,
		artist:          artist,
		bpm:             t.Features.BPM,
		energy:          t.Features.Energy,
		valence:         t.Features.Valence,
		camelot:         t.Features.Camelot,
		mood:            t.Features.Mood,
		durationSeconds: t.DurationSeconds,
	}, true
}

// partial is one beam entry: a candidate playlist under construction.
type partial struct {
	tracks   []candidate
	scores   []float64 // transition score per step, 0 for the first track
	duration float64
	used     map[string]bool
}

func (p partial) clone() partial {
	np := partial{
		tracks:   append([]candidate(nil), p.tracks...),
		scores:   append([]float64(nil), p.scores...),
		duration: p.duration,
		used:     make(map[string]bool, len(p.used)),
	}
	for k, v := range p.used {
		np.used[k] = v
	}
	return np
}

func (p partial) cumulativeScore() float64 {
	total := 0.0
	for _, s := range p.scores {
		total += s
	}
	return total
}

// Generate runs the candidate-filter + beam-search pipeline described in
// spec.md §4.6 against a resolved preset and returns the finished Playlist.
func (e *Engine) Generate(ctx context.Context, taskID string, req Request, preset domain.Preset) (domain.Playlist, error) {
	pool, err := e.loadCandidates(req)
	if err != nil {
		return domain.Playlist{}, err
	}

	pool = filterByPreset(pool, preset)
	if len(pool) == 0 {
		return emptyPlaylist(preset), nil
	}

	var seed *candidate
	if req.SeedTrackPath != "" {
		for i := range pool {
			if pool[i].path == req.SeedTrackPath {
				seed = &pool[i]
				break
			}
		}
		if seed == nil {
			return domain.Playlist{}, apierr.InvalidArgument("seed track %s is not in the candidate pool", req.SeedTrackPath)
		}
	}

	curve := resolveCurve(preset.TargetEnergyCurve, string(preset.NamedCurve))
	weights := preset.Weights
	if weights == [5]float64{} {
		weights = domain.DefaultWeights()
	}

	targetDuration := float64(req.TargetDurationMinutes) * 60
	beamWidth := e.BeamWidth
	if beamWidth <= 0 {
		beamWidth = constants.DefaultBeamWidth
	}

	beam := []partial{e.seedBeam(pool, seed, curve)}
	truncated := targetDuration > 0

	step := 0
	for {
		select {
		case <-ctx.Done():
			truncated = true
			goto finish
		default:
		}

		if targetDuration > 0 && beamReachedTarget(beam, targetDuration) {
			truncated = false
			break
		}

		rnd := stepRand(taskID, step)
		next, extended := expandBeam(beam, pool, preset, curve, weights, req.Surprise, rnd, targetDuration)
		if len(next) == 0 || !extended {
			break
		}

		sort.SliceStable(next, func(i, j int) bool { return lessPartial(next[j], next[i]) })
		if len(next) > beamWidth {
			next = next[:beamWidth]
		}
		beam = next
		step++
	}

finish:
	best := bestPartial(beam)
	return buildPlaylist(best, preset, curve, truncated), nil
}

// RunFunc builds a taskmanager.RunFunc that generates a playlist against
// the given preset, mirroring internal/analysis's Pipeline.RunFunc shape.
func (e *Engine) RunFunc(req Request, preset domain.Preset) taskmanager.RunFunc {
	return func(h *taskmanager.Handle) (interface{}, error) {
		pl, err := e.Generate(h.Context(), h.TaskID(), req, preset)
		if err != nil {
			return nil, err
		}
		return pl, nil
	}
}

func (e *Engine) loadCandidates(req Request) ([]candidate, error) {
	var tracks []domain.Track

	if len(req.TrackFilePaths) > 0 {
		for _, p := range req.TrackFilePaths {
			t, err := e.Provider.GetByPath(p)
			if err != nil {
				continue
			}
			tracks = append(tracks, t)
		}
	} else {
		const pageSize = 1000
		for page := 1; ; page++ {
			batch, total, err := e.Provider.List(store.ListOptions{Page: page, PerPage: pageSize})
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, batch...)
			if page*pageSize >= total || len(batch) == 0 {
				break
			}
		}
	}

	pool := make([]candidate, 0, len(tracks))
	for _, t := range tracks {
		if c, ok := newCandidate(t); ok {
			pool = append(pool, c)
		}
	}
	return pool, nil
}

func filterByPreset(pool []candidate, preset domain.Preset) []candidate {
	out := pool[:0:0]
	for _, c := range pool {
		if preset.BPMRange[1] > 0 && (c.bpm < preset.BPMRange[0] || c.bpm > preset.BPMRange[1]) {
			continue
		}
		if preset.EnergyRange != [2]float64{} && (c.energy < preset.EnergyRange[0] || c.energy > preset.EnergyRange[1]) {
			continue
		}
		if preset.MinTrackDuration > 0 && c.durationSeconds > 0 && c.durationSeconds < preset.MinTrackDuration {
			continue
		}
		if preset.MaxTrackDuration > 0 && c.durationSeconds > 0 && c.durationSeconds > preset.MaxTrackDuration {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (e *Engine) seedBeam(pool []candidate, seed *candidate, curve [curveBuckets]float64) partial {
	p := partial{used: make(map[string]bool)}
	if seed != nil {
		p.tracks = []candidate{*seed}
		p.scores = []float64{0}
		p.duration = seed.durationSeconds
		p.used[seed.path] = true
		return p
	}

	best := pool[0]
	bestScore := -1.0
	for _, c := range pool {
		score := 1 - absf(c.energy-curve[0])
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	p.tracks = []candidate{best}
	p.scores = []float64{0}
	p.duration = best.durationSeconds
	p.used[best.path] = true
	return p
}

func beamReachedTarget(beam []partial, target float64) bool {
	for _, p := range beam {
		if p.duration < target {
			return false
		}
	}
	return true
}

// expandBeam extends every partial by each feasible candidate. Partials that
// cannot be extended are carried over unchanged; the returned bool reports
// whether any partial was extended at all.
func expandBeam(beam []partial, pool []candidate, preset domain.Preset, curve [curveBuckets]float64, weights [5]float64, surprise float64, rnd *rand.Rand, targetDuration float64) ([]partial, bool) {
	var next []partial
	anyExtended := false
	for _, p := range beam {
		if targetDuration > 0 && p.duration >= targetDuration {
			next = append(next, p)
			continue
		}

		extended := false
		for _, c := range pool {
			last := p.tracks[len(p.tracks)-1]
			if !feasible(p, c, preset, last) {
				continue
			}
			position := float64(len(p.tracks))
			total := totalPlaylistLength(pool, targetDuration)
			score := transitionScore(last, c, position, total, curve, weights, preset)
			if surprise > 0 {
				score = (1-surprise)*score + surprise*rnd.Float64()
			}

			np := p.clone()
			np.tracks = append(np.tracks, c)
			np.scores = append(np.scores, score)
			np.duration += c.durationSeconds
			np.used[c.path] = true
			next = append(next, np)
			extended = true
		}
		if !extended {
			next = append(next, p)
		} else {
			anyExtended = true
		}
	}
	return dedupeBeam(next), anyExtended
}

// dedupeBeam collapses beam entries that happen to have selected the exact
// same track sequence, keeping the highest-scoring copy.
func dedupeBeam(beam []partial) []partial {
	best := make(map[string]partial, len(beam))
	order := make([]string, 0, len(beam))
	for _, p := range beam {
		key := sequenceKey(p)
		if existing, ok := best[key]; !ok || p.cumulativeScore() > existing.cumulativeScore() {
			if _, seen := best[key]; !seen {
				order = append(order, key)
			}
			best[key] = p
		}
	}
	out := make([]partial, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func sequenceKey(p partial) string {
	paths := make([]string, len(p.tracks))
	for i, c := range p.tracks {
		paths[i] = c.path
	}
	return strings.Join(paths, "\x00")
}

// feasible implements freshness(v,history) == 0 exclusions plus the hard
// max_bpm_jump constraint from spec.md §8's playlist invariant (a candidate
// that would blow the jump budget is never a legal extension, not merely
// low-scoring).
func feasible(p partial, c candidate, preset domain.Preset, last candidate) bool {
	if p.used[c.path] {
		return false
	}
	if preset.MaxBPMJump > 0 && absf(last.bpm-c.bpm) > preset.MaxBPMJump {
		return false
	}
	window := preset.AvoidSameArtistWindow
	if window > len(p.tracks) {
		window = len(p.tracks)
	}
	for i := len(p.tracks) - window; i < len(p.tracks); i++ {
		if i < 0 {
			continue
		}
		if p.tracks[i].artist != "" && p.tracks[i].artist == c.artist {
			return false
		}
	}
	return true
}

// totalPlaylistLength approximates "N" (total steps) for the energy-curve
// position term (spec.md §4.6: position / N * 16). With a target duration
// and known track durations, N is the target divided by the pool's mean
// track duration; otherwise N is the pool size.
func totalPlaylistLength(pool []candidate, targetDuration float64) float64 {
	n := float64(len(pool))
	if targetDuration > 0 {
		sum := 0.0
		for _, c := range pool {
			sum += c.durationSeconds
		}
		if sum > 0 {
			return targetDuration / (sum / n)
		}
	}
	return n
}

// transitionScore implements the weighted sum of spec.md §4.6's five terms.
func transitionScore(u, v candidate, position, total float64, curve [curveBuckets]float64, weights [5]float64, preset domain.Preset) float64 {
	harmonyScore := harmonyOf(u.camelot, v.camelot) * preset.HarmonyStrictness
	bpmScore := bpmOf(u.bpm, v.bpm, preset.MaxBPMJump)
	energyScore := energyOf(v.energy, position, total, curve)
	moodScore := moodOf(u.mood, v.mood, preset.MoodConsistency)
	freshnessScore := 1.0 // feasible() already excludes infeasible candidates

	return weights[0]*harmonyScore +
		weights[1]*bpmScore +
		weights[2]*energyScore +
		weights[3]*moodScore +
		weights[4]*freshnessScore
}

func harmonyOf(a, b string) float64 {
	switch camelot.HarmonicDistance(a, b) {
	case 0:
		return 1.0
	case 2:
		return 0.6
	default:
		return 0.0
	}
}

func bpmOf(a, b, maxBPMJump float64) float64 {
	if maxBPMJump <= 0 {
		maxBPMJump = 8.0
	}
	v := 1 - absf(a-b)/maxBPMJump
	if v < 0 {
		return 0
	}
	return v
}

func energyOf(energy, position, total float64, curve [curveBuckets]float64) float64 {
	idx := 0
	if total > 0 {
		idx = int(position / total * curveBuckets)
	}
	if idx >= curveBuckets {
		idx = curveBuckets - 1
	}
	if idx < 0 {
		idx = 0
	}
	return 1 - absf(energy-curve[idx])
}

func moodOf(a, b domain.Mood, moodConsistency float64) float64 {
	if a == b {
		return 1
	}
	return 1 - moodConsistency*moodDistance(a, b)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// lessPartial implements the tie-break order of spec.md §4.6: higher
// cumulative score wins; ties broken by smaller last-step BPM jump, then
// larger last-step harmony, then lexicographically smaller last path.
func lessPartial(a, b partial) bool {
	sa, sb := a.cumulativeScore(), b.cumulativeScore()
	if sa != sb {
		return sa < sb
	}
	if len(a.tracks) < 2 || len(b.tracks) < 2 {
		return len(a.tracks) < len(b.tracks)
	}
	aLast, aPrev := a.tracks[len(a.tracks)-1], a.tracks[len(a.tracks)-2]
	bLast, bPrev := b.tracks[len(b.tracks)-1], b.tracks[len(b.tracks)-2]

	aBPMDiff := absf(aLast.bpm - aPrev.bpm)
	bBPMDiff := absf(bLast.bpm - bPrev.bpm)
	if aBPMDiff != bBPMDiff {
		return aBPMDiff > bBPMDiff // smaller diff wins -> smaller "less than"
	}

	aHarmony := harmonyOf(aPrev.camelot, aLast.camelot)
	bHarmony := harmonyOf(bPrev.camelot, bLast.camelot)
	if aHarmony != bHarmony {
		return aHarmony < bHarmony // larger harmony wins
	}

	return aLast.path > bLast.path // lexicographically smaller wins
}

func bestPartial(beam []partial) partial {
	best := beam[0]
	for _, p := range beam[1:] {
		if !lessPartial(p, best) {
			best = p
		}
	}
	return best
}

func emptyPlaylist(preset domain.Preset) domain.Playlist {
	return domain.Playlist{
		ID:        taskid.New(),
		CreatedAt: time.Now(),
		Tracks:    nil,
		Metadata: domain.PlaylistMetadata{
			PresetName: preset.Name,
			Empty:      true,
		},
	}
}

func buildPlaylist(p partial, preset domain.Preset, curve [curveBuckets]float64, truncated bool) domain.Playlist {
	refs := make([]domain.PlaylistTrackRef, len(p.tracks))
	bpmSum := 0.0
	for i, c := range p.tracks {
		refs[i] = domain.PlaylistTrackRef{Path: c.path, TransitionScore: p.scores[i]}
		bpmSum += c.bpm
	}

	var energyCurve [curveBuckets]float64
	for i, c := range p.tracks {
		idx := i * curveBuckets / maxInt(len(p.tracks), 1)
		if idx >= curveBuckets {
			idx = curveBuckets - 1
		}
		energyCurve[idx] = c.energy
	}

	avgBPM := 0.0
	if len(p.tracks) > 0 {
		avgBPM = bpmSum / float64(len(p.tracks))
	}

	return domain.Playlist{
		ID:        taskid.New(),
		CreatedAt: time.Now(),
		Tracks:    refs,
		Metadata: domain.PlaylistMetadata{
			TotalDuration: p.duration,
			AvgBPM:        avgBPM,
			EnergyCurve:   energyCurve,
			PresetName:    preset.Name,
			Truncated:     truncated,
			Empty:         len(refs) == 0,
		},
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// stepRand derives a reproducible *rand.Rand from (task_id, step_index),
// per spec.md §4.6: never the global math/rand source, so concurrent
// generations never share mutable seed state.
func stepRand(taskID string, step int) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(taskID))
	h.Write([]byte{byte(step), byte(step >> 8), byte(step >> 16), byte(step >> 24)})
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
