// Package mood implements the rule-based Features → mood classifier of
// spec.md §4.7. The rule table is grounded on original_source/backend/
// core_engine/mood_classifier/mood_classifier.py's range-condition
// structure (each mood described by min/max bands over energy, valence,
// bpm and an optional mode requirement), re-targeted at the spec's fixed,
// closed tag set. The Python original's `chill`, `uplifting`, and
// `mysterious` tags are folded into `calm`, `happy`, and `dark`
// respectively (see SPEC_FULL.md §4.7).
package mood

import "github.com/cesargomez89/navidrums/internal/domain"

type condition struct {
	field    string // "energy", "valence", "bpm", "acousticness", "mode"
	min, max float64
	mode     string // used only when field == "mode"
}

type rule struct {
	mood       domain.Mood
	conditions []condition
}

// rules is ordered by priority: the first rule whose conditions are all
// satisfied wins, per spec.md §4.7.
var rules = []rule{
	{domain.MoodEuphoric, []condition{{field: "energy", min: 0.7, max: 1.0}, {field: "valence", min: 0.6, max: 1.0}}},
	{domain.MoodAggressive, []condition{{field: "energy", min: 0.7, max: 1.0}, {field: "valence", min: 0.0, max: 0.3}}},
	{domain.MoodDriving, []condition{{field: "energy", min: 0.6, max: 0.9}, {field: "bpm", min: 110, max: 140}}},
	{domain.MoodDark, []condition{{field: "valence", min: 0.0, max: 0.4}, {field: "energy", min: 0.4, max: 0.8}, {field: "mode", mode: "minor"}}},
	{domain.MoodMelancholic, []condition{{field: "valence", min: 0.0, max: 0.3}, {field: "energy", min: 0.0, max: 0.5}, {field: "mode", mode: "minor"}}},
	{domain.MoodHappy, []condition{{field: "valence", min: 0.7, max: 1.0}, {field: "energy", min: 0.5, max: 0.9}}},
	{domain.MoodCalm, []condition{{field: "energy", min: 0.0, max: 0.4}, {field: "valence", min: 0.4, max: 0.8}}},
	{domain.MoodEnergetic, []condition{{field: "energy", min: 0.6, max: 1.0}}},
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// normalizedBPM maps a raw bpm value onto [0,1] over the 60-200 BPM band,
// the same window the original classifier uses.
func normalizedBPM(bpm float64) float64 {
	return clamp01((bpm - 60) / 140)
}

func conditionScore(c condition, energy, valence, bpmNorm, acousticness float64, isMinor bool) float64 {
	switch c.field {
	case "mode":
		wantMinor := c.mode == "minor"
		if wantMinor == isMinor {
			return 1
		}
		return 0
	case "energy":
		return bandScore(energy, c.min, c.max)
	case "valence":
		return bandScore(valence, c.min, c.max)
	case "bpm":
		return bandScore(bpmNorm, normalizedBPM(c.min), normalizedBPM(c.max))
	case "acousticness":
		return bandScore(acousticness, c.min, c.max)
	default:
		return 0
	}
}

// bandScore is 1.0 inside [min,max], decaying linearly to 0 at a distance
// of 0.5 outside the band — "fuzzy_high"-style tolerance, matching the
// original classifier's forgiving range evaluation.
func bandScore(x, min, max float64) float64 {
	if x >= min && x <= max {
		return 1
	}
	var dist float64
	if x < min {
		dist = min - x
	} else {
		dist = x - max
	}
	score := 1 - dist/0.5
	if score < 0 {
		return 0
	}
	return score
}

func ruleMatches(r rule, energy, valence, bpmNorm, acousticness float64, isMinor bool) bool {
	for _, c := range r.conditions {
		if conditionScore(c, energy, valence, bpmNorm, acousticness, isMinor) < 1 {
			return false
		}
	}
	return true
}

func ruleScore(r rule, energy, valence, bpmNorm, acousticness float64, isMinor bool) float64 {
	if len(r.conditions) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.conditions {
		sum += conditionScore(c, energy, valence, bpmNorm, acousticness, isMinor)
	}
	return sum / float64(len(r.conditions))
}

// isMinorKey reports whether a key string (e.g. "Am", "C#") names a minor
// key, by the "m" suffix convention used throughout internal/camelot.
func isMinorKey(key string) bool {
	return len(key) > 0 && key[len(key)-1] == 'm'
}

// Classify produces the dominant mood and per-tag scores for a track's
// features, per spec.md §4.7. Inputs outside [0,1] are clamped; an input
// set matching no rule yields neutral with confidence 0.
func Classify(energy, valence, bpm, acousticness float64, key string) (domain.Mood, float64, map[domain.Mood]float64) {
	energy = clamp01(energy)
	valence = clamp01(valence)
	acousticness = clamp01(acousticness)
	bpmNorm := normalizedBPM(bpm)
	isMinor := isMinorKey(key)

	scores := make(map[domain.Mood]float64, len(domain.Moods()))
	for _, m := range domain.Moods() {
		scores[m] = 0
	}

	var winner domain.Mood = domain.MoodNeutral
	winnerFound := false
	winnerIdx := -1
	var winnerScore float64
	runnerUpScore := 0.0

	for i, r := range rules {
		s := ruleScore(r, energy, valence, bpmNorm, acousticness, isMinor)
		if s > scores[r.mood] {
			scores[r.mood] = s
		}
		if !winnerFound && ruleMatches(r, energy, valence, bpmNorm, acousticness, isMinor) {
			winner = r.mood
			winnerScore = s
			winnerFound = true
			winnerIdx = i
		}
	}

	// Confidence is the margin to the rule listed right after the winner.
	if winnerFound && winnerIdx+1 < len(rules) {
		runnerUpScore = ruleScore(rules[winnerIdx+1], energy, valence, bpmNorm, acousticness, isMinor)
	}

	if !winnerFound {
		scores[domain.MoodNeutral] = 1
		return domain.MoodNeutral, 0, scores
	}

	confidence := clamp01(winnerScore - runnerUpScore)
	scores[winner] = winnerScore
	normalizeScores(scores)
	return winner, confidence, scores
}

// normalizeScores rescales scores in place so they sum to 1.0, per spec.md
// §3's "per-tag scores summing to 1.0". A map of all zeros (no rule
// contributed anything) falls back to neutral=1 rather than dividing by
// zero.
func normalizeScores(scores map[domain.Mood]float64) {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	if sum <= 0 {
		scores[domain.MoodNeutral] = 1
		return
	}
	for m, s := range scores {
		scores[m] = s / sum
	}
}

// ClassifyFeatures is a convenience wrapper operating directly on a
// domain.Features value, populating its Mood/MoodScores/Confidence["mood"]
// fields in place.
func ClassifyFeatures(f *domain.Features) {
	m, confidence, scores := Classify(f.Energy, f.Valence, f.BPM, f.Acousticness, f.Key)
	f.Mood = m
	f.MoodScores = scores
	if f.Confidence == nil {
		f.Confidence = map[string]float64{}
	}
	f.Confidence["mood"] = confidence
}
