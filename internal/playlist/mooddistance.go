package playlist

import "github.com/cesargomez89/navidrums/internal/domain"

// moodCompatibility is a symmetric [0,1] affinity table, grounded on
// original_source/.../playlist_engine.py's _build_mood_matrix, re-targeted
// at the fixed 9-tag vocabulary (its "uplifting"/"mysterious"/"romantic"
// entries are folded into happy/dark/calm, matching internal/mood's rename;
// "euphoric", "driving", "neutral" are new and filled in by analogy: euphoric
// sits close to energetic/happy, driving close to energetic/aggressive).
// mood_distance(a,b) = 1 - moodCompatibility[a][b].
var moodCompatibility = map[domain.Mood]map[domain.Mood]float64{
	domain.MoodEnergetic: {
		domain.MoodEnergetic: 1.0, domain.MoodHappy: 0.8, domain.MoodCalm: 0.2,
		domain.MoodMelancholic: 0.1, domain.MoodAggressive: 0.6, domain.MoodEuphoric: 0.9,
		domain.MoodDark: 0.4, domain.MoodDriving: 0.9, domain.MoodNeutral: 0.5,
	},
	domain.MoodHappy: {
		domain.MoodEnergetic: 0.8, domain.MoodHappy: 1.0, domain.MoodCalm: 0.6,
		domain.MoodMelancholic: 0.2, domain.MoodAggressive: 0.3, domain.MoodEuphoric: 0.9,
		domain.MoodDark: 0.3, domain.MoodDriving: 0.6, domain.MoodNeutral: 0.5,
	},
	domain.MoodCalm: {
		domain.MoodEnergetic: 0.2, domain.MoodHappy: 0.6, domain.MoodCalm: 1.0,
		domain.MoodMelancholic: 0.6, domain.MoodAggressive: 0.1, domain.MoodEuphoric: 0.3,
		domain.MoodDark: 0.5, domain.MoodDriving: 0.1, domain.MoodNeutral: 0.6,
	},
	domain.MoodMelancholic: {
		domain.MoodEnergetic: 0.1, domain.MoodHappy: 0.2, domain.MoodCalm: 0.6,
		domain.MoodMelancholic: 1.0, domain.MoodAggressive: 0.3, domain.MoodEuphoric: 0.2,
		domain.MoodDark: 0.7, domain.MoodDriving: 0.2, domain.MoodNeutral: 0.5,
	},
	domain.MoodAggressive: {
		domain.MoodEnergetic: 0.6, domain.MoodHappy: 0.3, domain.MoodCalm: 0.1,
		domain.MoodMelancholic: 0.3, domain.MoodAggressive: 1.0, domain.MoodEuphoric: 0.5,
		domain.MoodDark: 0.6, domain.MoodDriving: 0.8, domain.MoodNeutral: 0.3,
	},
	domain.MoodEuphoric: {
		domain.MoodEnergetic: 0.9, domain.MoodHappy: 0.9, domain.MoodCalm: 0.3,
		domain.MoodMelancholic: 0.2, domain.MoodAggressive: 0.5, domain.MoodEuphoric: 1.0,
		domain.MoodDark: 0.3, domain.MoodDriving: 0.7, domain.MoodNeutral: 0.4,
	},
	domain.MoodDark: {
		domain.MoodEnergetic: 0.4, domain.MoodHappy: 0.3, domain.MoodCalm: 0.5,
		domain.MoodMelancholic: 0.7, domain.MoodAggressive: 0.6, domain.MoodEuphoric: 0.3,
		domain.MoodDark: 1.0, domain.MoodDriving: 0.5, domain.MoodNeutral: 0.4,
	},
	domain.MoodDriving: {
		domain.MoodEnergetic: 0.9, domain.MoodHappy: 0.6, domain.MoodCalm: 0.1,
		domain.MoodMelancholic: 0.2, domain.MoodAggressive: 0.8, domain.MoodEuphoric: 0.7,
		domain.MoodDark: 0.5, domain.MoodDriving: 1.0, domain.MoodNeutral: 0.4,
	},
	domain.MoodNeutral: {
		domain.MoodEnergetic: 0.5, domain.MoodHappy: 0.5, domain.MoodCalm: 0.6,
		domain.MoodMelancholic: 0.5, domain.MoodAggressive: 0.3, domain.MoodEuphoric: 0.4,
		domain.MoodDark: 0.4, domain.MoodDriving: 0.4, domain.MoodNeutral: 1.0,
	},
}

// moodDistance implements spec.md §4.6's mood_distance(u.mood, v.mood), a
// fixed table in [0,1]. Unknown moods fall back to the middling 0.5.
func moodDistance(a, b domain.Mood) float64 {
	if a == b {
		return 0
	}
	if row, ok := moodCompatibility[a]; ok {
		if compat, ok := row[b]; ok {
			return 1 - compat
		}
	}
	return 0.5
}
