// Package camelot implements the Camelot Wheel bijection between musical
// keys and Camelot notation, and the harmonic-neighbour predicate the
// PlaylistEngine scorer uses. Pure functions, no state, grounded on
// original_source/backend/core_engine/playlist_engine/playlist_engine.py's
// harmonic compatibility rules (same wheel, re-expressed as a Go table).
package camelot

import "fmt"

var keyToCamelotTable = map[string]string{
	"G#m": "1A", "B": "1B",
	"D#m": "2A", "F#": "2B",
	"A#m": "3A", "C#": "3B",
	"Fm": "4A", "G#": "4B",
	"Cm": "5A", "D#": "5B",
	"Gm": "6A", "A#": "6B",
	"Dm": "7A", "F": "7B",
	"Am": "8A", "C": "8B",
	"Em": "9A", "G": "9B",
	"Bm": "10A", "D": "10B",
	"F#m": "11A", "A": "11B",
	"C#m": "12A", "E": "12B",
}

var camelotToKeyTable = func() map[string]string {
	m := make(map[string]string, len(keyToCamelotTable))
	for key, c := range keyToCamelotTable {
		m[c] = key
	}
	return m
}()

// enharmonic aliases accepted as input, normalised to the sharp spelling
// used by keyToCamelotTable.
var aliases = map[string]string{
	"Abm": "G#m", "Ebm": "D#m", "Bbm": "A#m", "Gb": "F#", "Db": "C#", "Ab": "G#", "Eb": "D#", "Bb": "A#",
}

func normalize(key string) string {
	if alias, ok := aliases[key]; ok {
		return alias
	}
	return key
}

// KeyToCamelot returns the Camelot notation (e.g. "8A") for a musical key
// (e.g. "Am", "C#"). Returns an error if the key is not one of the 24
// recognised keys.
func KeyToCamelot(key string) (string, error) {
	c, ok := keyToCamelotTable[normalize(key)]
	if !ok {
		return "", fmt.Errorf("camelot: unrecognised key %q", key)
	}
	return c, nil
}

// CamelotToKey is the inverse of KeyToCamelot.
func CamelotToKey(camelot string) (string, error) {
	key, ok := camelotToKeyTable[camelot]
	if !ok {
		return "", fmt.Errorf("camelot: unrecognised camelot notation %q", camelot)
	}
	return key, nil
}

// IsValidCamelot reports whether c is one of the 24 valid Camelot codes.
func IsValidCamelot(c string) bool {
	_, ok := camelotToKeyTable[c]
	return ok
}

func parse(c string) (number int, letter byte, ok bool) {
	if len(c) < 2 {
		return 0, 0, false
	}
	letter = c[len(c)-1]
	if letter != 'A' && letter != 'B' {
		return 0, 0, false
	}
	numStr := c[:len(c)-1]
	n := 0
	for _, r := range numStr {
		if r < '0' || r > '9' {
			return 0, 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n < 1 || n > 12 {
		return 0, 0, false
	}
	return n, letter, true
}

func format(number int, letter byte) string {
	n := number
	if n < 1 {
		n = 12 - ((-n) % 12)
		if n == 12 {
			n = 12
		}
	}
	n = ((n - 1) % 12) + 1
	return fmt.Sprintf("%d%c", n, letter)
}

// CamelotNeighbors returns the top-tier harmonically compatible Camelot
// codes for c, per spec.md §4.6: same code, ±1 on the same letter, and the
// same position on the other letter (mode switch). The ±2 step and the +7
// dominant relation are a second, weaker tier — see HarmonicDistance.
func CamelotNeighbors(c string) []string {
	number, letter, ok := parse(c)
	if !ok {
		return nil
	}
	other := byte('B')
	if letter == 'B' {
		other = 'A'
	}

	return []string{
		c,
		format(number+1, letter),
		format(number-1, letter),
		format(number, other),
	}
}

// WheelPosition returns c's position in [0,12) on the 12-point Camelot
// circle (mode ignored), so that callers can measure circular adjacency —
// e.g. for the Similar query's key_circle distance term, where 12A and 1A
// must come out adjacent rather than at opposite ends of a linear scale.
func WheelPosition(c string) (float64, bool) {
	number, _, ok := parse(c)
	if !ok {
		return 0, false
	}
	return float64(number - 1), true
}

// HarmonicDistance classifies the relation between a and b on the wheel: 0
// for identical/adjacent/mode-switch (the 1.0-score tier), 2 for a ±2 step
// or the ±7 dominant/subdominant relation (the 0.6-score tier), -1 if
// incompatible. Symmetric: HarmonicDistance(a,b) == HarmonicDistance(b,a).
// Mirrors the score bands spec.md §4.6 assigns to harmony(u,v).
func HarmonicDistance(a, b string) int {
	an, _, aok := parse(a)
	bn, _, bok := parse(b)
	if !aok || !bok {
		return -1
	}
	for _, n := range CamelotNeighbors(a) {
		if n == b {
			return 0
		}
	}
	diff := ((bn-an)%12 + 12) % 12
	if diff == 2 || diff == 10 || diff == 7 || diff == 5 {
		return 2
	}
	return -1
}
