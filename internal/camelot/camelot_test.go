package camelot

import "testing"

func TestKeyToCamelot_Bijection(t *testing.T) {
	for key, want := range keyToCamelotTable {
		got, err := KeyToCamelot(key)
		if err != nil {
			t.Fatalf("KeyToCamelot(%q) returned error: %v", key, err)
		}
		if got != want {
			t.Errorf("KeyToCamelot(%q) = %q, want %q", key, got, want)
		}

		backKey, err := CamelotToKey(got)
		if err != nil {
			t.Fatalf("CamelotToKey(%q) returned error: %v", got, err)
		}
		if backKey != key {
			t.Errorf("round trip mismatch: key %q -> camelot %q -> key %q", key, got, backKey)
		}
	}
}

func TestKeyToCamelot_Aliases(t *testing.T) {
	got, err := KeyToCamelot("Abm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := KeyToCamelot("G#m")
	if got != want {
		t.Errorf("expected Abm alias to resolve to same camelot as G#m, got %s vs %s", got, want)
	}
}

func TestKeyToCamelot_Unknown(t *testing.T) {
	if _, err := KeyToCamelot("H"); err == nil {
		t.Error("expected an error for an unrecognised key")
	}
}

func TestAllCamelotCodesCovered(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for _, letter := range []string{"A", "B"} {
			code := format(n, letter[0])
			if !IsValidCamelot(code) {
				t.Errorf("expected %s to be a valid camelot code", code)
			}
		}
	}
}

func TestCamelotNeighbors(t *testing.T) {
	neighbors := CamelotNeighbors("8A")
	want := map[string]bool{"8A": true, "9A": true, "7A": true, "8B": true}
	if len(neighbors) != len(want) {
		t.Fatalf("expected %d neighbors, got %d: %v", len(want), len(neighbors), neighbors)
	}
	for _, n := range neighbors {
		if !want[n] {
			t.Errorf("unexpected neighbor %s", n)
		}
	}
}

func TestHarmonicDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"8A", "8A", 0},
		{"8A", "9A", 0},
		{"8A", "8B", 0},
		{"8A", "10A", 2},  // +2 step
		{"8A", "3A", 2},   // +7 dominant (8+7=15 -> 3)
		{"3A", "8A", 2},   // -7, the symmetric case of the dominant relation
		{"8A", "2A", -1},  // arbitrary far key
	}

	for _, tt := range tests {
		if got := HarmonicDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("HarmonicDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestHarmonicDistance_Unrecognised(t *testing.T) {
	if got := HarmonicDistance("nope", "8A"); got != -1 {
		t.Errorf("expected -1 for unrecognised code, got %d", got)
	}
}

func TestWheelPosition_WrapsAroundAdjacently(t *testing.T) {
	p12, ok := WheelPosition("12A")
	if !ok {
		t.Fatal("expected 12A to resolve")
	}
	p1, ok := WheelPosition("1A")
	if !ok {
		t.Fatal("expected 1A to resolve")
	}
	diff := p1 - p12
	if diff < 0 {
		diff = -diff
	}
	circular := diff
	if circular > 6 {
		circular = 12 - circular
	}
	if circular != 1 {
		t.Errorf("expected 12A and 1A to be 1 step apart on the circle, got %v", circular)
	}
}

func TestWheelPosition_Unrecognised(t *testing.T) {
	if _, ok := WheelPosition("nope"); ok {
		t.Error("expected an unrecognised code to fail")
	}
}
