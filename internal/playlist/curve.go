package playlist

import "math"

// curveBuckets is the fixed resolution spec.md §4.6's energy(v, position)
// term samples the target curve at: floor(position / N * 16).
const curveBuckets = 16

// resolveCurve returns the 16-bucket target energy curve for a preset: an
// explicit TargetEnergyCurve wins, otherwise the named shape is rendered,
// otherwise a flat 0.5 curve is the fallback.
func resolveCurve(curve []float64, name string) [curveBuckets]float64 {
	var out [curveBuckets]float64
	if len(curve) > 0 {
		for i := range out {
			src := i * len(curve) / curveBuckets
			if src >= len(curve) {
				src = len(curve) - 1
			}
			out[i] = clamp01(curve[src])
		}
		return out
	}

	switch name {
	case "buildup":
		for i := range out {
			out[i] = 0.2 + 0.7*float64(i)/float64(curveBuckets-1)
		}
	case "cooldown":
		for i := range out {
			out[i] = 0.9 - 0.7*float64(i)/float64(curveBuckets-1)
		}
	case "peak_valley":
		for i := range out {
			t := float64(i) / float64(curveBuckets-1)
			out[i] = 0.3 + 0.6*triangle(t)
		}
	case "wave":
		for i := range out {
			t := float64(i) / float64(curveBuckets-1)
			out[i] = 0.6 + 0.3*math.Sin(t*4*math.Pi)
		}
	default: // "flat" and unrecognised names
		for i := range out {
			out[i] = 0.5
		}
	}
	return out
}

// triangle rises from 0 to 1 across the first three quarters of [0,1] and
// falls back to 0 over the last quarter, giving peak_valley a single peak.
func triangle(t float64) float64 {
	const peakAt = 0.75
	if t <= peakAt {
		return t / peakAt
	}
	return 1 - (t-peakAt)/(1-peakAt)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
