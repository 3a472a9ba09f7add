// Package similarity decides whether a captured frame differs enough from the
// last retained frame to be worth saving.
package similarity

import "math"

// Result describes one comparison. Mismatches stops growing once the
// threshold is exceeded, so it is a lower bound when Different is true.
type Result struct {
	Different  bool
	Mismatches int
	Compared   int
	Acceptable int
}

// Similarity returns the fraction of candidate bytes known to match, in [0,1].
func (r Result) Similarity(candidateLen int) float64 {
	if candidateLen <= 0 {
		return 1
	}
	return 1 - float64(r.Mismatches)/float64(candidateLen)
}

// Acceptable returns how many differing bytes a frame of n bytes may contain
// before it counts as changed.
func Acceptable(sensitivity float64, n int) int {
	v := math.Floor(sensitivity * float64(n))
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// Compare walks candidate and baseline byte by byte up to the shorter length
// and stops as soon as the mismatch count exceeds the acceptable amount. An
// empty baseline is always different.
func Compare(candidate, baseline []byte, sensitivity float64) Result {
	if len(baseline) == 0 {
		return Result{Different: true}
	}
	acceptable := Acceptable(sensitivity, len(candidate))
	n := min(len(candidate), len(baseline))
	res := Result{Acceptable: acceptable}
	for i := 0; i < n; i++ {
		if candidate[i] != baseline[i] {
			res.Mismatches++
			if res.Mismatches > acceptable {
				res.Different = true
				res.Compared = i + 1
				return res
			}
		}
	}
	res.Compared = n
	return res
}

// IsDifferent reports whether candidate differs from baseline by more than
// floor(sensitivity*len(candidate)) bytes. A sensitivity of 1 or more never
// reports a change for equal-length frames.
func IsDifferent(candidate, baseline []byte, sensitivity float64) bool {
	return Compare(candidate, baseline, sensitivity).Different
}
