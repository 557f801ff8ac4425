// Package score turns comparison outcomes into points and renders the
// feedback text a student reads.
package score

import (
	"math"
	"strconv"

	"github.com/programme-lv/autograder/internal/compare"
)

type Scorer struct {
	TotalPoints   float64
	PointsPerLine float64
}

// Score awards PointsPerLine for every matching unit. A failed outcome
// scores zero.
func (s Scorer) Score(o *compare.Outcome) float64 {
	if o == nil || o.Failure != nil {
		return 0
	}
	raw := float64(o.Matches()) * s.PointsPerLine
	return Clamp(math.Round(raw*1e9)/1e9, s.TotalPoints)
}

// Clamp limits v to [0, total]. Values within rounding error of total
// become total.
func Clamp(v, total float64) float64 {
	if v < 0 {
		return 0
	}
	if FullMarks(v, total) {
		return total
	}
	return v
}

// FullMarks reports whether score reaches total, tolerating the rounding
// error of summed fractional points.
func FullMarks(score, total float64) bool {
	return score >= total-1e-9*math.Max(1, math.Abs(total))
}

// Format prints points without a trailing ".0" for whole numbers.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
