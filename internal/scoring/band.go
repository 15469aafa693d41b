package scoring

import "math"

// bandTable maps a correctness percentage to an IELTS band. It operates
// on percentages rather than raw counts so it holds for any question
// total. Thresholds descend in uniform 5-point half-band steps from 9.0
// down to 2.5, with a final rung keeping any non-zero result at 2.0.
var bandTable = []struct {
	pct  float64
	band float64
}{
	{97.5, 9.0},
	{92.5, 8.5},
	{87.5, 8.0},
	{82.5, 7.5},
	{77.5, 7.0},
	{72.5, 6.5},
	{67.5, 6.0},
	{62.5, 5.5},
	{57.5, 5.0},
	{52.5, 4.5},
	{47.5, 4.0},
	{42.5, 3.5},
	{37.5, 3.0},
	{32.5, 2.5},
	{2.5, 2.0},
}

// Band converts a raw correct/total tally to a band score in [0,9].
func Band(correct, total int) float64 {
	if total <= 0 || correct <= 0 {
		return 0
	}
	pct := float64(correct) / float64(total) * 100
	for _, e := range bandTable {
		if pct >= e.pct {
			return e.band
		}
	}
	return 0
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
