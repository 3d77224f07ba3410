package poker

import (
	"math"
	"strconv"
)

// NoData is what every Summary field shows when no vote is numeric.
const NoData = "-"

// Stats aggregates the numeric votes of a set of voters.
type Stats struct {
	Count int
	Min   int
	Max   int
	Mean  float64
}

// Summary is Stats rendered for display.
type Summary struct {
	Count string `json:"count"`
	Min   string `json:"min"`
	Max   string `json:"max"`
	Mean  string `json:"mean"`
}

// ComputeStats ignores votes that are not integers (unset, "?", "☕"). It
// does not look at whether cards are revealed; callers decide when the
// result is meaningful.
func ComputeStats(voters []Participant) Stats {
	var stats Stats
	sum := 0
	for _, p := range voters {
		n, ok := Card(p.Vote).Numeric()
		if !ok {
			continue
		}
		if stats.Count == 0 || n < stats.Min {
			stats.Min = n
		}
		if stats.Count == 0 || n > stats.Max {
			stats.Max = n
		}
		sum += n
		stats.Count++
	}
	if stats.Count > 0 {
		stats.Mean = float64(sum) / float64(stats.Count)
	}
	return stats
}

func (s Stats) HasData() bool {
	return s.Count > 0
}

// Summary renders the mean with one decimal place, rounding halves up.
func (s Stats) Summary() Summary {
	if !s.HasData() {
		return Summary{Count: NoData, Min: NoData, Max: NoData, Mean: NoData}
	}
	return Summary{
		Count: strconv.Itoa(s.Count),
		Min:   strconv.Itoa(s.Min),
		Max:   strconv.Itoa(s.Max),
		Mean:  strconv.FormatFloat(math.Floor(s.Mean*10+0.5)/10, 'f', 1, 64),
	}
}
