// Package stats keeps rolling-window statistics for CFI resolution.
package stats

import (
	"slices"
	"sync"
	"time"
)

// Outcome classifies a resolve call.
type Outcome int

const (
	Exact     Outcome = iota // every step and the offset resolved directly
	Recovered                // miss recovery re-derived an endpoint
	Partial                  // an element step was missing
	Failed                   // nothing resolved
)

func (o Outcome) String() string {
	switch o {
	case Exact:
		return "exact"
	case Recovered:
		return "recovered"
	case Partial:
		return "partial"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type sample struct {
	timestamp time.Time
	micros    int64
	outcome   Outcome
}

// Snapshot is a point-in-time aggregate of resolve samples.
type Snapshot struct {
	Count     int     `json:"count"`
	Exact     int     `json:"exact"`
	Recovered int     `json:"recovered"`
	Partial   int     `json:"partial"`
	Failed    int     `json:"failed"`
	MinUs     int64   `json:"min_us"`
	MaxUs     int64   `json:"max_us"`
	AvgUs     float64 `json:"avg_us"`
	P50Us     float64 `json:"p50_us"`
	P95Us     float64 `json:"p95_us"`
	P99Us     float64 `json:"p99_us"`
}

// ResolveStats tracks resolve latencies and outcomes within a rolling window.
type ResolveStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewResolveStats(maxAge time.Duration) *ResolveStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &ResolveStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one resolve call. Negative durations count as zero.
func (s *ResolveStats) Record(d time.Duration, outcome Outcome) {
	micros := max(d.Microseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{timestamp: now, micros: micros, outcome: outcome})
}

func (s *ResolveStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return Snapshot{}
	}

	var snap Snapshot
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.micros)
		sum += sm.micros
		switch sm.outcome {
		case Exact:
			snap.Exact++
		case Recovered:
			snap.Recovered++
		case Partial:
			snap.Partial++
		case Failed:
			snap.Failed++
		}
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinUs = values[0]
	snap.MaxUs = values[len(values)-1]
	snap.AvgUs = float64(sum) / float64(len(values))
	snap.P50Us = percentile(values, 50)
	snap.P95Us = percentile(values, 95)
	snap.P99Us = percentile(values, 99)
	return snap
}

func (s *ResolveStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.timestamp.Before(cutoff)
	})
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}
