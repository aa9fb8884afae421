package ui

import (
	"sync/atomic"
	"time"
)

// Stats collects per-session counters for the final summary. The byte counter
// is atomic because the fetcher reports into it from its body reader.
type Stats struct {
	StartedAt  time.Time
	FinishedAt time.Time

	VisitedURLs    []string
	SuccessfulURLs []string
	FailedURLs     []string

	TotalChars     int
	TotalWords     int
	FailedChapters int
	Recoveries     int

	TotalBytes atomic.Int64
}

func (s *Stats) Duration() time.Duration {
	end := s.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	if s.StartedAt.IsZero() {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// SuccessRate is the share of newly attempted chapters that succeeded, in percent.
func (s *Stats) SuccessRate() float64 {
	ok := len(s.SuccessfulURLs)
	total := ok + s.FailedChapters
	if total == 0 {
		return 0
	}
	return float64(ok) / float64(total) * 100
}
