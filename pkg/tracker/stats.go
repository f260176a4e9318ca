package tracker

import "sync/atomic"

// Stats holds tracker counters. Fields are accessed atomically so the API can
// read them while the frame loop ticks.
type Stats struct {
	Ticks             int64 `json:"ticks"`
	Transitions       int64 `json:"transitions"`
	NoOps             int64 `json:"no_ops"`
	Initialized       int64 `json:"initialized"`
	Confirmed         int64 `json:"confirmed"`
	NotConfirmed      int64 `json:"not_confirmed"`
	AlignmentCommits  int64 `json:"alignment_commits"`
	Animations        int64 `json:"animations"`
	DroppedAlignments int64 `json:"dropped_alignments"`
	Fades             int64 `json:"fades"`
}

func (s *Stats) inc(field *int64) {
	atomic.AddInt64(field, 1)
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() Stats {
	return Stats{
		Ticks:             atomic.LoadInt64(&s.Ticks),
		Transitions:       atomic.LoadInt64(&s.Transitions),
		NoOps:             atomic.LoadInt64(&s.NoOps),
		Initialized:       atomic.LoadInt64(&s.Initialized),
		Confirmed:         atomic.LoadInt64(&s.Confirmed),
		NotConfirmed:      atomic.LoadInt64(&s.NotConfirmed),
		AlignmentCommits:  atomic.LoadInt64(&s.AlignmentCommits),
		Animations:        atomic.LoadInt64(&s.Animations),
		DroppedAlignments: atomic.LoadInt64(&s.DroppedAlignments),
		Fades:             atomic.LoadInt64(&s.Fades),
	}
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	for _, f := range []*int64{
		&s.Ticks, &s.Transitions, &s.NoOps, &s.Initialized, &s.Confirmed,
		&s.NotConfirmed, &s.AlignmentCommits, &s.Animations, &s.DroppedAlignments, &s.Fades,
	} {
		atomic.StoreInt64(f, 0)
	}
}
