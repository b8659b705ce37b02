package mediator

import (
	"sync"
	"sync/atomic"
)

// Stats counts mediated accesses. Counters are safe for concurrent
// mediated operations; the per-package denial map is mutex-guarded.
type Stats struct {
	Reads        atomic.Int64
	Writes       atomic.Int64
	Deletes      atomic.Int64
	Enumerations atomic.Int64
	Denied       atomic.Int64

	mu              sync.Mutex
	deniedByPackage map[string]int64
}

// Snapshot is a point-in-time copy of the counters for status surfaces.
type Snapshot struct {
	Reads           int64            `json:"reads"`
	Writes          int64            `json:"writes"`
	Deletes         int64            `json:"deletes"`
	Enumerations    int64            `json:"enumerations"`
	Denied          int64            `json:"denied"`
	DeniedByPackage map[string]int64 `json:"denied_by_package,omitempty"`
}

func (s *Stats) recordDenial(pkg string) {
	s.Denied.Add(1)
	s.mu.Lock()
	if s.deniedByPackage == nil {
		s.deniedByPackage = make(map[string]int64)
	}
	s.deniedByPackage[pkg]++
	s.mu.Unlock()
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Reads:        s.Reads.Load(),
		Writes:       s.Writes.Load(),
		Deletes:      s.Deletes.Load(),
		Enumerations: s.Enumerations.Load(),
		Denied:       s.Denied.Load(),
	}
	s.mu.Lock()
	if len(s.deniedByPackage) > 0 {
		snap.DeniedByPackage = make(map[string]int64, len(s.deniedByPackage))
		for k, v := range s.deniedByPackage {
			snap.DeniedByPackage[k] = v
		}
	}
	s.mu.Unlock()
	return snap
}
