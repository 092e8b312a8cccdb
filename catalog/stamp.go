package catalog

import "sync/atomic"

// Stamp is the process-wide catalog invalidation counter. Every cache key
// embeds its value at read time, so one Bump orphans every previously cached
// entry without an explicit sweep; orphans simply age out by TTL.
//
// This assumes a single process. A multi-node deployment would need the
// counter in shared storage.
type Stamp struct {
	v atomic.Int64
}

func NewStamp() *Stamp {
	return &Stamp{}
}

func (s *Stamp) Value() int64 {
	return s.v.Load()
}

// Bump increments the stamp. Called by every write that changes what a
// catalog read could return.
func (s *Stamp) Bump() int64 {
	return s.v.Add(1)
}
