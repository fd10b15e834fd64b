package ticket

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// IDSource issues ticket ids derived from the local wall clock, formatted
// YYYYMMDDHHMMSS so ids sort lexically by creation time. Two creations in
// the same second stay distinct: the second id borrows the next second.
type IDSource struct {
	mu   sync.Mutex
	loc  *time.Location
	now  func() time.Time
	last string
}

// NewIDSource creates an id source for the given time zone.
func NewIDSource(loc *time.Location) *IDSource {
	if loc == nil {
		loc = time.Local
	}
	return &IDSource{loc: loc, now: time.Now}
}

// Next returns a fresh id, strictly greater than any previously issued.
func (s *IDSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().In(s.loc).Format("20060102150405")
	if s.last != "" && id <= s.last {
		id = bump(s.last)
	}
	s.last = id
	return id
}

// bump increments an id numerically, preserving the 14-digit width.
func bump(id string) string {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return id + "0"
	}
	return fmt.Sprintf("%014d", n+1)
}
