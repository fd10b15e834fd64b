package session

import (
	"sync"
	"time"
)

// Status is the open/closed state of a group.
type Status string

const (
	StatusClosed Status = "CLOSED"
	StatusOpen   Status = "OPEN"
)

// GroupSession is the per-group mutable record. The log accumulates
// "speaker: text" entries while the group is open and is discarded on close;
// it is never persisted.
type GroupSession struct {
	Status         Status
	LastActivity   time.Time
	Log            []string
	ActiveTicketID string
}

// Closeout is the data the close sequence needs, captured atomically at
// the moment the group transitions to CLOSED.
type Closeout struct {
	Log          []string
	TicketID     string
	FirstSession bool
}

// Registry owns all in-memory session state: group sessions, first-session
// flags, the user input tracker and ephemeral prompt references. Accessors
// are synchronized; transitions are explicit methods.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*GroupSession
	first    map[string]bool       // ticket id → first open/close cycle pending
	inputs   map[string]InputState // user|group → expected input
	prompts  map[string]string     // user|group → prompt message id
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*GroupSession),
		first:    make(map[string]bool),
		inputs:   make(map[string]InputState),
		prompts:  make(map[string]string),
	}
}

func (r *Registry) session(groupID string) *GroupSession {
	s, ok := r.sessions[groupID]
	if !ok {
		s = &GroupSession{Status: StatusClosed}
		r.sessions[groupID] = s
	}
	return s
}

// Open transitions a group to OPEN, resetting activity and clearing the log.
// The caller grants chat permissions first; Open never fails.
func (r *Registry) Open(groupID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session(groupID)
	s.Status = StatusOpen
	s.LastActivity = now
	s.Log = nil
}

// MarkClosed transitions a group to CLOSED and returns the close-out data:
// the accumulated log, the bound ticket and its first-session flag. The log,
// the binding and the flag are cleared as part of the transition.
func (r *Registry) MarkClosed(groupID string) Closeout {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session(groupID)

	out := Closeout{
		Log:      s.Log,
		TicketID: s.ActiveTicketID,
	}
	if out.TicketID != "" {
		out.FirstSession = r.first[out.TicketID]
		delete(r.first, out.TicketID)
	}

	s.Status = StatusClosed
	s.Log = nil
	s.ActiveTicketID = ""
	return out
}

// Append adds a "speaker: text" entry to an open group's log and refreshes
// its activity timestamp. Messages to closed groups only refresh activity.
func (r *Registry) Append(groupID, speaker, text string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session(groupID)
	s.LastActivity = now
	if s.Status != StatusOpen {
		return
	}
	s.Log = append(s.Log, speaker+": "+text)
}

// Touch refreshes a group's activity timestamp.
func (r *Registry) Touch(groupID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session(groupID).LastActivity = now
}

// Status returns the group's open/closed state.
func (r *Registry) Status(groupID string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[groupID]
	if !ok {
		return StatusClosed
	}
	return s.Status
}

// LogLen returns the number of accumulated log entries for a group.
func (r *Registry) LogLen(groupID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[groupID]
	if !ok {
		return 0
	}
	return len(s.Log)
}

// ActiveTicket returns the ticket currently bound to a group, if any.
func (r *Registry) ActiveTicket(groupID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[groupID]
	if !ok {
		return ""
	}
	return s.ActiveTicketID
}

// BindTicket marks which ticket the group's conversation concerns.
func (r *Registry) BindTicket(groupID, ticketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session(groupID).ActiveTicketID = ticketID
}

// MarkFirstSession records that a ticket has not yet completed an
// open/close cycle, enabling title suggestions during close-out.
func (r *Registry) MarkFirstSession(ticketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.first[ticketID] = true
}

// OpenSince returns the ids of groups that are OPEN and whose last activity
// is strictly before the given cutoff.
func (r *Registry) OpenSince(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, s := range r.sessions {
		if s.Status == StatusOpen && !s.LastActivity.IsZero() && s.LastActivity.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
