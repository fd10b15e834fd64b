package session

import "time"

// PersistedSession is the durable view of a group session. Live logs are
// deliberately excluded: they exist only while a group is open.
type PersistedSession struct {
	Status         Status    `json:"status"`
	LastActivity   time.Time `json:"last_activity"`
	ActiveTicketID string    `json:"active_ticket_id,omitempty"`
}

// State is the registry's snapshot payload.
type State struct {
	Sessions      map[string]PersistedSession `json:"sessions"`
	Inputs        map[string]InputState       `json:"inputs"`
	FirstSessions map[string]bool             `json:"first_sessions"`
}

// Export captures the persistable state.
func (r *Registry) Export() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := State{
		Sessions:      make(map[string]PersistedSession, len(r.sessions)),
		Inputs:        make(map[string]InputState, len(r.inputs)),
		FirstSessions: make(map[string]bool, len(r.first)),
	}
	for id, s := range r.sessions {
		st.Sessions[id] = PersistedSession{
			Status:         s.Status,
			LastActivity:   s.LastActivity,
			ActiveTicketID: s.ActiveTicketID,
		}
	}
	for k, v := range r.inputs {
		st.Inputs[k] = v
	}
	for k, v := range r.first {
		st.FirstSessions[k] = v
	}
	return st
}

// Restore replaces the registry contents from a snapshot. Restored sessions
// start with empty logs regardless of their persisted status.
func (r *Registry) Restore(st State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[string]*GroupSession, len(st.Sessions))
	for id, p := range st.Sessions {
		r.sessions[id] = &GroupSession{
			Status:         p.Status,
			LastActivity:   p.LastActivity,
			ActiveTicketID: p.ActiveTicketID,
		}
	}
	r.inputs = make(map[string]InputState, len(st.Inputs))
	for k, v := range st.Inputs {
		r.inputs[k] = v
	}
	r.first = make(map[string]bool, len(st.FirstSessions))
	for k, v := range st.FirstSessions {
		r.first[k] = v
	}
	r.prompts = make(map[string]string)
}
