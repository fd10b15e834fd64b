package session

// InputKind says what the next message from a (user, group) pair means.
type InputKind string

const (
	// AwaitingNewTicket: the next message becomes a new ticket's description.
	AwaitingNewTicket InputKind = "NEW_TICKET"
	// AwaitingComment: the conversation concerns the referenced ticket.
	// Not cleared by messages; superseded only by a new menu action or close.
	AwaitingComment InputKind = "COMMENT"
)

// InputState is a one-shot directive about expected user input.
type InputState struct {
	Kind     InputKind `json:"kind"`
	TicketID string    `json:"ticket_id,omitempty"` // set for AwaitingComment
}

func userKey(userID, groupID string) string {
	return userID + "|" + groupID
}

// SetInput records what input is expected from a user in a group.
func (r *Registry) SetInput(userID, groupID string, st InputState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[userKey(userID, groupID)] = st
}

// Input returns the expected input for a (user, group) pair.
func (r *Registry) Input(userID, groupID string) (InputState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.inputs[userKey(userID, groupID)]
	return st, ok
}

// ClearInput deletes the tracker entry for a (user, group) pair.
func (r *Registry) ClearInput(userID, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inputs, userKey(userID, groupID))
}

// ClearGroupInputs deletes every tracker entry for a group (on close).
func (r *Registry) ClearGroupInputs(groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	suffix := "|" + groupID
	for k := range r.inputs {
		if len(k) >= len(suffix) && k[len(k)-len(suffix):] == suffix {
			delete(r.inputs, k)
		}
	}
}

// SetPrompt records the id of the "please type" prompt message so it can be
// retracted once the expected input arrives. Ephemeral, never persisted.
func (r *Registry) SetPrompt(userID, groupID, messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[userKey(userID, groupID)] = messageID
}

// TakePrompt returns and removes the prompt message id, if one was recorded.
func (r *Registry) TakePrompt(userID, groupID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := userKey(userID, groupID)
	id, ok := r.prompts[k]
	if ok {
		delete(r.prompts, k)
	}
	return id, ok
}
