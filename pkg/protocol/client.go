package protocol

// Client is an active support client and the chat group that belongs to it.
type Client struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
}
