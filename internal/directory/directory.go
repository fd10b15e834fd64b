package directory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/deskbot-io/deskbot/pkg/protocol"
)

// Service lists the active clients from the external directory.
type Service interface {
	ListActiveClients(ctx context.Context) ([]protocol.Client, error)
}

// Cache is a read-through cache of the client directory. Refresh replaces
// the whole mapping; entries may go stale between refreshes, which is
// acceptable for menu and broadcast purposes.
type Cache struct {
	svc    Service
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]string // group id → client name
}

// NewCache creates an empty cache over the given directory service.
func NewCache(svc Service, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		svc:     svc,
		logger:  logger,
		clients: make(map[string]string),
	}
}

// Refresh rebuilds the mapping wholesale from the directory service.
func (c *Cache) Refresh(ctx context.Context) error {
	clients, err := c.svc.ListActiveClients(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]string, len(clients))
	for _, cl := range clients {
		if cl.GroupID == "" || cl.Name == "" {
			continue
		}
		next[cl.GroupID] = cl.Name
	}

	c.mu.Lock()
	c.clients = next
	c.mu.Unlock()

	c.logger.Info("client directory refreshed", "clients", len(next))
	return nil
}

// Name resolves a group id to its client name. A miss triggers a synchronous
// refresh; if the group is still unknown the raw id is returned, which also
// signals "unregistered group" to callers.
func (c *Cache) Name(ctx context.Context, groupID string) string {
	c.mu.RLock()
	name, ok := c.clients[groupID]
	c.mu.RUnlock()
	if ok {
		return name
	}

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("directory refresh on miss failed", "group", groupID, "error", err)
	}

	c.mu.RLock()
	name, ok = c.clients[groupID]
	c.mu.RUnlock()
	if ok {
		return name
	}
	return groupID
}

// Known reports whether a group id is registered without triggering a refresh.
func (c *Cache) Known(groupID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.clients[groupID]
	return ok
}

// Groups returns every known group id.
func (c *Cache) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.clients))
	for id := range c.clients {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of known clients.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}

// Export returns a copy of the mapping for snapshots.
func (c *Cache) Export() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.clients))
	for k, v := range c.clients {
		out[k] = v
	}
	return out
}

// Restore replaces the mapping from a snapshot.
func (c *Cache) Restore(clients map[string]string) {
	if clients == nil {
		return
	}
	c.mu.Lock()
	c.clients = clients
	c.mu.Unlock()
}
