package source

import (
	"context"
	"fmt"
	"sync"

	"kbhub/internal/domain"
)

var _ domain.SourceAccessClient = (*MemoryClient)(nil)

// MemoryClient is an in-process source ACL used in development mode (no
// SOURCE_API_URL configured) and in tests. ACLs are keyed by the binding's
// external id.
type MemoryClient struct {
	mu          sync.RWMutex
	acls        map[string]map[string]bool // external id → principal email → access
	unavailable map[string]bool            // external id → provider down
}

// NewMemoryClient creates an empty in-memory source ACL.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		acls:        make(map[string]map[string]bool),
		unavailable: make(map[string]bool),
	}
}

// Grant records access for email on the source identified by externalID.
func (c *MemoryClient) Grant(externalID, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acls[externalID] == nil {
		c.acls[externalID] = make(map[string]bool)
	}
	c.acls[externalID][email] = true
}

// Revoke removes access for email on the source identified by externalID.
func (c *MemoryClient) Revoke(externalID, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.acls[externalID], email)
}

// SetUnavailable marks the source as unreachable; subsequent checks fail with
// SourceUnavailable.
func (c *MemoryClient) SetUnavailable(externalID string, down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unavailable[externalID] = down
}

// HasAccess implements domain.SourceAccessClient.
func (c *MemoryClient) HasAccess(_ context.Context, binding domain.SourceBinding, email string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.unavailable[binding.ExternalID] {
		return false, domain.ErrSourceUnavailable(binding.SourceType,
			fmt.Errorf("source %q marked unavailable", binding.ExternalID))
	}
	return c.acls[binding.ExternalID][email], nil
}
