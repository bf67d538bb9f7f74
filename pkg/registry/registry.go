package registry

import (
	"fmt"
	"sync"

	"github.com/hostbeacon/dnssync/pkg/types"
)

// Source is the read-only view of the host registry consumed by the sync
// layer. The registry itself (database, heartbeat server) is an external
// collaborator; the sync layer never mutates host records.
type Source interface {
	// ListHosts returns all registered hosts
	ListHosts() ([]*types.HostRecord, error)

	// GetHost returns the host with the given hostname
	GetHost(hostname string) (*types.HostRecord, error)
}

// Memory is an in-memory Source used by tests and local development
type Memory struct {
	mu    sync.RWMutex
	hosts map[string]*types.HostRecord
}

// NewMemory creates an empty in-memory registry
func NewMemory() *Memory {
	return &Memory{hosts: make(map[string]*types.HostRecord)}
}

// Put adds or replaces a host record
func (m *Memory) Put(host *types.HostRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *host
	m.hosts[host.Hostname] = &copied
}

// Remove deletes a host record
func (m *Memory) Remove(hostname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hosts, hostname)
}

// ListHosts returns all registered hosts
func (m *Memory) ListHosts() ([]*types.HostRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hosts := make([]*types.HostRecord, 0, len(m.hosts))
	for _, h := range m.hosts {
		copied := *h
		hosts = append(hosts, &copied)
	}
	return hosts, nil
}

// GetHost returns the host with the given hostname
func (m *Memory) GetHost(hostname string) (*types.HostRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hosts[hostname]
	if !ok {
		return nil, fmt.Errorf("host not found: %s", hostname)
	}
	copied := *h
	return &copied, nil
}
