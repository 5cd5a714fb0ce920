// track/contracts.go
package track

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/riskd/market"
)

// MetadataFetcher looks up contract metadata from the venue. It is the only
// outbound dependency of the tracker layer.
type MetadataFetcher interface {
	ContractMetadata(ctx context.Context, contractID string) (market.ContractMetadata, error)
}

// ContractCache caches immutable contract metadata, fetching on miss.
type ContractCache struct {
	mu      sync.RWMutex
	metas   map[string]market.ContractMetadata
	fetcher MetadataFetcher
}

// NewContractCache creates a cache backed by the given fetcher. A nil
// fetcher is allowed; Get then only serves seeded entries.
func NewContractCache(fetcher MetadataFetcher) *ContractCache {
	return &ContractCache{
		metas:   make(map[string]market.ContractMetadata),
		fetcher: fetcher,
	}
}

// Seed inserts metadata without a fetch, used when restoring a persisted
// cache at startup.
func (c *ContractCache) Seed(meta market.ContractMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.ContractID] = meta
}

// Get returns metadata for a contract, fetching and caching it on miss.
func (c *ContractCache) Get(ctx context.Context, contractID string) (market.ContractMetadata, error) {
	c.mu.RLock()
	meta, ok := c.metas[contractID]
	c.mu.RUnlock()
	if ok {
		return meta, nil
	}

	if c.fetcher == nil {
		return market.ContractMetadata{}, fmt.Errorf("contract %s: no metadata and no fetcher", contractID)
	}

	meta, err := c.fetcher.ContractMetadata(ctx, contractID)
	if err != nil {
		return market.ContractMetadata{}, fmt.Errorf("fetch contract %s: %w", contractID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[contractID] = meta
	return meta, nil
}

// All returns every cached entry, for persistence.
func (c *ContractCache) All() []market.ContractMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]market.ContractMetadata, 0, len(c.metas))
	for _, m := range c.metas {
		out = append(out, m)
	}
	return out
}

// ContractSnapshot is the persisted metadata cache. Restoring it saves the
// venue round-trips a cold start would otherwise need before the first
// P&L calculation.
type ContractSnapshot struct {
	TakenAt   time.Time                 `json:"taken_at"`
	Contracts []market.ContractMetadata `json:"contracts"`
}

// Snapshot captures the cache, sorted for deterministic output.
func (c *ContractCache) Snapshot() ContractSnapshot {
	all := c.All()
	sort.Slice(all, func(i, j int) bool { return all[i].ContractID < all[j].ContractID })
	return ContractSnapshot{TakenAt: time.Now().UTC(), Contracts: all}
}

// Restore seeds the cache from a snapshot. Existing entries win; metadata
// is immutable so there is nothing to reconcile.
func (c *ContractCache) Restore(snap ContractSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range snap.Contracts {
		if _, ok := c.metas[m.ContractID]; !ok {
			c.metas[m.ContractID] = m
		}
	}
}

// Encode serializes the snapshot for the snapshot store.
func (snap ContractSnapshot) Encode() ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeContractSnapshot parses a snapshot produced by Encode.
func DecodeContractSnapshot(data []byte) (ContractSnapshot, error) {
	var snap ContractSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ContractSnapshot{}, err
	}
	return snap, nil
}
