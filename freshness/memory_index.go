package freshness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gridmind/gridmind/core"
)

// MemoryIndex is the in-process document index used when no Redis URL is
// configured, and in tests. Same grouping semantics as RedisIndex.
type MemoryIndex struct {
	mu     sync.RWMutex
	groups map[string][]core.IndexRecord
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{groups: make(map[string][]core.IndexRecord)}
}

func memKey(domain, filterKey, filterValue string) string {
	return fmt.Sprintf("%s:%s:%s", domain, filterKey, filterValue)
}

// Query returns up to topK records for the filter.
func (m *MemoryIndex) Query(ctx context.Context, domain, filterKey, filterValue string, topK int) ([]core.IndexRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group := m.groups[memKey(domain, filterKey, filterValue)]
	if topK > 0 && len(group) > topK {
		group = group[:topK]
	}
	out := make([]core.IndexRecord, len(group))
	copy(out, group)
	return out, nil
}

// Upsert stamps and stores records under every string metadata filter.
func (m *MemoryIndex) Upsert(ctx context.Context, domain string, records []core.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)

	m.mu.Lock()
	defer m.mu.Unlock()

	groups := make(map[string][]core.IndexRecord)
	for _, rec := range records {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]interface{})
		}
		if _, ok := rec.Metadata["indexed_at"]; !ok {
			rec.Metadata["indexed_at"] = now
		}
		for k, v := range rec.Metadata {
			if k == "indexed_at" {
				continue
			}
			s, ok := v.(string)
			if !ok || s == "" {
				continue
			}
			key := memKey(domain, k, s)
			groups[key] = append(groups[key], rec)
		}
	}
	for key, group := range groups {
		m.groups[key] = group
	}
	return nil
}
