package store

import (
	"sort"
	"sync"

	"github.com/badgeops/badgelink/internal/protocol"
)

// MemNvs is an in-memory namespaced key/value store. Reads are typed: a read
// whose declared kind does not match the stored kind reports not-found, the
// same way the device's NVS engine behaves.
type MemNvs struct {
	mu       sync.Mutex
	spaces   map[string]map[string]protocol.NvsValue
	PageSize uint32
}

func NewMemNvs() *MemNvs {
	return &MemNvs{
		spaces:   make(map[string]map[string]protocol.NvsValue),
		PageSize: defaultPageSize,
	}
}

func (m *MemNvs) pageSize() uint32 {
	if m.PageSize == 0 {
		return defaultPageSize
	}
	return m.PageSize
}

func (m *MemNvs) List(namespace string, offset uint32) ([]protocol.NvsEntry, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]protocol.NvsEntry, 0)
	for ns, keys := range m.spaces {
		if namespace != "" && ns != namespace {
			continue
		}
		for k, v := range keys {
			all = append(all, protocol.NvsEntry{Namespace: ns, Key: k, Type: v.Type})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Namespace != all[j].Namespace {
			return all[i].Namespace < all[j].Namespace
		}
		return all[i].Key < all[j].Key
	})
	total := uint32(len(all))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + m.pageSize()
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MemNvs) Read(namespace, key string, typ protocol.NvsValueType) (protocol.NvsValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys, ok := m.spaces[namespace]
	if !ok {
		return protocol.NvsValue{}, ErrNotFound
	}
	v, ok := keys[key]
	if !ok || v.Type != typ {
		return protocol.NvsValue{}, ErrNotFound
	}
	return v, nil
}

func (m *MemNvs) Write(namespace, key string, val protocol.NvsValue) error {
	if err := protocol.ValidateNvsValue(val); err != nil {
		return ErrInvalid
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys, ok := m.spaces[namespace]
	if !ok {
		keys = make(map[string]protocol.NvsValue)
		m.spaces[namespace] = keys
	}
	keys[key] = val
	return nil
}

func (m *MemNvs) Delete(namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys, ok := m.spaces[namespace]
	if !ok {
		return ErrNotFound
	}
	if _, ok := keys[key]; !ok {
		return ErrNotFound
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(m.spaces, namespace)
	}
	return nil
}
