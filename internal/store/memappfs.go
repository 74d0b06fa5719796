package store

import (
	"hash/crc32"
	"sort"
	"sync"

	"github.com/badgeops/badgelink/internal/protocol"
)

// MemAppfs is an in-memory application partition keyed by slug.
type MemAppfs struct {
	mu       sync.Mutex
	apps     map[string]*memApp
	capacity uint64
	PageSize uint32

	// LastStarted records the most recent Start call, for inspection by the
	// simulator and tests.
	LastStarted protocol.StartAppReq
}

type memApp struct {
	meta protocol.AppfsMetadata
	data []byte
}

func NewMemAppfs(capacity uint64) *MemAppfs {
	return &MemAppfs{
		apps:     make(map[string]*memApp),
		capacity: capacity,
		PageSize: defaultPageSize,
	}
}

func (m *MemAppfs) pageSize() uint32 {
	if m.PageSize == 0 {
		return defaultPageSize
	}
	return m.PageSize
}

func (m *MemAppfs) used() uint64 {
	var total uint64
	for _, a := range m.apps {
		total += uint64(len(a.data))
	}
	return total
}

func (m *MemAppfs) List(offset uint32) ([]protocol.AppfsMetadata, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slugs := make([]string, 0, len(m.apps))
	for s := range m.apps {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	total := uint32(len(slugs))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + m.pageSize()
	if end > total {
		end = total
	}
	page := make([]protocol.AppfsMetadata, 0, end-offset)
	for _, s := range slugs[offset:end] {
		page = append(page, m.apps[s].meta)
	}
	return page, total, nil
}

func (m *MemAppfs) Stat(slug string) (protocol.AppfsMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[slug]
	if !ok {
		return protocol.AppfsMetadata{}, ErrNotFound
	}
	return a.meta, nil
}

func (m *MemAppfs) Delete(slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[slug]; !ok {
		return ErrNotFound
	}
	delete(m.apps, slug)
	return nil
}

func (m *MemAppfs) Crc32(slug string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[slug]
	if !ok {
		return 0, ErrNotFound
	}
	return crc32.ChecksumIEEE(a.data), nil
}

func (m *MemAppfs) Usage() (protocol.FsUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return protocol.FsUsage{Size: m.capacity, Used: m.used()}, nil
}

func (m *MemAppfs) OpenUpload(meta protocol.AppfsMetadata) (Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if meta.Slug == "" {
		return nil, ErrInvalid
	}
	var replaced uint64
	if existing, ok := m.apps[meta.Slug]; ok {
		replaced = uint64(len(existing.data))
	}
	if m.capacity > 0 && m.used()-replaced+meta.Size > m.capacity {
		return nil, ErrNoSpace
	}
	return &memUpload{
		staged: make([]byte, meta.Size),
		commit: func(data []byte) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			stored := meta
			stored.Size = uint64(len(data))
			m.apps[meta.Slug] = &memApp{meta: stored, data: data}
			return nil
		},
	}, nil
}

func (m *MemAppfs) OpenDownload(slug string) (Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[slug]
	if !ok {
		return nil, ErrNotFound
	}
	snap := make([]byte, len(a.data))
	copy(snap, a.data)
	return &memDownload{data: snap}, nil
}

func (m *MemAppfs) Start(slug, arg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[slug]; !ok {
		return ErrNotFound
	}
	m.LastStarted = protocol.StartAppReq{Slug: slug, Arg: arg}
	return nil
}
