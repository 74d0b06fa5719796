package store

import (
	"hash/crc32"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/badgeops/badgelink/internal/protocol"
)

const defaultPageSize = 16

// MemFs is an in-memory Fs backed by a directory tree. It serves the
// simulator and the protocol tests.
type MemFs struct {
	mu       sync.Mutex
	root     *memNode
	capacity uint64
	// PageSize bounds one List page. Set before first use.
	PageSize uint32
}

type memNode struct {
	isDir    bool
	data     []byte
	children map[string]*memNode
	mtime    uint64
	ctime    uint64
}

func NewMemFs(capacity uint64) *MemFs {
	return &MemFs{
		root:     &memNode{isDir: true, children: make(map[string]*memNode)},
		capacity: capacity,
		PageSize: defaultPageSize,
	}
}

// splitPath normalizes p and returns its segments. The empty path and "/"
// address the root.
func splitPath(p string) ([]string, error) {
	if strings.ContainsRune(p, 0) {
		return nil, ErrInvalid
	}
	clean := path.Clean("/" + p)
	if clean == "/" {
		return nil, nil
	}
	return strings.Split(strings.TrimPrefix(clean, "/"), "/"), nil
}

func (m *MemFs) lookup(segs []string) (*memNode, bool) {
	n := m.root
	for _, s := range segs {
		if !n.isDir {
			return nil, false
		}
		child, ok := n.children[s]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

func (m *MemFs) parentOf(segs []string) (*memNode, string, error) {
	if len(segs) == 0 {
		return nil, "", ErrInvalid
	}
	parent, ok := m.lookup(segs[:len(segs)-1])
	if !ok {
		return nil, "", ErrNotFound
	}
	if !parent.isDir {
		return nil, "", ErrIsFile
	}
	return parent, segs[len(segs)-1], nil
}

func (m *MemFs) used() uint64 {
	var total uint64
	var walk func(n *memNode)
	walk = func(n *memNode) {
		if !n.isDir {
			total += uint64(len(n.data))
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(m.root)
	return total
}

func (m *MemFs) List(p string, offset uint32) ([]protocol.FsDirent, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, err := splitPath(p)
	if err != nil {
		return nil, 0, err
	}
	n, ok := m.lookup(segs)
	if !ok {
		return nil, 0, ErrNotFound
	}
	if !n.isDir {
		return nil, 0, ErrIsFile
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	total := uint32(len(names))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + m.pageSize()
	if end > total {
		end = total
	}
	page := make([]protocol.FsDirent, 0, end-offset)
	for _, name := range names[offset:end] {
		c := n.children[name]
		page = append(page, protocol.FsDirent{
			Name:  name,
			IsDir: c.isDir,
			Size:  uint64(len(c.data)),
			Mtime: c.mtime,
		})
	}
	return page, total, nil
}

func (m *MemFs) pageSize() uint32 {
	if m.PageSize == 0 {
		return defaultPageSize
	}
	return m.PageSize
}

func (m *MemFs) Stat(p string) (protocol.FsStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, err := splitPath(p)
	if err != nil {
		return protocol.FsStat{}, err
	}
	n, ok := m.lookup(segs)
	if !ok {
		return protocol.FsStat{}, ErrNotFound
	}
	return protocol.FsStat{
		Size:  uint64(len(n.data)),
		IsDir: n.isDir,
		Mtime: n.mtime,
		Ctime: n.ctime,
	}, nil
}

func (m *MemFs) Delete(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, err := splitPath(p)
	if err != nil {
		return err
	}
	parent, name, err := m.parentOf(segs)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return ErrNotFound
	}
	if n.isDir {
		return ErrIsDir
	}
	delete(parent.children, name)
	return nil
}

func (m *MemFs) Mkdir(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, err := splitPath(p)
	if err != nil {
		return err
	}
	parent, name, err := m.parentOf(segs)
	if err != nil {
		return err
	}
	if _, ok := parent.children[name]; ok {
		return ErrExists
	}
	now := uint64(time.Now().Unix())
	parent.children[name] = &memNode{
		isDir:    true,
		children: make(map[string]*memNode),
		mtime:    now,
		ctime:    now,
	}
	return nil
}

func (m *MemFs) Rmdir(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, err := splitPath(p)
	if err != nil {
		return err
	}
	parent, name, err := m.parentOf(segs)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return ErrNotFound
	}
	if !n.isDir {
		return ErrIsFile
	}
	if len(n.children) != 0 {
		return ErrNotEmpty
	}
	delete(parent.children, name)
	return nil
}

func (m *MemFs) Crc32(p string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, err := splitPath(p)
	if err != nil {
		return 0, err
	}
	n, ok := m.lookup(segs)
	if !ok {
		return 0, ErrNotFound
	}
	if n.isDir {
		return 0, ErrIsDir
	}
	return crc32.ChecksumIEEE(n.data), nil
}

func (m *MemFs) Usage() (protocol.FsUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return protocol.FsUsage{Size: m.capacity, Used: m.used()}, nil
}

func (m *MemFs) OpenUpload(p string, size uint64) (Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, err := splitPath(p)
	if err != nil {
		return nil, err
	}
	parent, name, err := m.parentOf(segs)
	if err != nil {
		return nil, err
	}
	var replaced uint64
	if existing, ok := parent.children[name]; ok {
		if existing.isDir {
			return nil, ErrIsDir
		}
		replaced = uint64(len(existing.data))
	}
	if m.capacity > 0 && m.used()-replaced+size > m.capacity {
		return nil, ErrNoSpace
	}
	return &memUpload{
		staged: make([]byte, size),
		commit: func(data []byte) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			now := uint64(time.Now().Unix())
			node, ok := parent.children[name]
			if !ok {
				node = &memNode{ctime: now}
				parent.children[name] = node
			}
			node.isDir = false
			node.data = data
			node.mtime = now
			return nil
		},
	}, nil
}

func (m *MemFs) OpenDownload(p string) (Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs, err := splitPath(p)
	if err != nil {
		return nil, err
	}
	n, ok := m.lookup(segs)
	if !ok {
		return nil, ErrNotFound
	}
	if n.isDir {
		return nil, ErrIsDir
	}
	snap := make([]byte, len(n.data))
	copy(snap, n.data)
	return &memDownload{data: snap}, nil
}
