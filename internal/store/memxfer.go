package store

import (
	"errors"
	"io"
)

// memUpload stages bytes for an in-memory store. WriteAt past the staged
// size grows the buffer; the state machine is responsible for contiguity.
type memUpload struct {
	staged []byte
	done   bool
	commit func(data []byte) error
}

func (u *memUpload) WriteAt(p []byte, off int64) (int, error) {
	if u.done {
		return 0, errors.New("store: upload already closed")
	}
	if off < 0 {
		return 0, ErrInvalid
	}
	end := int(off) + len(p)
	if end > len(u.staged) {
		grown := make([]byte, end)
		copy(grown, u.staged)
		u.staged = grown
	}
	copy(u.staged[off:end], p)
	return len(p), nil
}

func (u *memUpload) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalid
	}
	if off >= int64(len(u.staged)) {
		return 0, io.EOF
	}
	n := copy(p, u.staged[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (u *memUpload) Commit() error {
	if u.done {
		return errors.New("store: upload already closed")
	}
	u.done = true
	return u.commit(u.staged)
}

func (u *memUpload) Discard() error {
	u.done = true
	u.staged = nil
	return nil
}

// memDownload reads from an immutable snapshot.
type memDownload struct {
	data []byte
}

func (d *memDownload) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalid
	}
	if off >= int64(len(d.data)) {
		return 0, io.EOF
	}
	n := copy(p, d.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (d *memDownload) Size() uint64 { return uint64(len(d.data)) }

func (d *memDownload) Close() error { return nil }
