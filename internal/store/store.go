// Package store defines the storage collaborator contracts the responder
// delegates to, plus in-memory implementations used by the simulator and
// tests. Implementations signal failures with the sentinel errors below; the
// responder maps them to wire status codes and nothing implementation
// specific leaks onto the link.
package store

import (
	"errors"
	"io"

	"github.com/badgeops/badgelink/internal/protocol"
)

var (
	ErrNotFound     = errors.New("store: not found")
	ErrExists       = errors.New("store: already exists")
	ErrIsDir        = errors.New("store: is a directory")
	ErrIsFile       = errors.New("store: is a file")
	ErrNotEmpty     = errors.New("store: not empty")
	ErrNoSpace      = errors.New("store: no space")
	ErrNotSupported = errors.New("store: not supported")
	ErrInvalid      = errors.New("store: invalid argument")
)

// Upload is an open upload transfer. Writes land in staging; nothing is
// observable in the store until Commit. Repeated writes at the same offset
// overwrite, so chunk resends are idempotent. ReadAt reads the staged bytes
// back, which the responder uses to verify the checksum before Commit.
type Upload interface {
	io.WriterAt
	io.ReaderAt
	// Commit publishes the staged bytes atomically.
	Commit() error
	// Discard drops all staged bytes, leaving the target untouched.
	Discard() error
}

// Download is an open download transfer over an immutable snapshot.
type Download interface {
	io.ReaderAt
	Size() uint64
	Close() error
}

// Fs is the general filesystem collaborator. List returns one page of
// entries plus the total entry count for the directory.
type Fs interface {
	List(path string, offset uint32) ([]protocol.FsDirent, uint32, error)
	Stat(path string) (protocol.FsStat, error)
	Delete(path string) error
	Mkdir(path string) error
	Rmdir(path string) error
	Crc32(path string) (uint32, error)
	Usage() (protocol.FsUsage, error)
	OpenUpload(path string, size uint64) (Upload, error)
	OpenDownload(path string) (Download, error)
}

// Appfs is the application-partition collaborator, addressed by slug.
type Appfs interface {
	List(offset uint32) ([]protocol.AppfsMetadata, uint32, error)
	Stat(slug string) (protocol.AppfsMetadata, error)
	Delete(slug string) error
	Crc32(slug string) (uint32, error)
	Usage() (protocol.FsUsage, error)
	OpenUpload(meta protocol.AppfsMetadata) (Upload, error)
	OpenDownload(slug string) (Download, error)
	// Start launches an installed application.
	Start(slug, arg string) error
}

// Nvs is the namespaced key/value collaborator.
type Nvs interface {
	List(namespace string, offset uint32) ([]protocol.NvsEntry, uint32, error)
	Read(namespace, key string, typ protocol.NvsValueType) (protocol.NvsValue, error)
	Write(namespace, key string, val protocol.NvsValue) error
	Delete(namespace, key string) error
}
