package link

import (
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/badgeops/badgelink/internal/protocol"
)

// StartApp launches an installed application on the device.
func (l *Link) StartApp(slug, arg string) error {
	if err := protocol.ValidateAppSlug(slug); err != nil {
		return err
	}
	if err := protocol.ValidateAppArg(arg); err != nil {
		return err
	}
	_, err := l.Exchange(&protocol.Request{
		StartApp: &protocol.StartAppReq{Slug: slug, Arg: arg},
	}, l.cfg.DefaultTimeout)
	return err
}

// NvsRead reads one typed value.
func (l *Link) NvsRead(namespace, key string, typ protocol.NvsValueType) (protocol.NvsValue, error) {
	if err := protocol.ValidateNvsName(namespace); err != nil {
		return protocol.NvsValue{}, err
	}
	if err := protocol.ValidateNvsName(key); err != nil {
		return protocol.NvsValue{}, err
	}
	resp, err := l.Exchange(&protocol.Request{
		NvsAction: &protocol.NvsActionReq{
			Type:      protocol.NvsActionRead,
			Namespace: namespace,
			Key:       key,
			ReadType:  typ,
		},
	}, l.cfg.DefaultTimeout)
	if err != nil {
		return protocol.NvsValue{}, err
	}
	if resp.Nvs == nil || resp.Nvs.RData == nil {
		return protocol.NvsValue{}, ErrMissingResponse
	}
	return *resp.Nvs.RData, nil
}

// NvsWrite stores one typed value.
func (l *Link) NvsWrite(namespace, key string, val protocol.NvsValue) error {
	if err := protocol.ValidateNvsName(namespace); err != nil {
		return err
	}
	if err := protocol.ValidateNvsName(key); err != nil {
		return err
	}
	if err := protocol.ValidateNvsValue(val); err != nil {
		return err
	}
	_, err := l.Exchange(&protocol.Request{
		NvsAction: &protocol.NvsActionReq{
			Type:      protocol.NvsActionWrite,
			Namespace: namespace,
			Key:       key,
			WData:     &val,
		},
	}, l.cfg.DefaultTimeout)
	return err
}

// NvsDelete removes one key.
func (l *Link) NvsDelete(namespace, key string) error {
	if err := protocol.ValidateNvsName(namespace); err != nil {
		return err
	}
	if err := protocol.ValidateNvsName(key); err != nil {
		return err
	}
	_, err := l.Exchange(&protocol.Request{
		NvsAction: &protocol.NvsActionReq{
			Type:      protocol.NvsActionDelete,
			Namespace: namespace,
			Key:       key,
		},
	}, l.cfg.DefaultTimeout)
	return err
}

// NvsList enumerates all entries, optionally filtered by namespace,
// paginating until the reported total is reached.
func (l *Link) NvsList(namespace string) ([]protocol.NvsEntry, error) {
	if err := protocol.ValidateNvsNamespaceFilter(namespace); err != nil {
		return nil, err
	}
	out := make([]protocol.NvsEntry, 0)
	for {
		resp, err := l.Exchange(&protocol.Request{
			NvsAction: &protocol.NvsActionReq{
				Type:       protocol.NvsActionList,
				Namespace:  namespace,
				ListOffset: uint32(len(out)),
			},
		}, l.cfg.DefaultTimeout)
		if err != nil {
			return nil, err
		}
		if resp.Nvs == nil || resp.Nvs.Entries == nil {
			return nil, ErrMissingResponse
		}
		out = append(out, resp.Nvs.Entries.Entries...)
		if uint32(len(out)) >= resp.Nvs.Entries.TotalEntries || len(resp.Nvs.Entries.Entries) == 0 {
			return out, nil
		}
	}
}

// AppfsList enumerates all installed applications.
func (l *Link) AppfsList() ([]protocol.AppfsMetadata, error) {
	out := make([]protocol.AppfsMetadata, 0)
	for {
		resp, err := l.Exchange(&protocol.Request{
			AppfsAction: &protocol.AppfsActionReq{
				Type:       protocol.FsActionList,
				ListOffset: uint32(len(out)),
			},
		}, l.cfg.DefaultTimeout)
		if err != nil {
			return nil, err
		}
		if resp.Appfs == nil || resp.Appfs.List == nil {
			return nil, ErrMissingResponse
		}
		out = append(out, resp.Appfs.List.Entries...)
		if uint32(len(out)) >= resp.Appfs.List.TotalSize || len(resp.Appfs.List.Entries) == 0 {
			return out, nil
		}
	}
}

// AppfsStat returns one application's metadata.
func (l *Link) AppfsStat(slug string) (protocol.AppfsMetadata, error) {
	if err := protocol.ValidateAppSlug(slug); err != nil {
		return protocol.AppfsMetadata{}, err
	}
	resp, err := l.Exchange(&protocol.Request{
		AppfsAction: &protocol.AppfsActionReq{Type: protocol.FsActionStat, Slug: slug},
	}, l.cfg.DefaultTimeout)
	if err != nil {
		return protocol.AppfsMetadata{}, err
	}
	if resp.Appfs == nil || resp.Appfs.Metadata == nil {
		return protocol.AppfsMetadata{}, ErrMissingResponse
	}
	return *resp.Appfs.Metadata, nil
}

// AppfsCrc32 returns one application's checksum.
func (l *Link) AppfsCrc32(slug string) (uint32, error) {
	if err := protocol.ValidateAppSlug(slug); err != nil {
		return 0, err
	}
	resp, err := l.Exchange(&protocol.Request{
		AppfsAction: &protocol.AppfsActionReq{Type: protocol.FsActionCrc32, Slug: slug},
	}, l.cfg.DefaultTimeout)
	if err != nil {
		return 0, err
	}
	if resp.Appfs == nil {
		return 0, ErrMissingResponse
	}
	return resp.Appfs.CRC32, nil
}

// AppfsDelete removes one application.
func (l *Link) AppfsDelete(slug string) error {
	if err := protocol.ValidateAppSlug(slug); err != nil {
		return err
	}
	_, err := l.Exchange(&protocol.Request{
		AppfsAction: &protocol.AppfsActionReq{Type: protocol.FsActionDelete, Slug: slug},
	}, l.cfg.DefaultTimeout)
	return err
}

// AppfsUsage reports the application partition's capacity and use.
func (l *Link) AppfsUsage() (protocol.FsUsage, error) {
	resp, err := l.Exchange(&protocol.Request{
		AppfsAction: &protocol.AppfsActionReq{Type: protocol.FsActionGetUsage},
	}, l.cfg.DefaultTimeout)
	if err != nil {
		return protocol.FsUsage{}, err
	}
	if resp.Appfs == nil || resp.Appfs.Usage == nil {
		return protocol.FsUsage{}, ErrMissingResponse
	}
	return *resp.Appfs.Usage, nil
}

// AppfsUpload installs an application image.
func (l *Link) AppfsUpload(meta protocol.AppfsMetadata, data []byte) error {
	if err := protocol.ValidateAppSlug(meta.Slug); err != nil {
		return err
	}
	if err := protocol.ValidateAppTitle(meta.Title); err != nil {
		return err
	}
	meta.Size = uint64(len(data))
	_, err := l.Exchange(&protocol.Request{
		AppfsAction: &protocol.AppfsActionReq{
			Type:     protocol.FsActionUpload,
			Metadata: &meta,
			CRC32:    crc32.ChecksumIEEE(data),
		},
	}, l.cfg.XferTimeout)
	if err != nil {
		return err
	}
	return l.uploadChunks(data)
}

// AppfsDownload fetches an application image.
func (l *Link) AppfsDownload(slug string) ([]byte, error) {
	if err := protocol.ValidateAppSlug(slug); err != nil {
		return nil, err
	}
	resp, err := l.Exchange(&protocol.Request{
		AppfsAction: &protocol.AppfsActionReq{Type: protocol.FsActionDownload, Slug: slug},
	}, l.cfg.XferTimeout)
	if err != nil {
		return nil, err
	}
	if resp.Appfs == nil {
		return nil, ErrMissingResponse
	}
	return l.downloadChunks(resp.Appfs.Size)
}

// FsList returns all entries of one directory.
func (l *Link) FsList(path string) ([]protocol.FsDirent, error) {
	if err := protocol.ValidateFsPath(path); err != nil {
		return nil, err
	}
	out := make([]protocol.FsDirent, 0)
	for {
		resp, err := l.Exchange(&protocol.Request{
			FsAction: &protocol.FsActionReq{
				Type:       protocol.FsActionList,
				Path:       path,
				ListOffset: uint32(len(out)),
			},
		}, l.cfg.ChunkTimeout)
		if err != nil {
			return nil, err
		}
		if resp.Fs == nil || resp.Fs.List == nil {
			return nil, ErrMissingResponse
		}
		out = append(out, resp.Fs.List.Entries...)
		if uint32(len(out)) >= resp.Fs.List.TotalSize || len(resp.Fs.List.Entries) == 0 {
			return out, nil
		}
	}
}

// FsStat returns metadata for one path.
func (l *Link) FsStat(path string) (protocol.FsStat, error) {
	if err := protocol.ValidateFsPath(path); err != nil {
		return protocol.FsStat{}, err
	}
	resp, err := l.Exchange(&protocol.Request{
		FsAction: &protocol.FsActionReq{Type: protocol.FsActionStat, Path: path},
	}, l.cfg.DefaultTimeout)
	if err != nil {
		return protocol.FsStat{}, err
	}
	if resp.Fs == nil || resp.Fs.Stat == nil {
		return protocol.FsStat{}, ErrMissingResponse
	}
	return *resp.Fs.Stat, nil
}

// FsCrc32 returns one file's checksum.
func (l *Link) FsCrc32(path string) (uint32, error) {
	if err := protocol.ValidateFsPath(path); err != nil {
		return 0, err
	}
	resp, err := l.Exchange(&protocol.Request{
		FsAction: &protocol.FsActionReq{Type: protocol.FsActionCrc32, Path: path},
	}, l.cfg.DefaultTimeout)
	if err != nil {
		return 0, err
	}
	if resp.Fs == nil {
		return 0, ErrMissingResponse
	}
	return resp.Fs.CRC32, nil
}

// FsDelete removes one file.
func (l *Link) FsDelete(path string) error {
	if err := protocol.ValidateFsPath(path); err != nil {
		return err
	}
	_, err := l.Exchange(&protocol.Request{
		FsAction: &protocol.FsActionReq{Type: protocol.FsActionDelete, Path: path},
	}, l.cfg.DefaultTimeout)
	return err
}

// FsMkdir creates one directory.
func (l *Link) FsMkdir(path string) error {
	if err := protocol.ValidateFsPath(path); err != nil {
		return err
	}
	_, err := l.Exchange(&protocol.Request{
		FsAction: &protocol.FsActionReq{Type: protocol.FsActionMkdir, Path: path},
	}, l.cfg.DefaultTimeout)
	return err
}

// FsRmdir removes one empty directory.
func (l *Link) FsRmdir(path string) error {
	if err := protocol.ValidateFsPath(path); err != nil {
		return err
	}
	_, err := l.Exchange(&protocol.Request{
		FsAction: &protocol.FsActionReq{Type: protocol.FsActionRmdir, Path: path},
	}, l.cfg.DefaultTimeout)
	return err
}

// FsUsage reports the filesystem's capacity and use.
func (l *Link) FsUsage() (protocol.FsUsage, error) {
	resp, err := l.Exchange(&protocol.Request{
		FsAction: &protocol.FsActionReq{Type: protocol.FsActionGetUsage},
	}, l.cfg.DefaultTimeout)
	if err != nil {
		return protocol.FsUsage{}, err
	}
	if resp.Fs == nil || resp.Fs.Usage == nil {
		return protocol.FsUsage{}, ErrMissingResponse
	}
	return *resp.Fs.Usage, nil
}

// FsUpload writes one file.
func (l *Link) FsUpload(path string, data []byte) error {
	if err := protocol.ValidateFsPath(path); err != nil {
		return err
	}
	_, err := l.Exchange(&protocol.Request{
		FsAction: &protocol.FsActionReq{
			Type:  protocol.FsActionUpload,
			Path:  path,
			CRC32: crc32.ChecksumIEEE(data),
			Size:  uint64(len(data)),
		},
	}, l.cfg.XferTimeout)
	if err != nil {
		return err
	}
	return l.uploadChunks(data)
}

// FsDownload reads one file.
func (l *Link) FsDownload(path string) ([]byte, error) {
	if err := protocol.ValidateFsPath(path); err != nil {
		return nil, err
	}
	resp, err := l.Exchange(&protocol.Request{
		FsAction: &protocol.FsActionReq{Type: protocol.FsActionDownload, Path: path},
	}, l.cfg.XferTimeout)
	if err != nil {
		return nil, err
	}
	if resp.Fs == nil {
		return nil, ErrMissingResponse
	}
	return l.downloadChunks(resp.Fs.Size)
}

// Abort tears down whichever transfer is currently open, leaving the target
// untouched.
func (l *Link) Abort() error {
	_, err := l.Exchange(&protocol.Request{XferControl: protocol.XferAbort}, l.cfg.XferTimeout)
	return err
}

// uploadChunks streams data into the open upload transfer and finishes it.
// A chunk whose ack is lost is re-sent at the same position, which the
// responder treats as an idempotent overwrite. Any terminal failure aborts
// the transfer so no partial artifact is left open.
func (l *Link) uploadChunks(data []byte) error {
	for pos := 0; pos < len(data); pos += protocol.MaxChunkData {
		end := pos + protocol.MaxChunkData
		if end > len(data) {
			end = len(data)
		}
		chunk := &protocol.Chunk{Position: uint64(pos), Data: data[pos:end]}
		if err := l.sendChunk(chunk); err != nil {
			l.abortBestEffort()
			return err
		}
	}
	_, err := l.Exchange(&protocol.Request{XferControl: protocol.XferFinish}, l.cfg.XferTimeout)
	return err
}

func (l *Link) sendChunk(chunk *protocol.Chunk) error {
	var lastErr error
	for attempt := 0; attempt <= l.cfg.ChunkResends; attempt++ {
		_, err := l.Exchange(&protocol.Request{UploadChunk: chunk}, l.cfg.ChunkTimeout)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, ErrTimeout) {
			break
		}
	}
	return lastErr
}

// downloadChunks pulls the open download transfer to completion. The
// responder never pushes unsolicited chunks; every chunk is requested with
// Continue.
func (l *Link) downloadChunks(size uint64) ([]byte, error) {
	out := make([]byte, 0, size)
	for uint64(len(out)) < size {
		resp, err := l.Exchange(&protocol.Request{XferControl: protocol.XferContinue}, l.cfg.ChunkTimeout)
		if err != nil {
			l.abortBestEffort()
			return nil, err
		}
		if resp.DownloadChunk == nil {
			l.abortBestEffort()
			return nil, ErrMissingResponse
		}
		if resp.DownloadChunk.Position != uint64(len(out)) {
			l.abortBestEffort()
			return nil, fmt.Errorf("%w: got %d want %d",
				ErrBadPosition, resp.DownloadChunk.Position, len(out))
		}
		if len(resp.DownloadChunk.Data) == 0 {
			l.abortBestEffort()
			return nil, fmt.Errorf("link: empty chunk at %d of %d", len(out), size)
		}
		out = append(out, resp.DownloadChunk.Data...)
	}
	if _, err := l.Exchange(&protocol.Request{XferControl: protocol.XferFinish}, l.cfg.XferTimeout); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Link) abortBestEffort() {
	if _, err := l.Exchange(&protocol.Request{XferControl: protocol.XferAbort}, l.cfg.DefaultTimeout); err != nil {
		l.log.Debug().Err(err).Msg("abort after failed transfer")
	}
}
