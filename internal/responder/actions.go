package responder

import (
	"github.com/badgeops/badgelink/internal/protocol"
)

func (r *Responder) handleAppfs(req *protocol.AppfsActionReq) *protocol.Response {
	if r.appfs == nil {
		return status(protocol.StatusNotSupported)
	}
	switch req.Type {
	case protocol.FsActionList:
		page, total, err := r.appfs.List(req.ListOffset)
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Appfs:  &protocol.AppfsResp{List: &protocol.AppfsList{Entries: page, TotalSize: total}},
		}
	case protocol.FsActionStat:
		meta, err := r.appfs.Stat(req.Slug)
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Appfs:  &protocol.AppfsResp{Metadata: &meta},
		}
	case protocol.FsActionDelete:
		return status(statusOf(r.appfs.Delete(req.Slug)))
	case protocol.FsActionCrc32:
		sum, err := r.appfs.Crc32(req.Slug)
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Appfs:  &protocol.AppfsResp{CRC32: sum},
		}
	case protocol.FsActionGetUsage:
		usage, err := r.appfs.Usage()
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Appfs:  &protocol.AppfsResp{Usage: &usage},
		}
	case protocol.FsActionUpload:
		if req.Metadata == nil {
			return status(protocol.StatusMalformed)
		}
		up, err := r.appfs.OpenUpload(*req.Metadata)
		if err != nil {
			return status(statusOf(err))
		}
		r.xfer.openUpload(up, req.Metadata.Size, req.CRC32)
		return status(protocol.StatusOk)
	case protocol.FsActionDownload:
		down, err := r.appfs.OpenDownload(req.Slug)
		if err != nil {
			return status(statusOf(err))
		}
		r.xfer.openDownload(down)
		return &protocol.Response{
			Status: protocol.StatusOk,
			Appfs:  &protocol.AppfsResp{Size: down.Size()},
		}
	case protocol.FsActionMkdir, protocol.FsActionRmdir:
		// The application partition is flat.
		return status(protocol.StatusNotSupported)
	default:
		return status(protocol.StatusMalformed)
	}
}

func (r *Responder) handleFs(req *protocol.FsActionReq) *protocol.Response {
	if r.fs == nil {
		return status(protocol.StatusNotSupported)
	}
	switch req.Type {
	case protocol.FsActionList:
		page, total, err := r.fs.List(req.Path, req.ListOffset)
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Fs:     &protocol.FsResp{List: &protocol.FsList{Entries: page, TotalSize: total}},
		}
	case protocol.FsActionStat:
		st, err := r.fs.Stat(req.Path)
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Fs:     &protocol.FsResp{Stat: &st},
		}
	case protocol.FsActionDelete:
		return status(statusOf(r.fs.Delete(req.Path)))
	case protocol.FsActionMkdir:
		return status(statusOf(r.fs.Mkdir(req.Path)))
	case protocol.FsActionRmdir:
		return status(statusOf(r.fs.Rmdir(req.Path)))
	case protocol.FsActionCrc32:
		sum, err := r.fs.Crc32(req.Path)
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Fs:     &protocol.FsResp{CRC32: sum},
		}
	case protocol.FsActionGetUsage:
		usage, err := r.fs.Usage()
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Fs:     &protocol.FsResp{Usage: &usage},
		}
	case protocol.FsActionUpload:
		up, err := r.fs.OpenUpload(req.Path, req.Size)
		if err != nil {
			return status(statusOf(err))
		}
		r.xfer.openUpload(up, req.Size, req.CRC32)
		return status(protocol.StatusOk)
	case protocol.FsActionDownload:
		down, err := r.fs.OpenDownload(req.Path)
		if err != nil {
			return status(statusOf(err))
		}
		r.xfer.openDownload(down)
		return &protocol.Response{
			Status: protocol.StatusOk,
			Fs:     &protocol.FsResp{Size: down.Size()},
		}
	default:
		return status(protocol.StatusMalformed)
	}
}

func (r *Responder) handleNvs(req *protocol.NvsActionReq) *protocol.Response {
	if r.nvs == nil {
		return status(protocol.StatusNotSupported)
	}
	switch req.Type {
	case protocol.NvsActionList:
		page, total, err := r.nvs.List(req.Namespace, req.ListOffset)
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Nvs:    &protocol.NvsResp{Entries: &protocol.NvsList{Entries: page, TotalEntries: total}},
		}
	case protocol.NvsActionRead:
		val, err := r.nvs.Read(req.Namespace, req.Key, req.ReadType)
		if err != nil {
			return status(statusOf(err))
		}
		return &protocol.Response{
			Status: protocol.StatusOk,
			Nvs:    &protocol.NvsResp{RData: &val},
		}
	case protocol.NvsActionWrite:
		if req.WData == nil {
			return status(protocol.StatusMalformed)
		}
		return status(statusOf(r.nvs.Write(req.Namespace, req.Key, *req.WData)))
	case protocol.NvsActionDelete:
		return status(statusOf(r.nvs.Delete(req.Namespace, req.Key)))
	default:
		return status(protocol.StatusMalformed)
	}
}

func (r *Responder) handleStartApp(req *protocol.StartAppReq) *protocol.Response {
	if r.appfs == nil {
		return status(protocol.StatusNotSupported)
	}
	return status(statusOf(r.appfs.Start(req.Slug, req.Arg)))
}
