package protocol

import (
	"errors"

	"github.com/badgeops/badgelink/internal/protocol/tlv"
)

var (
	ErrBodyConflict  = errors.New("protocol: envelope carries both request and response")
	ErrEmptyUnion    = errors.New("protocol: no union variant set")
	ErrUnionConflict = errors.New("protocol: more than one union variant set")
	ErrChunkTooLong  = errors.New("protocol: chunk data exceeds maximum payload")
)

// MarshalBinary encodes the envelope as a flat TLV payload, ready for
// framing. Optional fields that hold their zero value are omitted.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	fields := []tlv.Field{tlv.NewU32(fidSerial, e.Serial)}
	if e.Sync {
		fields = append(fields, tlv.NewBool(fidSync, true))
	}
	if e.Request != nil && e.Response != nil {
		return nil, ErrBodyConflict
	}
	if e.Request != nil {
		inner, err := e.Request.fields()
		if err != nil {
			return nil, err
		}
		fields = append(fields, tlv.NewMsg(fidRequest, inner))
	}
	if e.Response != nil {
		inner, err := e.Response.fields()
		if err != nil {
			return nil, err
		}
		fields = append(fields, tlv.NewMsg(fidResponse, inner))
	}
	return tlv.EncodeFields(fields), nil
}

func (r *Request) fields() ([]tlv.Field, error) {
	variants := 0
	out := make([]tlv.Field, 0, 1)
	if r.UploadChunk != nil {
		variants++
		inner, err := r.UploadChunk.fields()
		if err != nil {
			return nil, err
		}
		out = append(out, tlv.NewMsg(fidReqUploadChunk, inner))
	}
	if r.AppfsAction != nil {
		variants++
		out = append(out, tlv.NewMsg(fidReqAppfsAction, r.AppfsAction.fields()))
	}
	if r.FsAction != nil {
		variants++
		out = append(out, tlv.NewMsg(fidReqFsAction, r.FsAction.fields()))
	}
	if r.NvsAction != nil {
		variants++
		out = append(out, tlv.NewMsg(fidReqNvsAction, r.NvsAction.fields()))
	}
	if r.StartApp != nil {
		variants++
		out = append(out, tlv.NewMsg(fidReqStartApp, []tlv.Field{
			tlv.NewString(fidStartSlug, r.StartApp.Slug),
			tlv.NewString(fidStartArg, r.StartApp.Arg),
		}))
	}
	if r.XferControl != XferNone {
		variants++
		out = append(out, tlv.NewU8(fidReqXferControl, uint8(r.XferControl)))
	}
	if variants == 0 {
		return nil, ErrEmptyUnion
	}
	if variants > 1 {
		return nil, ErrUnionConflict
	}
	return out, nil
}

func (r *Response) fields() ([]tlv.Field, error) {
	out := []tlv.Field{tlv.NewU8(fidRespStatus, uint8(r.Status))}
	variants := 0
	if r.DownloadChunk != nil {
		variants++
		inner, err := r.DownloadChunk.fields()
		if err != nil {
			return nil, err
		}
		out = append(out, tlv.NewMsg(fidRespDownloadChunk, inner))
	}
	if r.Appfs != nil {
		variants++
		out = append(out, tlv.NewMsg(fidRespAppfs, r.Appfs.fields()))
	}
	if r.Fs != nil {
		variants++
		out = append(out, tlv.NewMsg(fidRespFs, r.Fs.fields()))
	}
	if r.Nvs != nil {
		variants++
		out = append(out, tlv.NewMsg(fidRespNvs, r.Nvs.fields()))
	}
	if variants > 1 {
		return nil, ErrUnionConflict
	}
	return out, nil
}

func (c *Chunk) fields() ([]tlv.Field, error) {
	if len(c.Data) > MaxChunkData {
		return nil, ErrChunkTooLong
	}
	return []tlv.Field{
		tlv.NewU64(fidChunkPosition, c.Position),
		tlv.NewBytes(fidChunkData, c.Data),
	}, nil
}

func (a *AppfsActionReq) fields() []tlv.Field {
	out := []tlv.Field{tlv.NewU8(fidAppfsType, uint8(a.Type))}
	if a.Slug != "" {
		out = append(out, tlv.NewString(fidAppfsSlug, a.Slug))
	}
	if a.Metadata != nil {
		out = append(out, tlv.NewMsg(fidAppfsMetadata, a.Metadata.fields()))
	}
	if a.CRC32 != 0 {
		out = append(out, tlv.NewU32(fidAppfsCRC32, a.CRC32))
	}
	if a.ListOffset != 0 {
		out = append(out, tlv.NewU32(fidAppfsListOffset, a.ListOffset))
	}
	return out
}

func (m *AppfsMetadata) fields() []tlv.Field {
	return []tlv.Field{
		tlv.NewString(fidMetaSlug, m.Slug),
		tlv.NewString(fidMetaTitle, m.Title),
		tlv.NewU16(fidMetaVersion, m.Version),
		tlv.NewU64(fidMetaSize, m.Size),
	}
}

func (r *AppfsResp) fields() []tlv.Field {
	out := make([]tlv.Field, 0, 2)
	if r.List != nil {
		inner := make([]tlv.Field, 0, len(r.List.Entries)+1)
		for i := range r.List.Entries {
			inner = append(inner, tlv.NewMsg(fidListEntry, r.List.Entries[i].fields()))
		}
		inner = append(inner, tlv.NewU32(fidListTotal, r.List.TotalSize))
		out = append(out, tlv.NewMsg(fidAppfsRespList, inner))
	}
	if r.Metadata != nil {
		out = append(out, tlv.NewMsg(fidAppfsRespMeta, r.Metadata.fields()))
	}
	if r.CRC32 != 0 {
		out = append(out, tlv.NewU32(fidAppfsRespCRC32, r.CRC32))
	}
	if r.Usage != nil {
		out = append(out, tlv.NewMsg(fidAppfsRespUsage, r.Usage.fields()))
	}
	if r.Size != 0 {
		out = append(out, tlv.NewU64(fidAppfsRespSize, r.Size))
	}
	return out
}

func (a *FsActionReq) fields() []tlv.Field {
	out := []tlv.Field{tlv.NewU8(fidFsType, uint8(a.Type))}
	if a.Path != "" {
		out = append(out, tlv.NewString(fidFsPath, a.Path))
	}
	if a.CRC32 != 0 {
		out = append(out, tlv.NewU32(fidFsCRC32, a.CRC32))
	}
	if a.Size != 0 {
		out = append(out, tlv.NewU64(fidFsSize, a.Size))
	}
	if a.ListOffset != 0 {
		out = append(out, tlv.NewU32(fidFsListOffset, a.ListOffset))
	}
	return out
}

func (d *FsDirent) fields() []tlv.Field {
	return []tlv.Field{
		tlv.NewString(fidDirentName, d.Name),
		tlv.NewBool(fidDirentIsDir, d.IsDir),
		tlv.NewU64(fidDirentSize, d.Size),
		tlv.NewU64(fidDirentMtime, d.Mtime),
	}
}

func (s *FsStat) fields() []tlv.Field {
	return []tlv.Field{
		tlv.NewU64(fidStatSize, s.Size),
		tlv.NewBool(fidStatIsDir, s.IsDir),
		tlv.NewU64(fidStatMtime, s.Mtime),
		tlv.NewU64(fidStatCtime, s.Ctime),
	}
}

func (u *FsUsage) fields() []tlv.Field {
	return []tlv.Field{
		tlv.NewU64(fidUsageSize, u.Size),
		tlv.NewU64(fidUsageUsed, u.Used),
	}
}

func (r *FsResp) fields() []tlv.Field {
	out := make([]tlv.Field, 0, 2)
	if r.List != nil {
		inner := make([]tlv.Field, 0, len(r.List.Entries)+1)
		for i := range r.List.Entries {
			inner = append(inner, tlv.NewMsg(fidListEntry, r.List.Entries[i].fields()))
		}
		inner = append(inner, tlv.NewU32(fidListTotal, r.List.TotalSize))
		out = append(out, tlv.NewMsg(fidFsRespList, inner))
	}
	if r.Stat != nil {
		out = append(out, tlv.NewMsg(fidFsRespStat, r.Stat.fields()))
	}
	if r.CRC32 != 0 {
		out = append(out, tlv.NewU32(fidFsRespCRC32, r.CRC32))
	}
	if r.Usage != nil {
		out = append(out, tlv.NewMsg(fidFsRespUsage, r.Usage.fields()))
	}
	if r.Size != 0 {
		out = append(out, tlv.NewU64(fidFsRespSize, r.Size))
	}
	return out
}

func (a *NvsActionReq) fields() []tlv.Field {
	out := []tlv.Field{tlv.NewU8(fidNvsType, uint8(a.Type))}
	if a.Namespace != "" {
		out = append(out, tlv.NewString(fidNvsNamespace, a.Namespace))
	}
	if a.Key != "" {
		out = append(out, tlv.NewString(fidNvsKey, a.Key))
	}
	if a.ReadType != 0 {
		out = append(out, tlv.NewU8(fidNvsReadType, uint8(a.ReadType)))
	}
	if a.WData != nil {
		out = append(out, tlv.NewMsg(fidNvsWData, a.WData.fields()))
	}
	if a.ListOffset != 0 {
		out = append(out, tlv.NewU32(fidNvsListOffset, a.ListOffset))
	}
	return out
}

func (v *NvsValue) fields() []tlv.Field {
	out := []tlv.Field{tlv.NewU8(fidValType, uint8(v.Type))}
	switch {
	case v.IsNumeric():
		out = append(out, tlv.NewU64(fidValNumeric, v.Numeric))
	case v.Type == NvsTypeString:
		out = append(out, tlv.NewString(fidValString, v.Str))
	case v.Type == NvsTypeBlob:
		out = append(out, tlv.NewBytes(fidValBlob, v.Blob))
	}
	return out
}

func (e *NvsEntry) fields() []tlv.Field {
	return []tlv.Field{
		tlv.NewString(fidEntryNamespace, e.Namespace),
		tlv.NewString(fidEntryKey, e.Key),
		tlv.NewU8(fidEntryType, uint8(e.Type)),
	}
}

func (r *NvsResp) fields() []tlv.Field {
	out := make([]tlv.Field, 0, 1)
	if r.RData != nil {
		out = append(out, tlv.NewMsg(fidNvsRespRData, r.RData.fields()))
	}
	if r.Entries != nil {
		inner := make([]tlv.Field, 0, len(r.Entries.Entries)+1)
		for i := range r.Entries.Entries {
			inner = append(inner, tlv.NewMsg(fidListEntry, r.Entries.Entries[i].fields()))
		}
		inner = append(inner, tlv.NewU32(fidListTotal, r.Entries.TotalEntries))
		out = append(out, tlv.NewMsg(fidNvsRespEntries, inner))
	}
	return out
}
