package protocol

import (
	"errors"
	"fmt"

	"github.com/badgeops/badgelink/internal/protocol/tlv"
)

var ErrMissingSerial = errors.New("protocol: envelope missing serial")

// UnmarshalEnvelope decodes one framed payload into an Envelope. Unknown
// field ids are skipped, not rejected, so newer peers stay compatible.
func UnmarshalEnvelope(payload []byte) (*Envelope, error) {
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return nil, err
	}
	env := &Envelope{}
	serialSeen := false
	for _, f := range fields {
		switch f.ID {
		case fidSerial:
			v, err := f.U32()
			if err != nil {
				return nil, err
			}
			env.Serial = v
			serialSeen = true
		case fidSync:
			v, err := f.Bool()
			if err != nil {
				return nil, err
			}
			env.Sync = v
		case fidRequest:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			req, err := unmarshalRequest(inner)
			if err != nil {
				return nil, err
			}
			env.Request = req
		case fidResponse:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			resp, err := unmarshalResponse(inner)
			if err != nil {
				return nil, err
			}
			env.Response = resp
		}
	}
	if !serialSeen {
		return nil, ErrMissingSerial
	}
	if env.Request != nil && env.Response != nil {
		return nil, ErrBodyConflict
	}
	return env, nil
}

// PeekSerial extracts only the serial from a framed payload, so a responder
// can still address its reply when the body fails to decode.
func PeekSerial(payload []byte) (uint32, bool) {
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return 0, false
	}
	f, ok := tlv.GetField(fields, fidSerial)
	if !ok {
		return 0, false
	}
	v, err := f.U32()
	if err != nil {
		return 0, false
	}
	return v, true
}

func unmarshalRequest(fields []tlv.Field) (*Request, error) {
	req := &Request{}
	variants := 0
	for _, f := range fields {
		switch f.ID {
		case fidReqUploadChunk:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			c, err := unmarshalChunk(inner)
			if err != nil {
				return nil, err
			}
			req.UploadChunk = c
			variants++
		case fidReqAppfsAction:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			a, err := unmarshalAppfsAction(inner)
			if err != nil {
				return nil, err
			}
			req.AppfsAction = a
			variants++
		case fidReqFsAction:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			a, err := unmarshalFsAction(inner)
			if err != nil {
				return nil, err
			}
			req.FsAction = a
			variants++
		case fidReqNvsAction:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			a, err := unmarshalNvsAction(inner)
			if err != nil {
				return nil, err
			}
			req.NvsAction = a
			variants++
		case fidReqStartApp:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			s := &StartAppReq{}
			for _, g := range inner {
				switch g.ID {
				case fidStartSlug:
					if s.Slug, err = g.String(); err != nil {
						return nil, err
					}
				case fidStartArg:
					if s.Arg, err = g.String(); err != nil {
						return nil, err
					}
				}
			}
			req.StartApp = s
			variants++
		case fidReqXferControl:
			v, err := f.U8()
			if err != nil {
				return nil, err
			}
			if v == 0 || v > uint8(XferFinish) {
				return nil, fmt.Errorf("protocol: invalid xfer signal %d", v)
			}
			req.XferControl = XferSignal(v)
			variants++
		}
	}
	if variants == 0 {
		return nil, ErrEmptyUnion
	}
	if variants > 1 {
		return nil, ErrUnionConflict
	}
	return req, nil
}

func unmarshalResponse(fields []tlv.Field) (*Response, error) {
	resp := &Response{}
	for _, f := range fields {
		switch f.ID {
		case fidRespStatus:
			v, err := f.U8()
			if err != nil {
				return nil, err
			}
			resp.Status = StatusCode(v)
		case fidRespDownloadChunk:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			c, err := unmarshalChunk(inner)
			if err != nil {
				return nil, err
			}
			resp.DownloadChunk = c
		case fidRespAppfs:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			a, err := unmarshalAppfsResp(inner)
			if err != nil {
				return nil, err
			}
			resp.Appfs = a
		case fidRespFs:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			a, err := unmarshalFsResp(inner)
			if err != nil {
				return nil, err
			}
			resp.Fs = a
		case fidRespNvs:
			inner, err := f.Msg()
			if err != nil {
				return nil, err
			}
			a, err := unmarshalNvsResp(inner)
			if err != nil {
				return nil, err
			}
			resp.Nvs = a
		}
	}
	return resp, nil
}

func unmarshalChunk(fields []tlv.Field) (*Chunk, error) {
	c := &Chunk{}
	for _, f := range fields {
		switch f.ID {
		case fidChunkPosition:
			v, err := f.U64()
			if err != nil {
				return nil, err
			}
			c.Position = v
		case fidChunkData:
			v, err := f.Bytes()
			if err != nil {
				return nil, err
			}
			c.Data = v
		}
	}
	return c, nil
}

func unmarshalAppfsAction(fields []tlv.Field) (*AppfsActionReq, error) {
	a := &AppfsActionReq{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidAppfsType:
			var v uint8
			if v, err = f.U8(); err == nil {
				a.Type = FsActionType(v)
			}
		case fidAppfsSlug:
			a.Slug, err = f.String()
		case fidAppfsMetadata:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				a.Metadata, err = unmarshalAppfsMetadata(inner)
			}
		case fidAppfsCRC32:
			a.CRC32, err = f.U32()
		case fidAppfsListOffset:
			a.ListOffset, err = f.U32()
		}
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func unmarshalAppfsMetadata(fields []tlv.Field) (*AppfsMetadata, error) {
	m := &AppfsMetadata{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidMetaSlug:
			m.Slug, err = f.String()
		case fidMetaTitle:
			m.Title, err = f.String()
		case fidMetaVersion:
			m.Version, err = f.U16()
		case fidMetaSize:
			m.Size, err = f.U64()
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func unmarshalAppfsResp(fields []tlv.Field) (*AppfsResp, error) {
	r := &AppfsResp{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidAppfsRespList:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				r.List, err = unmarshalAppfsList(inner)
			}
		case fidAppfsRespMeta:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				r.Metadata, err = unmarshalAppfsMetadata(inner)
			}
		case fidAppfsRespCRC32:
			r.CRC32, err = f.U32()
		case fidAppfsRespUsage:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				r.Usage, err = unmarshalFsUsage(inner)
			}
		case fidAppfsRespSize:
			r.Size, err = f.U64()
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func unmarshalAppfsList(fields []tlv.Field) (*AppfsList, error) {
	l := &AppfsList{Entries: make([]AppfsMetadata, 0)}
	for _, f := range tlv.GetAll(fields, fidListEntry) {
		inner, err := f.Msg()
		if err != nil {
			return nil, err
		}
		m, err := unmarshalAppfsMetadata(inner)
		if err != nil {
			return nil, err
		}
		l.Entries = append(l.Entries, *m)
	}
	if f, ok := tlv.GetField(fields, fidListTotal); ok {
		v, err := f.U32()
		if err != nil {
			return nil, err
		}
		l.TotalSize = v
	}
	return l, nil
}

func unmarshalFsAction(fields []tlv.Field) (*FsActionReq, error) {
	a := &FsActionReq{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidFsType:
			var v uint8
			if v, err = f.U8(); err == nil {
				a.Type = FsActionType(v)
			}
		case fidFsPath:
			a.Path, err = f.String()
		case fidFsCRC32:
			a.CRC32, err = f.U32()
		case fidFsSize:
			a.Size, err = f.U64()
		case fidFsListOffset:
			a.ListOffset, err = f.U32()
		}
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func unmarshalFsDirent(fields []tlv.Field) (*FsDirent, error) {
	d := &FsDirent{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidDirentName:
			d.Name, err = f.String()
		case fidDirentIsDir:
			d.IsDir, err = f.Bool()
		case fidDirentSize:
			d.Size, err = f.U64()
		case fidDirentMtime:
			d.Mtime, err = f.U64()
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func unmarshalFsStat(fields []tlv.Field) (*FsStat, error) {
	s := &FsStat{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidStatSize:
			s.Size, err = f.U64()
		case fidStatIsDir:
			s.IsDir, err = f.Bool()
		case fidStatMtime:
			s.Mtime, err = f.U64()
		case fidStatCtime:
			s.Ctime, err = f.U64()
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func unmarshalFsUsage(fields []tlv.Field) (*FsUsage, error) {
	u := &FsUsage{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidUsageSize:
			u.Size, err = f.U64()
		case fidUsageUsed:
			u.Used, err = f.U64()
		}
		if err != nil {
			return nil, err
		}
	}
	return u, nil
}

func unmarshalFsResp(fields []tlv.Field) (*FsResp, error) {
	r := &FsResp{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidFsRespList:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				r.List, err = unmarshalFsList(inner)
			}
		case fidFsRespStat:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				r.Stat, err = unmarshalFsStat(inner)
			}
		case fidFsRespCRC32:
			r.CRC32, err = f.U32()
		case fidFsRespUsage:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				r.Usage, err = unmarshalFsUsage(inner)
			}
		case fidFsRespSize:
			r.Size, err = f.U64()
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func unmarshalFsList(fields []tlv.Field) (*FsList, error) {
	l := &FsList{Entries: make([]FsDirent, 0)}
	for _, f := range tlv.GetAll(fields, fidListEntry) {
		inner, err := f.Msg()
		if err != nil {
			return nil, err
		}
		d, err := unmarshalFsDirent(inner)
		if err != nil {
			return nil, err
		}
		l.Entries = append(l.Entries, *d)
	}
	if f, ok := tlv.GetField(fields, fidListTotal); ok {
		v, err := f.U32()
		if err != nil {
			return nil, err
		}
		l.TotalSize = v
	}
	return l, nil
}

func unmarshalNvsAction(fields []tlv.Field) (*NvsActionReq, error) {
	a := &NvsActionReq{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidNvsType:
			var v uint8
			if v, err = f.U8(); err == nil {
				a.Type = NvsActionType(v)
			}
		case fidNvsNamespace:
			a.Namespace, err = f.String()
		case fidNvsKey:
			a.Key, err = f.String()
		case fidNvsReadType:
			var v uint8
			if v, err = f.U8(); err == nil {
				a.ReadType = NvsValueType(v)
			}
		case fidNvsWData:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				a.WData, err = unmarshalNvsValue(inner)
			}
		case fidNvsListOffset:
			a.ListOffset, err = f.U32()
		}
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func unmarshalNvsValue(fields []tlv.Field) (*NvsValue, error) {
	v := &NvsValue{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidValType:
			var t uint8
			if t, err = f.U8(); err == nil {
				v.Type = NvsValueType(t)
			}
		case fidValNumeric:
			v.Numeric, err = f.U64()
		case fidValString:
			v.Str, err = f.String()
		case fidValBlob:
			v.Blob, err = f.Bytes()
		}
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func unmarshalNvsEntry(fields []tlv.Field) (*NvsEntry, error) {
	e := &NvsEntry{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidEntryNamespace:
			e.Namespace, err = f.String()
		case fidEntryKey:
			e.Key, err = f.String()
		case fidEntryType:
			var t uint8
			if t, err = f.U8(); err == nil {
				e.Type = NvsValueType(t)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

func unmarshalNvsResp(fields []tlv.Field) (*NvsResp, error) {
	r := &NvsResp{}
	for _, f := range fields {
		var err error
		switch f.ID {
		case fidNvsRespRData:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				r.RData, err = unmarshalNvsValue(inner)
			}
		case fidNvsRespEntries:
			var inner []tlv.Field
			if inner, err = f.Msg(); err == nil {
				r.Entries, err = unmarshalNvsList(inner)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func unmarshalNvsList(fields []tlv.Field) (*NvsList, error) {
	l := &NvsList{Entries: make([]NvsEntry, 0)}
	for _, f := range tlv.GetAll(fields, fidListEntry) {
		inner, err := f.Msg()
		if err != nil {
			return nil, err
		}
		e, err := unmarshalNvsEntry(inner)
		if err != nil {
			return nil, err
		}
		l.Entries = append(l.Entries, *e)
	}
	if f, ok := tlv.GetField(fields, fidListTotal); ok {
		v, err := f.U32()
		if err != nil {
			return nil, err
		}
		l.TotalEntries = v
	}
	return l, nil
}
