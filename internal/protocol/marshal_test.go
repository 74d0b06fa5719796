package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/badgeops/badgelink/internal/protocol/tlv"
)

func roundTrip(t *testing.T, in *Envelope) *Envelope {
	t.Helper()
	payload, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := UnmarshalEnvelope(payload)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestEnvelopeSyncRoundTrip(t *testing.T) {
	out := roundTrip(t, &Envelope{Serial: 0xCAFEBABE, Sync: true})
	if out.Serial != 0xCAFEBABE || !out.Sync || out.Request != nil || out.Response != nil {
		t.Fatalf("got %+v", out)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		req  *Request
	}{
		{"chunk", &Request{UploadChunk: &Chunk{Position: 4096, Data: []byte("abc")}}},
		{"xfer", &Request{XferControl: XferFinish}},
		{"start", &Request{StartApp: &StartAppReq{Slug: "snake", Arg: "--hard"}}},
		{"appfs", &Request{AppfsAction: &AppfsActionReq{
			Type: FsActionUpload,
			Metadata: &AppfsMetadata{
				Slug: "snake", Title: "Snake", Version: 2, Size: 1234,
			},
			CRC32: 0xDEADBEEF,
		}}},
		{"fs", &Request{FsAction: &FsActionReq{
			Type: FsActionDownload, Path: "/data/save.bin",
		}}},
		{"nvs-write", &Request{NvsAction: &NvsActionReq{
			Type:      NvsActionWrite,
			Namespace: "system",
			Key:       "owner",
			WData:     &NvsValue{Type: NvsTypeString, Str: "me"},
		}}},
		{"nvs-read", &Request{NvsAction: &NvsActionReq{
			Type:      NvsActionRead,
			Namespace: "system",
			Key:       "boots",
			ReadType:  NvsTypeUint32,
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := roundTrip(t, &Envelope{Serial: 7, Request: tc.req})
			if out.Serial != 7 {
				t.Fatalf("serial: got %d", out.Serial)
			}
			if !reflect.DeepEqual(out.Request, tc.req) {
				t.Fatalf("got %+v, want %+v", out.Request, tc.req)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		resp *Response
	}{
		{"status-only", &Response{Status: StatusNotFound}},
		{"chunk", &Response{DownloadChunk: &Chunk{Position: 8192, Data: []byte{1, 2}}}},
		{"appfs-list", &Response{Appfs: &AppfsResp{List: &AppfsList{
			Entries:   []AppfsMetadata{{Slug: "a", Title: "A", Version: 1, Size: 10}},
			TotalSize: 3,
		}}}},
		{"fs-stat", &Response{Fs: &FsResp{Stat: &FsStat{Size: 9, Mtime: 100, Ctime: 90}}}},
		{"fs-list", &Response{Fs: &FsResp{List: &FsList{
			Entries: []FsDirent{
				{Name: "a.txt", Size: 3, Mtime: 1},
				{Name: "sub", IsDir: true},
			},
			TotalSize: 2,
		}}}},
		{"nvs-value", &Response{Nvs: &NvsResp{RData: &NvsValue{Type: NvsTypeUint8, Numeric: 7}}}},
		{"nvs-list", &Response{Nvs: &NvsResp{Entries: &NvsList{
			Entries:      []NvsEntry{{Namespace: "sys", Key: "k", Type: NvsTypeBlob}},
			TotalEntries: 1,
		}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := roundTrip(t, &Envelope{Serial: 9, Response: tc.resp})
			if !reflect.DeepEqual(out.Response, tc.resp) {
				t.Fatalf("got %+v, want %+v", out.Response, tc.resp)
			}
		})
	}
}

func TestMarshalBodyConflict(t *testing.T) {
	env := &Envelope{
		Serial:   1,
		Request:  &Request{XferControl: XferAbort},
		Response: &Response{},
	}
	if _, err := env.MarshalBinary(); !errors.Is(err, ErrBodyConflict) {
		t.Fatalf("got %v, want ErrBodyConflict", err)
	}
}

func TestMarshalEmptyRequest(t *testing.T) {
	env := &Envelope{Serial: 1, Request: &Request{}}
	if _, err := env.MarshalBinary(); !errors.Is(err, ErrEmptyUnion) {
		t.Fatalf("got %v, want ErrEmptyUnion", err)
	}
}

func TestMarshalRequestUnionConflict(t *testing.T) {
	env := &Envelope{Serial: 1, Request: &Request{
		XferControl: XferContinue,
		StartApp:    &StartAppReq{Slug: "x"},
	}}
	if _, err := env.MarshalBinary(); !errors.Is(err, ErrUnionConflict) {
		t.Fatalf("got %v, want ErrUnionConflict", err)
	}
}

func TestMarshalChunkTooLong(t *testing.T) {
	env := &Envelope{Serial: 1, Request: &Request{
		UploadChunk: &Chunk{Data: make([]byte, MaxChunkData+1)},
	}}
	if _, err := env.MarshalBinary(); !errors.Is(err, ErrChunkTooLong) {
		t.Fatalf("got %v, want ErrChunkTooLong", err)
	}
}

func TestUnmarshalMissingSerial(t *testing.T) {
	payload := tlv.EncodeFields([]tlv.Field{tlv.NewBool(2, true)})
	if _, err := UnmarshalEnvelope(payload); !errors.Is(err, ErrMissingSerial) {
		t.Fatalf("got %v, want ErrMissingSerial", err)
	}
}

func TestUnmarshalInvalidXferSignal(t *testing.T) {
	payload := tlv.EncodeFields([]tlv.Field{
		tlv.NewU32(1, 5),
		tlv.NewMsg(3, []tlv.Field{tlv.NewU8(6, 9)}),
	})
	if _, err := UnmarshalEnvelope(payload); err == nil {
		t.Fatal("expected an error for out-of-range xfer signal")
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	env := &Envelope{Serial: 3, Request: &Request{XferControl: XferContinue}}
	payload, err := env.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// A future peer appends a field this version does not know.
	payload = append(payload, tlv.EncodeField(tlv.Field{ID: 400, Type: 7, Value: []byte{1}})...)

	out, err := UnmarshalEnvelope(payload)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Serial != 3 || out.Request == nil || out.Request.XferControl != XferContinue {
		t.Fatalf("got %+v", out)
	}
}

func TestPeekSerial(t *testing.T) {
	env := &Envelope{Serial: 42, Sync: true}
	payload, err := env.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	serial, ok := PeekSerial(payload)
	if !ok || serial != 42 {
		t.Fatalf("got %d, %v", serial, ok)
	}
	if _, ok := PeekSerial([]byte{0xFF}); ok {
		t.Fatal("peek on garbage should fail")
	}
}

func TestZeroValuedOptionalsOmitted(t *testing.T) {
	// A plain Ok response is just serial + status.
	env := &Envelope{Serial: 1, Response: &Response{Status: StatusOk}}
	payload, err := env.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("got %d top-level fields, want 2: %+v", len(fields), fields)
	}
}

func TestEmptyChunkDataSurvives(t *testing.T) {
	// The final chunk of a download may be empty; it must still decode as a
	// present chunk, not a nil one.
	out := roundTrip(t, &Envelope{Serial: 1, Response: &Response{
		DownloadChunk: &Chunk{Position: 100, Data: []byte{}},
	}})
	c := out.Response.DownloadChunk
	if c == nil || c.Position != 100 || c.Data == nil || len(c.Data) != 0 {
		t.Fatalf("got %+v", c)
	}
}

func TestNvsValueBlobRoundTrip(t *testing.T) {
	blob := bytes.Repeat([]byte{0xA5}, 16)
	out := roundTrip(t, &Envelope{Serial: 1, Request: &Request{
		NvsAction: &NvsActionReq{
			Type:      NvsActionWrite,
			Namespace: "ns",
			Key:       "k",
			WData:     &NvsValue{Type: NvsTypeBlob, Blob: blob},
		},
	}})
	got := out.Request.NvsAction.WData
	if got == nil || got.Type != NvsTypeBlob || !bytes.Equal(got.Blob, blob) {
		t.Fatalf("got %+v", got)
	}
}
