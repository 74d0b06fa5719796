package responder

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/badgeops/badgelink/internal/protocol"
	"github.com/badgeops/badgelink/internal/store"
	"github.com/badgeops/badgelink/internal/testutil/testlog"
)

type fixture struct {
	r     *Responder
	fs    *store.MemFs
	appfs *store.MemAppfs
	nvs   *store.MemNvs
}

func newFixture(t *testing.T) *fixture {
	testlog.Start(t)
	f := &fixture{
		fs:    store.NewMemFs(0),
		appfs: store.NewMemAppfs(0),
		nvs:   store.NewMemNvs(),
	}
	f.r = New(Config{Appfs: f.appfs, Fs: f.fs, Nvs: f.nvs})
	return f
}

var nextSerial uint32

// ask runs one exchange through the responder and returns the response body.
func ask(t *testing.T, r *Responder, req *protocol.Request) *protocol.Response {
	t.Helper()
	nextSerial++
	reply := r.Handle(&protocol.Envelope{Serial: nextSerial, Request: req})
	if reply.Serial != nextSerial {
		t.Fatalf("reply serial: got %d want %d", reply.Serial, nextSerial)
	}
	if reply.Response == nil {
		t.Fatalf("reply has no response body: %+v", reply)
	}
	return reply.Response
}

func wantStatus(t *testing.T, resp *protocol.Response, code protocol.StatusCode) {
	t.Helper()
	if resp.Status != code {
		t.Fatalf("status: got %v, want %v", resp.Status, code)
	}
}

// uploadFile drives a complete fs upload through the state machine.
func (f *fixture) uploadFile(t *testing.T, path string, data []byte) {
	t.Helper()
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type:  protocol.FsActionUpload,
		Path:  path,
		Size:  uint64(len(data)),
		CRC32: crc32.ChecksumIEEE(data),
	}})
	wantStatus(t, resp, protocol.StatusOk)
	for pos := 0; pos < len(data); pos += protocol.MaxChunkData {
		end := pos + protocol.MaxChunkData
		if end > len(data) {
			end = len(data)
		}
		resp = ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{
			Position: uint64(pos), Data: data[pos:end],
		}})
		wantStatus(t, resp, protocol.StatusOk)
	}
	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferFinish})
	wantStatus(t, resp, protocol.StatusOk)
}

func TestUploadRoundTrip(t *testing.T) {
	f := newFixture(t)
	data := bytes.Repeat([]byte("badger"), 2000) // spans multiple chunks
	f.uploadFile(t, "/big.bin", data)

	sum, err := f.fs.Crc32("/big.bin")
	if err != nil {
		t.Fatalf("crc32: %v", err)
	}
	if sum != crc32.ChecksumIEEE(data) {
		t.Fatal("stored bytes differ from uploaded bytes")
	}
}

func TestUploadCrcMismatchRejectedAtFinish(t *testing.T) {
	f := newFixture(t)
	data := []byte("payload")

	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type:  protocol.FsActionUpload,
		Path:  "/f",
		Size:  uint64(len(data)),
		CRC32: crc32.ChecksumIEEE(data) ^ 1, // wrong on purpose
	}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{Position: 0, Data: data}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferFinish})
	wantStatus(t, resp, protocol.StatusMalformed)

	// Nothing was committed and the machine is Idle again.
	if _, err := f.fs.Stat("/f"); err == nil {
		t.Fatal("rejected upload still created the file")
	}
	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferFinish})
	wantStatus(t, resp, protocol.StatusMalformed)
}

func TestMkdirOnExistingPathIsExists(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionMkdir, Path: "/data",
	}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionMkdir, Path: "/data",
	}})
	wantStatus(t, resp, protocol.StatusExists)
}

func TestRmdirStatusMapping(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionMkdir, Path: "/d",
	}})
	wantStatus(t, resp, protocol.StatusOk)
	f.uploadFile(t, "/d/f", []byte("x"))

	wantStatus(t, ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionRmdir, Path: "/d",
	}}), protocol.StatusNotEmpty)
	wantStatus(t, ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionRmdir, Path: "/d/f",
	}}), protocol.StatusIsFile)
	wantStatus(t, ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionDelete, Path: "/d",
	}}), protocol.StatusIsDir)
	wantStatus(t, ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionStat, Path: "/absent",
	}}), protocol.StatusNotFound)
}

func TestNvsWriteThenRead(t *testing.T) {
	f := newFixture(t)
	val := protocol.NvsUint8(7)

	resp := ask(t, f.r, &protocol.Request{NvsAction: &protocol.NvsActionReq{
		Type: protocol.NvsActionWrite, Namespace: "system", Key: "mode", WData: &val,
	}})
	wantStatus(t, resp, protocol.StatusOk)

	resp = ask(t, f.r, &protocol.Request{NvsAction: &protocol.NvsActionReq{
		Type: protocol.NvsActionRead, Namespace: "system", Key: "mode",
		ReadType: protocol.NvsTypeUint8,
	}})
	wantStatus(t, resp, protocol.StatusOk)
	if resp.Nvs == nil || resp.Nvs.RData == nil {
		t.Fatalf("no value in response: %+v", resp)
	}
	if resp.Nvs.RData.Type != protocol.NvsTypeUint8 || resp.Nvs.RData.Numeric != 7 {
		t.Fatalf("got %+v", resp.Nvs.RData)
	}
}

func TestContinueWhileIdleIsIllegalState(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{XferControl: protocol.XferContinue})
	wantStatus(t, resp, protocol.StatusIllegalState)
}

func TestFinishAndAbortWhileIdleAreMalformed(t *testing.T) {
	f := newFixture(t)
	wantStatus(t, ask(t, f.r, &protocol.Request{XferControl: protocol.XferFinish}), protocol.StatusMalformed)
	wantStatus(t, ask(t, f.r, &protocol.Request{XferControl: protocol.XferAbort}), protocol.StatusMalformed)
}

func TestChunkWhileIdleIsMalformed(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{Data: []byte("x")}})
	wantStatus(t, resp, protocol.StatusMalformed)
}

func TestAbortLeavesTargetUntouched(t *testing.T) {
	f := newFixture(t)
	f.uploadFile(t, "/cfg", []byte("version-1"))

	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionUpload, Path: "/cfg", Size: 9,
	}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{Position: 0, Data: []byte("version-2")}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferAbort})
	wantStatus(t, resp, protocol.StatusOk)

	sum, err := f.fs.Crc32("/cfg")
	if err != nil {
		t.Fatalf("crc32: %v", err)
	}
	if sum != crc32.ChecksumIEEE([]byte("version-1")) {
		t.Fatal("abort published staged bytes")
	}
}

func TestChunkResendIsIdempotent(t *testing.T) {
	f := newFixture(t)
	data := []byte("resend me")

	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionUpload, Path: "/r", Size: uint64(len(data)),
		CRC32: crc32.ChecksumIEEE(data),
	}})
	wantStatus(t, resp, protocol.StatusOk)

	chunk := &protocol.Chunk{Position: 0, Data: data}
	for i := 0; i < 3; i++ { // as if every ack was lost
		resp = ask(t, f.r, &protocol.Request{UploadChunk: chunk})
		wantStatus(t, resp, protocol.StatusOk)
		if resp.DownloadChunk == nil || resp.DownloadChunk.Position != 0 {
			t.Fatalf("ack %d: %+v", i, resp.DownloadChunk)
		}
	}
	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferFinish})
	wantStatus(t, resp, protocol.StatusOk)

	sum, _ := f.fs.Crc32("/r")
	if sum != crc32.ChecksumIEEE(data) {
		t.Fatal("resent chunks corrupted the file")
	}
}

func TestChunkGapRejected(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionUpload, Path: "/g", Size: 100,
	}})
	wantStatus(t, resp, protocol.StatusOk)

	// Skipping ahead would leave bytes 0..49 unwritten.
	resp = ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{
		Position: 50, Data: []byte("late"),
	}})
	wantStatus(t, resp, protocol.StatusMalformed)
}

func TestChunkBeyondDeclaredSizeRejected(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionUpload, Path: "/s", Size: 4,
	}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{
		Position: 0, Data: []byte("too much data"),
	}})
	wantStatus(t, resp, protocol.StatusMalformed)
}

func TestShortFinishRejected(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionUpload, Path: "/short", Size: 10,
	}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{
		Position: 0, Data: []byte("12345"),
	}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferFinish})
	wantStatus(t, resp, protocol.StatusMalformed)

	if _, err := f.fs.Stat("/short"); err == nil {
		t.Fatal("incomplete upload was committed")
	}
}

func TestZeroLengthUpload(t *testing.T) {
	f := newFixture(t)
	f.uploadFile(t, "/empty", nil)

	st, err := f.fs.Stat("/empty")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size != 0 {
		t.Fatalf("size: got %d", st.Size)
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	f := newFixture(t)
	data := bytes.Repeat([]byte{0x5A}, protocol.MaxChunkData+100)
	f.uploadFile(t, "/dl", data)

	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionDownload, Path: "/dl",
	}})
	wantStatus(t, resp, protocol.StatusOk)
	if resp.Fs == nil || resp.Fs.Size != uint64(len(data)) {
		t.Fatalf("open response: %+v", resp.Fs)
	}

	var got []byte
	for uint64(len(got)) < uint64(len(data)) {
		resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferContinue})
		wantStatus(t, resp, protocol.StatusOk)
		c := resp.DownloadChunk
		if c == nil {
			t.Fatal("continue returned no chunk")
		}
		if c.Position != uint64(len(got)) {
			t.Fatalf("chunk position: got %d want %d", c.Position, len(got))
		}
		if len(c.Data) == 0 {
			t.Fatal("empty chunk before end of data")
		}
		got = append(got, c.Data...)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("downloaded bytes differ")
	}

	// Pulling past the end yields an empty chunk at the end position.
	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferContinue})
	wantStatus(t, resp, protocol.StatusOk)
	if c := resp.DownloadChunk; c == nil || c.Position != uint64(len(data)) || len(c.Data) != 0 {
		t.Fatalf("past-end chunk: %+v", resp.DownloadChunk)
	}

	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferFinish})
	wantStatus(t, resp, protocol.StatusOk)
}

func TestContinueDuringUploadIsMalformed(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionUpload, Path: "/u", Size: 4,
	}})
	wantStatus(t, resp, protocol.StatusOk)
	resp = ask(t, f.r, &protocol.Request{XferControl: protocol.XferContinue})
	wantStatus(t, resp, protocol.StatusMalformed)
}

func TestActionsDuringTransferAreIllegalState(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionUpload, Path: "/t", Size: 4,
	}})
	wantStatus(t, resp, protocol.StatusOk)

	wantStatus(t, ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionStat, Path: "/t",
	}}), protocol.StatusIllegalState)
	wantStatus(t, ask(t, f.r, &protocol.Request{NvsAction: &protocol.NvsActionReq{
		Type: protocol.NvsActionList,
	}}), protocol.StatusIllegalState)
	wantStatus(t, ask(t, f.r, &protocol.Request{StartApp: &protocol.StartAppReq{
		Slug: "snake",
	}}), protocol.StatusIllegalState)

	// The rejections did not disturb the open transfer.
	resp = ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{
		Position: 0, Data: []byte("abcd"),
	}})
	wantStatus(t, resp, protocol.StatusOk)
}

func TestSyncResetsOpenTransfer(t *testing.T) {
	f := newFixture(t)
	resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionUpload, Path: "/x", Size: 4,
	}})
	wantStatus(t, resp, protocol.StatusOk)

	reply := f.r.Handle(&protocol.Envelope{Serial: 9999, Sync: true})
	if !reply.Sync || reply.Serial != 9999 {
		t.Fatalf("sync echo: %+v", reply)
	}

	// The transfer is gone; a chunk is now out of place.
	resp = ask(t, f.r, &protocol.Request{UploadChunk: &protocol.Chunk{Data: []byte("ab")}})
	wantStatus(t, resp, protocol.StatusMalformed)
}

func TestStartApp(t *testing.T) {
	f := newFixture(t)
	meta := protocol.AppfsMetadata{Slug: "snake", Title: "Snake", Version: 1, Size: 1}
	up, err := f.appfs.OpenUpload(meta)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := up.WriteAt([]byte{1}, 0); err != nil {
		t.Fatalf("install write: %v", err)
	}
	if err := up.Commit(); err != nil {
		t.Fatalf("install commit: %v", err)
	}

	resp := ask(t, f.r, &protocol.Request{StartApp: &protocol.StartAppReq{
		Slug: "snake", Arg: "level=3",
	}})
	wantStatus(t, resp, protocol.StatusOk)
	if f.appfs.LastStarted.Slug != "snake" || f.appfs.LastStarted.Arg != "level=3" {
		t.Fatalf("got %+v", f.appfs.LastStarted)
	}

	resp = ask(t, f.r, &protocol.Request{StartApp: &protocol.StartAppReq{Slug: "absent"}})
	wantStatus(t, resp, protocol.StatusNotFound)
}

func TestNilCollaboratorsAnswerNotSupported(t *testing.T) {
	r := New(Config{})
	wantStatus(t, ask(t, r, &protocol.Request{FsAction: &protocol.FsActionReq{
		Type: protocol.FsActionList, Path: "/",
	}}), protocol.StatusNotSupported)
	wantStatus(t, ask(t, r, &protocol.Request{AppfsAction: &protocol.AppfsActionReq{
		Type: protocol.FsActionList,
	}}), protocol.StatusNotSupported)
	wantStatus(t, ask(t, r, &protocol.Request{NvsAction: &protocol.NvsActionReq{
		Type: protocol.NvsActionList,
	}}), protocol.StatusNotSupported)
	wantStatus(t, ask(t, r, &protocol.Request{StartApp: &protocol.StartAppReq{
		Slug: "x",
	}}), protocol.StatusNotSupported)
}

func TestAppfsMkdirNotSupported(t *testing.T) {
	f := newFixture(t)
	wantStatus(t, ask(t, f.r, &protocol.Request{AppfsAction: &protocol.AppfsActionReq{
		Type: protocol.FsActionMkdir, Slug: "dir",
	}}), protocol.StatusNotSupported)
}

func TestNvsWriteWithoutValueIsMalformed(t *testing.T) {
	f := newFixture(t)
	wantStatus(t, ask(t, f.r, &protocol.Request{NvsAction: &protocol.NvsActionReq{
		Type: protocol.NvsActionWrite, Namespace: "ns", Key: "k",
	}}), protocol.StatusMalformed)
}

func TestEmptyRequestIsMalformed(t *testing.T) {
	f := newFixture(t)
	reply := f.r.Handle(&protocol.Envelope{Serial: 1})
	if reply.Response == nil || reply.Response.Status != protocol.StatusMalformed {
		t.Fatalf("got %+v", reply)
	}
}

func TestListPaginationIsStable(t *testing.T) {
	f := newFixture(t)
	f.fs.PageSize = 2
	for _, p := range []string{"/e", "/b", "/a", "/d", "/c"} {
		f.uploadFile(t, p, []byte("x"))
	}

	var names []string
	for {
		resp := ask(t, f.r, &protocol.Request{FsAction: &protocol.FsActionReq{
			Type: protocol.FsActionList, Path: "/", ListOffset: uint32(len(names)),
		}})
		wantStatus(t, resp, protocol.StatusOk)
		l := resp.Fs.List
		if l.TotalSize != 5 {
			t.Fatalf("total: got %d", l.TotalSize)
		}
		if len(l.Entries) == 0 {
			break
		}
		for _, d := range l.Entries {
			names = append(names, d.Name)
		}
	}
	want := []string{"a", "b", "c", "d", "e"}
	if len(names) != len(want) {
		t.Fatalf("got %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entry %d: got %q want %q", i, names[i], want[i])
		}
	}
}
