package responder

import (
	"hash/crc32"
	"io"

	"github.com/badgeops/badgelink/internal/protocol"
	"github.com/badgeops/badgelink/internal/store"
)

type xferKind int

const (
	xferIdle xferKind = iota
	xferUpload
	xferDownload
)

// xferState is the explicit transfer state owned by one responder instance.
// It exists only between the opening action request and the terminating
// Finish or Abort signal.
type xferState struct {
	kind xferKind

	up         store.Upload
	expectSize uint64
	expectCRC  uint32

	down store.Download
	size uint64

	// pos is the contiguous high-water mark for uploads and the pull cursor
	// for downloads.
	pos uint64
}

func (x *xferState) reset() {
	if x.up != nil {
		_ = x.up.Discard()
	}
	if x.down != nil {
		_ = x.down.Close()
	}
	*x = xferState{}
}

func (x *xferState) openUpload(up store.Upload, size uint64, crc uint32) {
	*x = xferState{kind: xferUpload, up: up, expectSize: size, expectCRC: crc}
}

func (x *xferState) openDownload(down store.Download) {
	*x = xferState{kind: xferDownload, down: down, size: down.Size()}
}

// handleChunk accepts one upload chunk. A repeated or trailing position is
// an idempotent overwrite; a position beyond the high-water mark would leave
// a gap and is rejected immediately.
func (r *Responder) handleChunk(c *protocol.Chunk) *protocol.Response {
	if r.xfer.kind != xferUpload {
		return status(protocol.StatusMalformed)
	}
	if len(c.Data) > protocol.MaxChunkData {
		return status(protocol.StatusMalformed)
	}
	if c.Position > r.xfer.pos {
		return status(protocol.StatusMalformed)
	}
	end := c.Position + uint64(len(c.Data))
	if end > r.xfer.expectSize {
		return status(protocol.StatusMalformed)
	}
	if len(c.Data) > 0 {
		if _, err := r.xfer.up.WriteAt(c.Data, int64(c.Position)); err != nil {
			r.xfer.reset()
			return status(protocol.StatusInternalError)
		}
	}
	if end > r.xfer.pos {
		r.xfer.pos = end
	}
	// Ack carries the accepted position so a dropped ack can be detected.
	return &protocol.Response{
		Status:        protocol.StatusOk,
		DownloadChunk: &protocol.Chunk{Position: c.Position, Data: []byte{}},
	}
}

func (r *Responder) handleXfer(sig protocol.XferSignal) *protocol.Response {
	switch sig {
	case protocol.XferContinue:
		return r.xferContinue()
	case protocol.XferAbort:
		return r.xferAbort()
	case protocol.XferFinish:
		return r.xferFinish()
	default:
		return status(protocol.StatusMalformed)
	}
}

func (r *Responder) xferContinue() *protocol.Response {
	if r.xfer.kind == xferIdle {
		return status(protocol.StatusIllegalState)
	}
	if r.xfer.kind != xferDownload {
		return status(protocol.StatusMalformed)
	}
	n := uint64(protocol.MaxChunkData)
	if remaining := r.xfer.size - r.xfer.pos; remaining < n {
		n = remaining
	}
	data := make([]byte, n)
	if n > 0 {
		read, err := r.xfer.down.ReadAt(data, int64(r.xfer.pos))
		if err != nil && err != io.EOF {
			r.xfer.reset()
			return status(protocol.StatusInternalError)
		}
		data = data[:read]
	}
	chunk := &protocol.Chunk{Position: r.xfer.pos, Data: data}
	r.xfer.pos += uint64(len(data))
	return &protocol.Response{Status: protocol.StatusOk, DownloadChunk: chunk}
}

func (r *Responder) xferAbort() *protocol.Response {
	if r.xfer.kind == xferIdle {
		return status(protocol.StatusMalformed)
	}
	r.xfer.reset()
	return status(protocol.StatusOk)
}

// xferFinish validates the transfer as a whole. State returns to Idle
// regardless of outcome.
func (r *Responder) xferFinish() *protocol.Response {
	switch r.xfer.kind {
	case xferIdle:
		return status(protocol.StatusMalformed)
	case xferDownload:
		r.xfer.reset()
		return status(protocol.StatusOk)
	}

	defer r.xfer.reset()
	if r.xfer.pos != r.xfer.expectSize {
		return status(protocol.StatusMalformed)
	}
	if r.xfer.expectCRC != 0 {
		sum, err := stagedCRC32(r.xfer.up, r.xfer.pos)
		if err != nil {
			return status(protocol.StatusInternalError)
		}
		if sum != r.xfer.expectCRC {
			return status(protocol.StatusMalformed)
		}
	}
	if err := r.xfer.up.Commit(); err != nil {
		return status(statusOf(err))
	}
	// Committed: keep reset from discarding into the sink again.
	r.xfer.up = nil
	return status(protocol.StatusOk)
}

func stagedCRC32(up store.Upload, size uint64) (uint32, error) {
	sum := uint32(0)
	buf := make([]byte, protocol.MaxChunkData)
	var off uint64
	for off < size {
		n := uint64(len(buf))
		if remaining := size - off; remaining < n {
			n = remaining
		}
		read, err := up.ReadAt(buf[:n], int64(off))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if read == 0 {
			break
		}
		sum = crc32.Update(sum, crc32.IEEETable, buf[:read])
		off += uint64(read)
	}
	return sum, nil
}
