package responder

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/badgeops/badgelink/internal/logging"
	"github.com/badgeops/badgelink/internal/protocol"
	"github.com/badgeops/badgelink/internal/protocol/frame"
	"github.com/badgeops/badgelink/internal/store"
)

// Config wires the storage collaborators into a responder. Any collaborator
// left nil answers its actions with NotSupported.
type Config struct {
	Appfs store.Appfs
	Fs    store.Fs
	Nvs   store.Nvs
}

// Responder owns one link's protocol state. A process managing several links
// owns one Responder per link; transfer state never crosses instances.
type Responder struct {
	appfs store.Appfs
	fs    store.Fs
	nvs   store.Nvs
	xfer  xferState
	log   zerolog.Logger
}

func New(cfg Config) *Responder {
	return &Responder{
		appfs: cfg.Appfs,
		fs:    cfg.Fs,
		nvs:   cfg.Nvs,
		log:   logging.Component("responder"),
	}
}

// Serve reads frames from rw and writes one response frame per request until
// the context is cancelled or the transport fails. All protocol-visible side
// effects happen on this single goroutine; each request runs to completion
// before the next frame is read.
func (r *Responder) Serve(ctx context.Context, rw io.ReadWriter) error {
	sc := frame.NewScanner(rw)
	w := frame.NewWriter(rw)
	for {
		if err := ctx.Err(); err != nil {
			r.Reset()
			return err
		}
		payload, err := sc.Next()
		if err != nil {
			var fe *frame.FramingError
			if errors.As(err, &fe) {
				// Stream corrupt but realigned; ask the peer to resync.
				r.log.Warn().Err(fe).Msg("framing error, requesting resync")
				r.Reset()
				if werr := r.writeEnvelope(w, &protocol.Envelope{Sync: true}); werr != nil {
					return werr
				}
				continue
			}
			// Transport gone: an immediate reset to Idle.
			r.Reset()
			return err
		}

		env, err := protocol.UnmarshalEnvelope(payload)
		if err != nil {
			r.log.Warn().Err(err).Msg("undecodable envelope")
			reply := &protocol.Envelope{Sync: true}
			if serial, ok := protocol.PeekSerial(payload); ok {
				reply = &protocol.Envelope{
					Serial:   serial,
					Response: status(protocol.StatusMalformed),
				}
			}
			if werr := r.writeEnvelope(w, reply); werr != nil {
				return werr
			}
			continue
		}

		if werr := r.writeEnvelope(w, r.Handle(env)); werr != nil {
			return werr
		}
	}
}

func (r *Responder) writeEnvelope(w *frame.Writer, env *protocol.Envelope) error {
	payload, err := env.MarshalBinary()
	if err != nil {
		return err
	}
	return w.WriteFrame(payload)
}

// Handle processes one envelope and returns the reply envelope. The reply
// always echoes the request serial.
func (r *Responder) Handle(env *protocol.Envelope) *protocol.Envelope {
	if env.Sync {
		// Resynchronization: drop any open transfer, echo the serial.
		r.log.Debug().Uint32("serial", env.Serial).Msg("sync")
		r.Reset()
		return &protocol.Envelope{Serial: env.Serial, Sync: true}
	}
	resp := r.dispatch(env.Request)
	if resp.Status != protocol.StatusOk {
		r.log.Debug().
			Uint32("serial", env.Serial).
			Stringer("status", resp.Status).
			Msg("request failed")
	}
	return &protocol.Envelope{Serial: env.Serial, Response: resp}
}

func (r *Responder) dispatch(req *protocol.Request) *protocol.Response {
	if req == nil {
		return status(protocol.StatusMalformed)
	}
	switch {
	case req.UploadChunk != nil:
		return r.handleChunk(req.UploadChunk)
	case req.XferControl != protocol.XferNone:
		return r.handleXfer(req.XferControl)
	case req.AppfsAction != nil:
		if r.xfer.kind != xferIdle {
			return status(protocol.StatusIllegalState)
		}
		return r.handleAppfs(req.AppfsAction)
	case req.FsAction != nil:
		if r.xfer.kind != xferIdle {
			return status(protocol.StatusIllegalState)
		}
		return r.handleFs(req.FsAction)
	case req.NvsAction != nil:
		if r.xfer.kind != xferIdle {
			return status(protocol.StatusIllegalState)
		}
		return r.handleNvs(req.NvsAction)
	case req.StartApp != nil:
		// Starting an app tears down the environment a transfer depends on;
		// the initiator must Finish or Abort first.
		if r.xfer.kind != xferIdle {
			return status(protocol.StatusIllegalState)
		}
		return r.handleStartApp(req.StartApp)
	default:
		return status(protocol.StatusMalformed)
	}
}

// Reset forces the transfer state machine back to Idle, discarding any
// partial data. Called on sync, framing recovery, and transport loss.
func (r *Responder) Reset() {
	r.xfer.reset()
}
