package link

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/badgeops/badgelink/internal/logging"
	"github.com/badgeops/badgelink/internal/protocol"
	"github.com/badgeops/badgelink/internal/protocol/frame"
)

var (
	// ErrTimeout reports that no response arrived within the caller's
	// window. The exchange is abandoned; the caller decides whether to
	// retry.
	ErrTimeout = errors.New("link: response timed out")
	// ErrResync reports that the responder requested resynchronization
	// mid-exchange. The link must Sync before the next operation.
	ErrResync = errors.New("link: responder requested resync")
	// ErrMissingResponse reports a correlated envelope with no response
	// body.
	ErrMissingResponse = errors.New("link: envelope missing response")
	// ErrClosed reports that the transport reader has stopped.
	ErrClosed = errors.New("link: closed")
	// ErrBadPosition reports a download chunk at an unexpected offset.
	ErrBadPosition = errors.New("link: incorrect chunk position")
	// ErrSyncFailed reports that the sync handshake exhausted its tries.
	ErrSyncFailed = errors.New("link: sync failed")
)

type inbound struct {
	env *protocol.Envelope
	err error
}

// Link is one initiator endpoint. All exchanges are serialized: at most one
// request is outstanding at a time.
type Link struct {
	mu     sync.Mutex
	w      *frame.Writer
	cfg    Config
	serial uint32
	in     chan inbound
	log    zerolog.Logger
}

// New wraps an established byte stream. The caller should Sync before the
// first operation; Connect does both.
func New(conn io.ReadWriter, cfg Config) *Link {
	l := &Link{
		w:   frame.NewWriter(conn),
		cfg: cfg,
		in:  make(chan inbound, 1),
		log: logging.Component("link"),
	}
	go l.readLoop(frame.NewScanner(conn))
	return l
}

// Connect wraps conn, separates the stream from anything the responder has
// already buffered, and performs the sync handshake.
func Connect(conn io.ReadWriter, cfg Config) (*Link, error) {
	l := New(conn, cfg)
	if err := l.w.WriteDelimiter(); err != nil {
		return nil, err
	}
	if err := l.Sync(); err != nil {
		return nil, err
	}
	return l, nil
}

// readLoop decodes inbound frames on a dedicated goroutine and hands them to
// the waiting exchange. It exits on transport failure.
func (l *Link) readLoop(sc *frame.Scanner) {
	for {
		payload, err := sc.Next()
		if err != nil {
			var fe *frame.FramingError
			if errors.As(err, &fe) {
				l.in <- inbound{err: fe}
				continue
			}
			l.in <- inbound{err: err}
			close(l.in)
			return
		}
		env, err := protocol.UnmarshalEnvelope(payload)
		if err != nil {
			l.in <- inbound{err: &frame.FramingError{Cause: err}}
			continue
		}
		l.in <- inbound{env: env}
	}
}

// await blocks for the envelope matching serial, discarding stale
// correlations with a diagnostic.
func (l *Link) await(serial uint32, timeout time.Duration) (*protocol.Envelope, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case in, ok := <-l.in:
			if !ok {
				return nil, ErrClosed
			}
			if in.err != nil {
				return nil, in.err
			}
			if in.env.Sync && in.env.Serial != serial {
				return nil, ErrResync
			}
			if in.env.Serial != serial {
				// Correlation bug or a stale reply from an abandoned
				// exchange; not a protocol status.
				l.log.Warn().
					Uint32("serial", in.env.Serial).
					Uint32("want", serial).
					Msg("discarding unmatched response")
				continue
			}
			return in.env, nil
		case <-deadline.C:
			return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
	}
}

// Sync synchronizes the serial counter with the responder and resets any
// transfer state on both sides.
func (l *Link) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.syncLocked()
}

func (l *Link) syncLocked() error {
	tries := l.cfg.SyncTries
	if tries <= 0 {
		tries = 1
	}
	var lastErr error
	for i := 0; i < tries; i++ {
		l.serial = rand.Uint32()
		if err := l.send(&protocol.Envelope{Serial: l.serial, Sync: true}); err != nil {
			return err
		}
		env, err := l.await(l.serial, l.cfg.SyncTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		if !env.Sync {
			lastErr = fmt.Errorf("%w: reply is not a sync envelope", ErrSyncFailed)
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSyncFailed, lastErr)
}

func (l *Link) send(env *protocol.Envelope) error {
	payload, err := env.MarshalBinary()
	if err != nil {
		return err
	}
	return l.w.WriteFrame(payload)
}

// Exchange performs one request/response cycle. A non-Ok status is returned
// as *protocol.StatusError alongside the response, whose payload is advisory
// only in that case.
func (l *Link) Exchange(req *protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exchangeLocked(req, timeout)
}

func (l *Link) exchangeLocked(req *protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	l.serial++
	env := &protocol.Envelope{Serial: l.serial, Request: req}
	if err := l.send(env); err != nil {
		return nil, err
	}
	reply, err := l.await(l.serial, timeout)
	if err != nil {
		return nil, err
	}
	if reply.Sync {
		return nil, ErrResync
	}
	if reply.Response == nil {
		return nil, ErrMissingResponse
	}
	resp := reply.Response
	if resp.Status != protocol.StatusOk {
		return resp, &protocol.StatusError{Code: resp.Status}
	}
	return resp, nil
}
