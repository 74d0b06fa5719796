package protocol

import (
	"errors"
	"fmt"
)

// StatusCode is the sole error-signaling channel of the protocol. Every
// Response carries exactly one.
type StatusCode uint8

const (
	StatusOk StatusCode = iota
	StatusNotSupported
	StatusNotFound
	StatusMalformed
	StatusInternalError
	StatusIllegalState
	StatusNoSpace
	StatusNotEmpty
	StatusIsFile
	StatusIsDir
	StatusExists
)

func (c StatusCode) String() string {
	switch c {
	case StatusOk:
		return "ok"
	case StatusNotSupported:
		return "not supported"
	case StatusNotFound:
		return "not found"
	case StatusMalformed:
		return "malformed"
	case StatusInternalError:
		return "internal error"
	case StatusIllegalState:
		return "illegal state"
	case StatusNoSpace:
		return "no space"
	case StatusNotEmpty:
		return "not empty"
	case StatusIsFile:
		return "is a file"
	case StatusIsDir:
		return "is a directory"
	case StatusExists:
		return "already exists"
	default:
		return fmt.Sprintf("status(%d)", uint8(c))
	}
}

// StatusError carries a non-Ok status code reported by the responder. The
// initiator surfaces these to its caller verbatim.
type StatusError struct {
	Code StatusCode
}

func (e *StatusError) Error() string {
	return "badgelink: " + e.Code.String()
}

// Status extracts the status code from an error returned by an initiator
// operation. Errors that did not originate from a Response report Ok, false.
func Status(err error) (StatusCode, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return StatusOk, false
}
