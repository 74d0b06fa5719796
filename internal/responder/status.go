package responder

import (
	"errors"

	"github.com/badgeops/badgelink/internal/protocol"
	"github.com/badgeops/badgelink/internal/store"
)

// statusOf translates a collaborator error to the nearest status code.
// Unrecognized errors collapse to InternalError so local detail never leaks
// onto the wire.
func statusOf(err error) protocol.StatusCode {
	switch {
	case err == nil:
		return protocol.StatusOk
	case errors.Is(err, store.ErrNotFound):
		return protocol.StatusNotFound
	case errors.Is(err, store.ErrExists):
		return protocol.StatusExists
	case errors.Is(err, store.ErrIsDir):
		return protocol.StatusIsDir
	case errors.Is(err, store.ErrIsFile):
		return protocol.StatusIsFile
	case errors.Is(err, store.ErrNotEmpty):
		return protocol.StatusNotEmpty
	case errors.Is(err, store.ErrNoSpace):
		return protocol.StatusNoSpace
	case errors.Is(err, store.ErrNotSupported):
		return protocol.StatusNotSupported
	case errors.Is(err, store.ErrInvalid):
		return protocol.StatusMalformed
	default:
		return protocol.StatusInternalError
	}
}

func status(code protocol.StatusCode) *protocol.Response {
	return &protocol.Response{Status: code}
}
