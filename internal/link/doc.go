// Package link implements the initiator side of the badgelink protocol:
// serial correlation, the one-outstanding-exchange discipline, sync
// recovery, and the high-level AppFS / Fs / NVS / StartApp operations.
//
// Ownership boundary:
// - serial assignment and response matching
// - caller-supplied timeouts (no automatic request retry; chunk resend
//   within an open transfer is the one sanctioned exception)
// - chunked upload/download drivers
package link
