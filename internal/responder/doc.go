// Package responder implements the device side of the badgelink protocol:
// the frame-by-frame dispatch loop and the chunked-transfer state machine.
//
// Ownership boundary:
// - request routing and response construction
// - transfer state (Idle -> ActionOpen -> Transferring -> Finishing/Aborting)
// - mapping collaborator errors to wire status codes
//
// Storage execution is delegated to the store collaborators; nothing
// implementation specific crosses the link.
package responder
