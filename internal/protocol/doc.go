// Package protocol owns the badgelink message schema and its TLV encoding.
//
// Ownership boundary:
// - Envelope / Request / Response unions and their payload types
// - status code taxonomy
// - marshal/unmarshal between schema values and tlv fields
//
// Framing (COBS + CRC32 trailer) lives in protocol/frame; correlation and
// transfer state live in link and responder.
package protocol
