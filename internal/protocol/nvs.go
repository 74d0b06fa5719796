package protocol

import "fmt"

// NvsValueType enumerates the value kinds the key/value store can hold:
// eight fixed-width integers, a string, or an opaque blob.
type NvsValueType uint8

const (
	NvsTypeUint8 NvsValueType = iota + 1
	NvsTypeInt8
	NvsTypeUint16
	NvsTypeInt16
	NvsTypeUint32
	NvsTypeInt32
	NvsTypeUint64
	NvsTypeInt64
	NvsTypeString
	NvsTypeBlob
)

func (t NvsValueType) String() string {
	switch t {
	case NvsTypeUint8:
		return "u8"
	case NvsTypeInt8:
		return "i8"
	case NvsTypeUint16:
		return "u16"
	case NvsTypeInt16:
		return "i16"
	case NvsTypeUint32:
		return "u32"
	case NvsTypeInt32:
		return "i32"
	case NvsTypeUint64:
		return "u64"
	case NvsTypeInt64:
		return "i64"
	case NvsTypeString:
		return "string"
	case NvsTypeBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// ParseNvsValueType maps the textual kind names used on the command line to
// the wire enumerants.
func ParseNvsValueType(s string) (NvsValueType, error) {
	switch s {
	case "u8":
		return NvsTypeUint8, nil
	case "i8":
		return NvsTypeInt8, nil
	case "u16":
		return NvsTypeUint16, nil
	case "i16":
		return NvsTypeInt16, nil
	case "u32":
		return NvsTypeUint32, nil
	case "i32":
		return NvsTypeInt32, nil
	case "u64":
		return NvsTypeUint64, nil
	case "i64":
		return NvsTypeInt64, nil
	case "str", "string":
		return NvsTypeString, nil
	case "blob", "bytes":
		return NvsTypeBlob, nil
	default:
		return 0, fmt.Errorf("protocol: unknown nvs value type %q", s)
	}
}

// NvsValue is a tagged value. Integer kinds live in Numeric (signed kinds are
// two's-complement encoded into the uint64), string kinds in Str, blob kinds
// in Blob.
type NvsValue struct {
	Type    NvsValueType
	Numeric uint64
	Str     string
	Blob    []byte
}

// IsNumeric reports whether the value kind is one of the integer kinds.
func (v NvsValue) IsNumeric() bool {
	return v.Type >= NvsTypeUint8 && v.Type <= NvsTypeInt64
}

func NvsUint8(v uint8) NvsValue   { return NvsValue{Type: NvsTypeUint8, Numeric: uint64(v)} }
func NvsInt8(v int8) NvsValue     { return NvsValue{Type: NvsTypeInt8, Numeric: uint64(uint8(v))} }
func NvsUint16(v uint16) NvsValue { return NvsValue{Type: NvsTypeUint16, Numeric: uint64(v)} }
func NvsInt16(v int16) NvsValue   { return NvsValue{Type: NvsTypeInt16, Numeric: uint64(uint16(v))} }
func NvsUint32(v uint32) NvsValue { return NvsValue{Type: NvsTypeUint32, Numeric: uint64(v)} }
func NvsInt32(v int32) NvsValue   { return NvsValue{Type: NvsTypeInt32, Numeric: uint64(uint32(v))} }
func NvsUint64(v uint64) NvsValue { return NvsValue{Type: NvsTypeUint64, Numeric: v} }
func NvsInt64(v int64) NvsValue   { return NvsValue{Type: NvsTypeInt64, Numeric: uint64(v)} }
func NvsString(v string) NvsValue { return NvsValue{Type: NvsTypeString, Str: v} }
func NvsBlob(v []byte) NvsValue {
	buf := make([]byte, len(v))
	copy(buf, v)
	return NvsValue{Type: NvsTypeBlob, Blob: buf}
}
