package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Limits carried over from the device firmware contract.
const (
	// MaxChunkData is the negotiated maximum chunk payload.
	MaxChunkData = 4096

	MaxNvsName   = 15
	MaxNvsString = 4095
	MaxAppSlug   = 47
	MaxAppTitle  = 63
	MaxAppArg    = 127
	MaxFsPath    = 1023
)

var errNulByte = errors.New("contains a null byte")

func checkName(kind, v string, max int, allowEmpty bool) error {
	if v == "" {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("protocol: %s cannot be empty", kind)
	}
	if len(v) > max {
		return fmt.Errorf("protocol: %s longer than %d bytes", kind, max)
	}
	if strings.ContainsRune(v, 0) {
		return fmt.Errorf("protocol: %s %w", kind, errNulByte)
	}
	return nil
}

// ValidateNvsName checks an NVS namespace or key.
func ValidateNvsName(v string) error { return checkName("nvs namespace/key", v, MaxNvsName, false) }

// ValidateNvsNamespaceFilter checks the optional namespace filter of an NVS
// List action, where empty means all namespaces.
func ValidateNvsNamespaceFilter(v string) error {
	return checkName("nvs namespace", v, MaxNvsName, true)
}

// ValidateAppSlug checks an AppFS slug.
func ValidateAppSlug(v string) error { return checkName("appfs slug", v, MaxAppSlug, false) }

// ValidateAppTitle checks an AppFS title.
func ValidateAppTitle(v string) error { return checkName("appfs title", v, MaxAppTitle, false) }

// ValidateAppArg checks a StartApp argument, which may be empty.
func ValidateAppArg(v string) error { return checkName("app argument", v, MaxAppArg, true) }

// ValidateFsPath checks a filesystem path.
func ValidateFsPath(v string) error { return checkName("path", v, MaxFsPath, false) }

// ValidateNvsValue checks the size limits of a value to be written.
func ValidateNvsValue(v NvsValue) error {
	switch {
	case v.Type == NvsTypeString && len(v.Str) > MaxNvsString:
		return fmt.Errorf("protocol: nvs string longer than %d bytes", MaxNvsString)
	case v.Type == NvsTypeBlob && len(v.Blob) > MaxChunkData:
		return fmt.Errorf("protocol: nvs blob longer than %d bytes", MaxChunkData)
	case v.Type == 0 || v.Type > NvsTypeBlob:
		return fmt.Errorf("protocol: invalid nvs value type %d", v.Type)
	}
	return nil
}
