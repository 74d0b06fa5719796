package protocol

import (
	"strings"
	"testing"
)

func TestValidateNames(t *testing.T) {
	if err := ValidateNvsName("wifi"); err != nil {
		t.Errorf("plain key: %v", err)
	}
	if err := ValidateNvsName(""); err == nil {
		t.Error("empty key accepted")
	}
	if err := ValidateNvsName(strings.Repeat("a", MaxNvsName+1)); err == nil {
		t.Error("oversized key accepted")
	}
	if err := ValidateNvsName("a\x00b"); err == nil {
		t.Error("null byte accepted")
	}
	if err := ValidateNvsNamespaceFilter(""); err != nil {
		t.Errorf("empty namespace filter should pass: %v", err)
	}
	if err := ValidateAppArg(""); err != nil {
		t.Errorf("empty app arg should pass: %v", err)
	}
	if err := ValidateAppSlug(strings.Repeat("s", MaxAppSlug)); err != nil {
		t.Errorf("slug at the limit: %v", err)
	}
	if err := ValidateFsPath(strings.Repeat("p", MaxFsPath+1)); err == nil {
		t.Error("oversized path accepted")
	}
}

func TestValidateNvsValue(t *testing.T) {
	if err := ValidateNvsValue(NvsUint32(7)); err != nil {
		t.Errorf("u32: %v", err)
	}
	if err := ValidateNvsValue(NvsString(strings.Repeat("x", MaxNvsString))); err != nil {
		t.Errorf("string at the limit: %v", err)
	}
	if err := ValidateNvsValue(NvsString(strings.Repeat("x", MaxNvsString+1))); err == nil {
		t.Error("oversized string accepted")
	}
	if err := ValidateNvsValue(NvsBlob(make([]byte, MaxChunkData+1))); err == nil {
		t.Error("oversized blob accepted")
	}
	if err := ValidateNvsValue(NvsValue{}); err == nil {
		t.Error("untyped value accepted")
	}
}

func TestParseNvsValueType(t *testing.T) {
	for _, name := range []string{"u8", "i8", "u16", "i16", "u32", "i32", "u64", "i64", "str", "blob"} {
		if _, err := ParseNvsValueType(name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := ParseNvsValueType("float"); err == nil {
		t.Error("unknown type name accepted")
	}
}
