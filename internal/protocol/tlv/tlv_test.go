package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []Field{
		NewU8(1, 0xAB),
		NewU16(2, 0xBEEF),
		NewU32(3, 0xDEADBEEF),
		NewU64(4, 1<<40),
		NewBool(5, true),
		NewString(6, "hello"),
		NewBytes(7, []byte{0, 1, 2}),
		NewMsg(8, []Field{NewU32(1, 7)}),
	}

	out, err := DecodeFields(EncodeFields(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d fields, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].ID != in[i].ID || out[i].Type != in[i].Type || !bytes.Equal(out[i].Value, in[i].Value) {
			t.Errorf("field %d: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestTypedAccessors(t *testing.T) {
	if v, err := NewU8(1, 200).U8(); err != nil || v != 200 {
		t.Errorf("U8: got %d, %v", v, err)
	}
	if v, err := NewU16(1, 40000).U16(); err != nil || v != 40000 {
		t.Errorf("U16: got %d, %v", v, err)
	}
	if v, err := NewU32(1, 1<<31).U32(); err != nil || v != 1<<31 {
		t.Errorf("U32: got %d, %v", v, err)
	}
	if v, err := NewU64(1, 1<<63).U64(); err != nil || v != 1<<63 {
		t.Errorf("U64: got %d, %v", v, err)
	}
	if v, err := NewBool(1, true).Bool(); err != nil || !v {
		t.Errorf("Bool: got %v, %v", v, err)
	}
	if v, err := NewString(1, "x").String(); err != nil || v != "x" {
		t.Errorf("String: got %q, %v", v, err)
	}
	if v, err := NewBytes(1, []byte{9}).Bytes(); err != nil || !bytes.Equal(v, []byte{9}) {
		t.Errorf("Bytes: got %v, %v", v, err)
	}
}

func TestAccessorTypeMismatch(t *testing.T) {
	f := NewString(1, "nope")
	if _, err := f.U32(); !errors.Is(err, ErrFieldTypeMismatch) {
		t.Fatalf("got %v, want ErrFieldTypeMismatch", err)
	}
}

func TestAccessorBadLength(t *testing.T) {
	f := Field{ID: 1, Type: TypeU32, Value: []byte{1, 2}}
	if _, err := f.U32(); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("got %v, want ErrInvalidLength", err)
	}
}

func TestDecodeTruncatedHeader(t *testing.T) {
	raw := EncodeField(NewU8(1, 5))
	if _, err := DecodeFields(raw[:len(raw)-3]); !errors.Is(err, ErrShortFieldHeader) && !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("got %v, want a short-field error", err)
	}
	if _, err := DecodeFields([]byte{0, 1, 3}); !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("got %v, want ErrShortFieldHeader", err)
	}
}

func TestDecodeTruncatedValue(t *testing.T) {
	raw := EncodeField(NewBytes(4, []byte{1, 2, 3, 4}))
	if _, err := DecodeFields(raw[:len(raw)-1]); !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("got %v, want ErrShortFieldValue", err)
	}
}

func TestUnknownFieldsSurvive(t *testing.T) {
	raw := EncodeFields([]Field{
		NewU8(1, 1),
		{ID: 999, Type: 42, Value: []byte{1, 2, 3}},
		NewU8(2, 2),
	})
	fields, err := DecodeFields(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(fields))
	}
	f, ok := GetField(fields, 999)
	if !ok || f.Type != 42 {
		t.Fatalf("unknown field not preserved: %+v", f)
	}
}

func TestGetAllPreservesOrder(t *testing.T) {
	fields := []Field{
		NewU8(1, 10),
		NewU8(2, 99),
		NewU8(1, 20),
		NewU8(1, 30),
	}
	got := GetAll(fields, 1)
	if len(got) != 3 {
		t.Fatalf("got %d fields, want 3", len(got))
	}
	for i, want := range []uint8{10, 20, 30} {
		v, err := got[i].U8()
		if err != nil || v != want {
			t.Errorf("entry %d: got %d, %v; want %d", i, v, err, want)
		}
	}
}

func TestNestedMsg(t *testing.T) {
	inner := []Field{NewString(1, "a"), NewU32(2, 5)}
	f := NewMsg(3, inner)
	out, err := f.Msg()
	if err != nil {
		t.Fatalf("msg: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d inner fields, want 2", len(out))
	}
	if s, _ := out[0].String(); s != "a" {
		t.Errorf("inner string: got %q", s)
	}
}
