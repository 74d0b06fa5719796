package frame

import "errors"

var (
	errCOBSZeroByte = errors.New("frame: zero byte inside cobs data")
	errCOBSLength   = errors.New("frame: cobs code exceeds input")
)

// cobsEncode stuffs src so the output contains no zero bytes. Worst case
// grows the input by one byte per 254.
func cobsEncode(src []byte) []byte {
	out := make([]byte, 0, len(src)+1+len(src)/254)
	codeIdx := 0
	out = append(out, 0)
	code := byte(1)
	for _, b := range src {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeIdx] = code
	return out
}

// cobsDecode reverses cobsEncode. src must not contain zero bytes; the
// delimiter is stripped by the caller.
func cobsDecode(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		code := src[i]
		if code == 0 {
			return nil, errCOBSZeroByte
		}
		i++
		n := int(code) - 1
		if i+n > len(src) {
			return nil, errCOBSLength
		}
		out = append(out, src[i:i+n]...)
		i += n
		if code != 0xFF && i < len(src) {
			out = append(out, 0)
		}
	}
	return out, nil
}
