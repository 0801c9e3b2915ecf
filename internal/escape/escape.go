// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package escape converts between operator text and raw message bytes.
//
// A hex escape is a backslash followed by exactly two hex digits: `\0A` is
// the byte 0x0A. A backslash not followed by two hex digits is literal.
package escape

import "strings"

// Decode replaces every hex escape in s with the byte it names.
func Decode(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, s[i])
	}
	return out
}

// Encode renders msg as text that Decode maps back to msg. Printable ASCII
// other than the backslash is kept; every other byte becomes a hex escape.
func Encode(msg []byte) string {
	const digits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(msg))
	for _, c := range msg {
		if c >= 0x20 && c < 0x7F && c != '\\' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('\\')
		b.WriteByte(digits[c>>4])
		b.WriteByte(digits[c&0x0F])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
