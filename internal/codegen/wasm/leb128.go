package wasm

// appendUleb128 appends v to buf as unsigned LEB128 (spec §4.11
// "Encodings"). This is the encoding used throughout the binary format
// for section sizes, vector lengths, and every index (type, function,
// local).
func appendUleb128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
			continue
		}
		return append(buf, b)
	}
}

// appendSleb128 appends v to buf as signed LEB128. Encoding terminates
// when the remaining bits are all 0 and the last byte's sign bit is 0,
// or all 1 and the last byte's sign bit is 1 (spec §4.11). Go defines
// `>>` on a signed integer as an arithmetic (sign-extending) shift, so
// this satisfies the spec's portability call-out ("the implementation
// must behave correctly on hosts where `>>` on signed types is
// logical") directly, without the explicit-sign-extension workaround a
// C-derived implementation would need.
func appendSleb128(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7F)
		v >>= 7
		signBit := b&0x40 != 0
		if (v == 0 && !signBit) || (v == -1 && signBit) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// appendName encodes s as a Wasm "name": an unsigned LEB128 byte length
// followed by the raw bytes (spec §4.11).
func appendName(buf []byte, s string) []byte {
	buf = appendUleb128(buf, uint64(len(s)))
	return append(buf, s...)
}

// section writes a section with the given 1-byte id, sizing it by
// first building the payload in a scratch slice (spec §4.11: "the
// back-end writes the payload to a temporary stream first to discover
// its size, then writes the section header followed by the payload to
// the real output").
func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = appendUleb128(out, uint64(len(payload)))
	return append(out, payload...)
}
