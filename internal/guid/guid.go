// Package guid implements the 128-bit class and interface identifiers
// the runtime uses throughout: class ids, interface ids, and the
// textual form the on-disk registry keys entries by.
package guid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ncw/comrt/internal/errcode"
)

// Identifier is a 128-bit value: a 32-bit field, two 16-bit fields, and
// eight trailing bytes stored as-is. It serves as both class id (CLSID)
// and interface id (IID) — the runtime distinguishes the two only by
// which table an Identifier is looked up in.
type Identifier struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Nil is the all-zero identifier, used as the treat-as "no redirect"
// sentinel (CLSID_NULL in the original).
var Nil Identifier

// TextLen is the length of an Identifier's canonical textual form,
// including the enclosing braces: "{XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}".
const TextLen = 38

// New mints a fresh random Identifier, for classes registering
// themselves at install time. Backed by google/uuid's version-4
// generator, whose 16 bytes are decoded through FromBytes; the result
// does not render as the uuid's own RFC 4122 text.
func New() Identifier {
	u := uuid.New()
	return FromBytes(u)
}

// FromBytes interprets a 16-byte array as an Identifier, decoding
// Data1/Data2/Data3 little-endian per §4.G and taking Data4 as-is. A
// uuid.UUID's bytes are RFC 4122 big-endian in those same three
// fields, so round-tripping one through FromBytes/Bytes does not
// preserve its canonical textual rendering — New only needs the 16
// bytes as a source of uniformly random bits, not RFC 4122 semantics.
func FromBytes(b [16]byte) Identifier {
	return Identifier{
		Data1: uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24,
		Data2: uint16(b[4]) | uint16(b[5])<<8,
		Data3: uint16(b[6]) | uint16(b[7])<<8,
		Data4: [8]byte{b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15]},
	}
}

// Bytes renders id back into a 16-byte array in the same layout
// FromBytes consumes.
func (id Identifier) Bytes() [16]byte {
	var b [16]byte
	b[0] = byte(id.Data1)
	b[1] = byte(id.Data1 >> 8)
	b[2] = byte(id.Data1 >> 16)
	b[3] = byte(id.Data1 >> 24)
	b[4] = byte(id.Data2)
	b[5] = byte(id.Data2 >> 8)
	b[6] = byte(id.Data3)
	b[7] = byte(id.Data3 >> 8)
	copy(b[8:], id.Data4[:])
	return b
}

// Equal reports bitwise equality between id and other.
func (id Identifier) Equal(other Identifier) bool {
	return id == other
}

// IsNil reports whether id is the all-zero sentinel.
func (id Identifier) IsNil() bool {
	return id == Nil
}

// String renders id in its canonical uppercase textual form.
func (id Identifier) String() string {
	return fmt.Sprintf("{%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X}",
		id.Data1, id.Data2, id.Data3,
		id.Data4[0], id.Data4[1],
		id.Data4[2], id.Data4[3], id.Data4[4], id.Data4[5], id.Data4[6], id.Data4[7])
}

// Parse strictly parses a textual identifier of the canonical form,
// case-insensitively, returning errcode.InvalidArgument on any
// delimiter or hex-digit mismatch.
func Parse(s string) (Identifier, error) {
	if len(s) != TextLen {
		return Identifier{}, errcode.InvalidArgument
	}
	if s[0] != '{' || s[37] != '}' {
		return Identifier{}, errcode.InvalidArgument
	}
	if s[9] != '-' || s[14] != '-' || s[19] != '-' || s[24] != '-' {
		return Identifier{}, errcode.InvalidArgument
	}

	hex := s[1:9] + s[10:14] + s[15:19] + s[20:24] + s[25:37]
	if len(hex) != 32 {
		return Identifier{}, errcode.InvalidArgument
	}
	var digits [32]byte
	for i := 0; i < 32; i++ {
		v, ok := hexDigit(hex[i])
		if !ok {
			return Identifier{}, errcode.InvalidArgument
		}
		digits[i] = v
	}

	var b [16]byte
	for i := 0; i < 16; i++ {
		b[i] = digits[2*i]<<4 | digits[2*i+1]
	}

	// Built directly from the text's big-endian byte order (the same
	// order String prints each field in) rather than through
	// FromBytes, which decodes little-endian for the unrelated
	// uuid-interop wire format New uses.
	return Identifier{
		Data1: uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]),
		Data2: uint16(b[4])<<8 | uint16(b[5]),
		Data3: uint16(b[6])<<8 | uint16(b[7]),
		Data4: [8]byte{b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15]},
	}, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// EqualText reports whether two textual identifiers name the same
// Identifier regardless of case, without allocating through Parse
// twice when both are already well-formed.
func EqualText(a, b string) bool {
	return strings.EqualFold(a, b)
}
