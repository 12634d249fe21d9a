// Package errcode implements the HRESULT-shaped result code every comrt
// operation returns: a severity bit, a 15-bit facility, and a 16-bit code,
// packed into a single uint32.
package errcode

import "fmt"

// Code is a packed result value: bit 31 severity, bits 30..16 facility,
// bits 15..0 code.
type Code uint32

// Severity values.
const (
	SeveritySuccess = 0
	SeverityError   = 1
)

// Facility values. Only Null is used by the core runtime; Amiga is kept
// for source compatibility with the no-permission code the original
// implementation carved out for its host platform.
const (
	FacilityNull  = 0
	FacilityAmiga = 11
)

// Make packs a severity, facility and code into a Code.
func Make(severity, facility uint32, code uint16) Code {
	return Code((severity&1)<<31 | (facility&0x7FFF)<<16 | uint32(code))
}

// Severity returns the top bit of c.
func (c Code) Severity() uint32 { return uint32(c>>31) & 1 }

// Facility returns bits 30..16 of c.
func (c Code) Facility() uint32 { return uint32(c>>16) & 0x7FFF }

// Value returns the low 16 bits of c.
func (c Code) Value() uint16 { return uint16(c) }

// Succeeded reports whether c's severity bit is clear.
func Succeeded(c Code) bool { return c.Severity() == SeveritySuccess }

// Failed reports whether c's severity bit is set.
func Failed(c Code) bool { return c.Severity() == SeverityError }

// Well-known result codes, named after their gcom/COM 0.9 counterparts.
var (
	OK                 = Make(SeveritySuccess, FacilityNull, 0x00)
	False              = Make(SeveritySuccess, FacilityNull, 0x01)
	NotAllInterfaces   = Make(SeveritySuccess, FacilityNull, 0x02)
	Unexpected         = Make(SeverityError, FacilityNull, 0x00)
	InvalidArgument    = Make(SeverityError, FacilityNull, 0x01)
	OutOfMemory        = Make(SeverityError, FacilityNull, 0x02)
	ReadRegistryError  = Make(SeverityError, FacilityNull, 0x03)
	WriteRegistryError = Make(SeverityError, FacilityNull, 0x04)
	LibraryNotFound    = Make(SeverityError, FacilityNull, 0x05)
	SymbolNotFound     = Make(SeverityError, FacilityNull, 0x06)
	NoAggregation      = Make(SeverityError, FacilityNull, 0x10)
	ClassNotRegistered = Make(SeverityError, FacilityNull, 0x11)
	ObjectIsRegistered = Make(SeverityError, FacilityNull, 0x12)
	NoInterface        = Make(SeverityError, FacilityNull, 0x13)
	NoPermission       = Make(SeverityError, FacilityAmiga, 0x00)
)

var names = map[Code]string{
	OK:                 "OK",
	False:              "FALSE",
	NotAllInterfaces:   "NOT_ALL_INTERFACES",
	Unexpected:         "UNEXPECTED",
	InvalidArgument:    "INVALID_ARGUMENT",
	OutOfMemory:        "OUT_OF_MEMORY",
	ReadRegistryError:  "READ_REGISTRY_ERROR",
	WriteRegistryError: "WRITE_REGISTRY_ERROR",
	LibraryNotFound:    "LIBRARY_NOT_FOUND",
	SymbolNotFound:     "SYMBOL_NOT_FOUND",
	NoAggregation:      "NO_AGGREGATION",
	ClassNotRegistered: "CLASS_NOT_REGISTERED",
	ObjectIsRegistered: "OBJECT_IS_REGISTERED",
	NoInterface:        "NO_INTERFACE",
	NoPermission:       "NO_PERMISSION",
}

// String renders c as its symbolic name if known, otherwise as its raw
// severity/facility/code triple.
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(sev=%d fac=%d code=%#x)", c.Severity(), c.Facility(), c.Value())
}

// Error makes Code satisfy the error interface so a failing Code can be
// returned anywhere an ordinary Go error is expected, e.g. from the
// nativeloader collaborator.
func (c Code) Error() string {
	return c.String()
}
