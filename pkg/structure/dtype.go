// Package structure describes and holds the typed data served by readers:
// machine data types, n-dimensional arrays in C order, and column-oriented
// dataframes. Descriptions are wire-shaped so they can be embedded directly
// in resource attributes.
package structure

import (
	"encoding/binary"
	"fmt"
)

// Endianness is the byte order of an array element type.
type Endianness string

const (
	// Big is big-endian byte order.
	Big Endianness = "big"
	// Little is little-endian byte order.
	Little Endianness = "little"
	// NotApplicable marks single-byte types with no byte order.
	NotApplicable Endianness = "not_applicable"
)

// Kind is a single-letter element type code, following the array interface
// convention used by numerical clients.
type Kind string

const (
	// KindBool is a boolean stored in one byte.
	KindBool Kind = "b"
	// KindInt is a signed integer.
	KindInt Kind = "i"
	// KindUint is an unsigned integer.
	KindUint Kind = "u"
	// KindFloat is an IEEE 754 floating point number.
	KindFloat Kind = "f"
)

// MachineDataType identifies an element type precisely enough for a client
// to reinterpret raw bytes.
type MachineDataType struct {
	Endianness Endianness `json:"endianness"`
	Kind       Kind       `json:"kind"`
	ItemSize   int        `json:"itemsize"`
}

// String renders the dtype in the compact form used by numerical tooling,
// such as "<f8" for little-endian float64.
func (dt MachineDataType) String() string {
	symbol := map[Endianness]string{Big: ">", Little: "<", NotApplicable: "|"}[dt.Endianness]
	return fmt.Sprintf("%s%s%d", symbol, dt.Kind, dt.ItemSize)
}

// ByteOrder returns the binary.ByteOrder for decoding elements. Single-byte
// types decode the same either way.
func (dt MachineDataType) ByteOrder() binary.ByteOrder {
	if dt.Endianness == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// hostEndianness is determined once at startup by probing native byte order.
var hostEndianness = func() Endianness {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 0x00ff)
	if buf[0] == 0xff {
		return Little
	}
	return Big
}()
