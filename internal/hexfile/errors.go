/*
  FirmwareUploader
  Copyright (c) 2021 Arduino LLC.  All right reserved.

  This library is free software; you can redistribute it and/or
  modify it under the terms of the GNU Lesser General Public
  License as published by the Free Software Foundation; either
  version 2.1 of the License, or (at your option) any later version.

  This library is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
  Lesser General Public License for more details.

  You should have received a copy of the GNU Lesser General Public
  License along with this library; if not, write to the Free Software
  Foundation, Inc., 51 Franklin St, Fifth Floor, Boston, MA  02110-1301  USA
*/

// Package hexfile streams an Intel HEX firmware image into
// (address, byte) records, the input side of the page assembler.
package hexfile

import "fmt"

// BadHexKind classifies why a line failed to parse.
type BadHexKind int

const (
	KindLineFormat BadHexKind = iota
	KindLength
	KindChecksum
	KindUnsupportedRecord
	KindEofMissing
	KindOutOfOrder
)

func (k BadHexKind) String() string {
	switch k {
	case KindLineFormat:
		return "line format"
	case KindLength:
		return "length"
	case KindChecksum:
		return "checksum"
	case KindUnsupportedRecord:
		return "unsupported record"
	case KindEofMissing:
		return "missing EOF record"
	case KindOutOfOrder:
		return "out of order address"
	default:
		return "unknown"
	}
}

// BadHexError reports a malformed line or a structural defect (such as
// a missing EOF record) discovered while streaming a HEX file.
type BadHexError struct {
	Line int // 1-based; 0 when the error isn't tied to one line
	Kind BadHexKind
	Msg  string
}

func (e *BadHexError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("hexfile: line %d: %s: %s", e.Line, e.Kind, e.Msg)
	}
	return fmt.Sprintf("hexfile: %s: %s", e.Kind, e.Msg)
}
