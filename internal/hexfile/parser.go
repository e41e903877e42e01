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

package hexfile

import (
	"bufio"
	"encoding/hex"
	"io"
	"strings"
)

type recordType int

const (
	recData               recordType = 0
	recEOF                recordType = 1
	recExtendedLinearAddr recordType = 4
	recStartLinearAddr    recordType = 5
)

// Record is one Data record decoded from the stream, with its address
// already resolved against the running upper-linear-base-address
// cursor.
type Record struct {
	Address uint32
	Data    []byte
}

// Parser streams an Intel HEX file line by line, tracking the
// extended-linear-address cursor (ULBA) the way record type 4 defines
// it, and surfaces Data records via Next. It mirrors the line-oriented
// reading loop stm32_flash_image drives in the original firmware, split
// out from the page-assembly/write side so it can run standalone for a
// parse-only check pass.
type Parser struct {
	scanner *bufio.Scanner
	lineNo  int
	ulba    uint32
	eofSeen bool
	done    bool

	LinesRead int
	BytesRead int
	AddrMin   uint32
	AddrMax   uint32
	sawAny    bool
}

// NewParser wraps r as a Parser. r is typically a *paths.Path's Open().
func NewParser(r io.Reader) *Parser {
	return &Parser{scanner: bufio.NewScanner(r)}
}

// Next returns the next Data record, or io.EOF once the file's EOF
// record (type 1) has been consumed. It returns a *BadHexError for any
// malformed line and a *BadHexError{Kind: KindEofMissing} if the
// underlying reader runs dry before a type-1 record was seen.
func (p *Parser) Next() (Record, error) {
	if p.done {
		return Record{}, io.EOF
	}
	for p.scanner.Scan() {
		p.lineNo++
		line := strings.TrimRight(p.scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		rec, rt, err := p.parseLine(line)
		if err != nil {
			return Record{}, err
		}
		switch rt {
		case recData:
			p.LinesRead++
			p.BytesRead += len(rec.Data)
			if !p.sawAny || rec.Address < p.AddrMin {
				p.AddrMin = rec.Address
			}
			p.sawAny = true
			end := rec.Address + uint32(len(rec.Data))
			if end > p.AddrMax {
				p.AddrMax = end
			}
			return rec, nil
		case recEOF:
			p.eofSeen = true
			p.done = true
			return Record{}, io.EOF
		case recExtendedLinearAddr, recStartLinearAddr:
			continue
		}
	}
	if err := p.scanner.Err(); err != nil {
		return Record{}, err
	}
	p.done = true
	return Record{}, &BadHexError{Kind: KindEofMissing, Msg: "stream ended without a type-1 EOF record"}
}

// EOFSeen reports whether a type-1 record was consumed.
func (p *Parser) EOFSeen() bool { return p.eofSeen }

// parseLine decodes one ":"-prefixed line and resolves Data-record
// addresses against the current ULBA cursor.
func (p *Parser) parseLine(line string) (Record, recordType, error) {
	if len(line) < 11 || line[0] != ':' {
		return Record{}, 0, &BadHexError{Line: p.lineNo, Kind: KindLineFormat, Msg: "line does not start with ':' or is too short"}
	}
	raw, err := hex.DecodeString(line[1:])
	if err != nil {
		return Record{}, 0, &BadHexError{Line: p.lineNo, Kind: KindLineFormat, Msg: "invalid hex digits"}
	}
	if len(raw) < 5 {
		return Record{}, 0, &BadHexError{Line: p.lineNo, Kind: KindLineFormat, Msg: "record too short"}
	}
	declaredLen := int(raw[0])
	if len(raw) != declaredLen+5 {
		return Record{}, 0, &BadHexError{Line: p.lineNo, Kind: KindLength, Msg: "declared length does not match line length"}
	}
	sum := byte(0)
	for _, b := range raw {
		sum += b
	}
	if sum != 0 {
		return Record{}, 0, &BadHexError{Line: p.lineNo, Kind: KindChecksum, Msg: "checksum does not sum to zero mod 256"}
	}

	addrHi, addrLo := raw[1], raw[2]
	drlo := uint32(addrHi)<<8 | uint32(addrLo)
	rt := recordType(raw[3])
	data := raw[4 : 4+declaredLen]

	switch rt {
	case recData:
		return Record{Address: p.ulba | drlo, Data: data}, rt, nil
	case recEOF:
		return Record{}, rt, nil
	case recExtendedLinearAddr:
		if drlo != 0 || declaredLen != 2 {
			return Record{}, 0, &BadHexError{Line: p.lineNo, Kind: KindLineFormat, Msg: "malformed extended linear address record"}
		}
		p.ulba = uint32(data[0])<<24 | uint32(data[1])<<16
		return Record{}, rt, nil
	case recStartLinearAddr:
		if drlo != 0 {
			return Record{}, 0, &BadHexError{Line: p.lineNo, Kind: KindLineFormat, Msg: "malformed start linear address record"}
		}
		return Record{}, rt, nil
	default:
		return Record{}, 0, &BadHexError{Line: p.lineNo, Kind: KindUnsupportedRecord, Msg: "unsupported record type"}
	}
}
