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

// Package page turns the byte stream hexfile.Parser emits into
// 256-byte, page-aligned write jobs, the unit the stm32 bootloader's
// WRITE_MEMORY command accepts.
package page

import (
	"fmt"

	"github.com/arduino/FirmwareUploader/internal/hexfile"
)

const size = 256

// Page is one flushed, page-aligned write job.
type Page struct {
	BaseAddr uint32
	Payload  []byte // length is a multiple of 4, padded with 0xFF
}

// Assembler consumes hexfile.Record values in stream order and emits
// Page values once a record's address falls outside the page currently
// being filled. Grounded on the stm32_flash_image loop in the original
// firmware, which keeps exactly one in-flight page buffer (stm32_buf)
// and flushes it whenever the next byte's address leaves that window.
type Assembler struct {
	active     bool
	base       uint32
	buf        [size]byte
	highWater  int
	lastClosed uint32
	anyClosed  bool
}

// New returns an empty Assembler.
func New() *Assembler { return &Assembler{} }

// Feed absorbs one hex record, returning a flushed Page if the record
// forced the previous page closed. Most calls return (Page{}, false, nil).
func (a *Assembler) Feed(rec hexfile.Record) (Page, bool, error) {
	var flushed Page
	var did bool

	for i, b := range rec.Data {
		addr := rec.Address + uint32(i)
		base := addr &^ uint32(size-1)

		if !a.active {
			a.openPage(base, addr)
		} else if base != a.base {
			flushed, did = a.flushLocked()
			if a.anyClosed && base <= a.lastClosed {
				return Page{}, false, fmt.Errorf("page %w", &hexfile.BadHexError{
					Kind: hexfile.KindOutOfOrder,
					Msg:  fmt.Sprintf("address 0x%08X targets already-flushed page 0x%08X", addr, base),
				})
			}
			a.openPage(base, addr)
		}

		off := int(addr - a.base)
		a.buf[off] = b
		if off+1 > a.highWater {
			a.highWater = off + 1
		}
	}

	return flushed, did, nil
}

func (a *Assembler) openPage(base, addr uint32) {
	a.active = true
	a.base = base
	for i := range a.buf {
		a.buf[i] = 0xFF
	}
	a.highWater = 0
}

// flushLocked emits the active page as a Page and clears it. Caller
// must already hold a.active == true.
func (a *Assembler) flushLocked() (Page, bool) {
	length := roundUp4(a.highWater)
	payload := make([]byte, length)
	copy(payload, a.buf[:a.highWater])
	for i := a.highWater; i < length; i++ {
		payload[i] = 0xFF
	}
	p := Page{BaseAddr: a.base, Payload: payload}
	a.lastClosed = a.base
	a.anyClosed = true
	a.active = false
	a.highWater = 0
	return p, true
}

// Flush emits the in-progress page, if any. Call once after the last
// Feed to drain a partially filled final page, mirroring the EOF-time
// flush stm32_flash_image performs on its trailing buffer.
func (a *Assembler) Flush() (Page, bool) {
	if !a.active || a.highWater == 0 {
		return Page{}, false
	}
	return a.flushLocked()
}

func roundUp4(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}
