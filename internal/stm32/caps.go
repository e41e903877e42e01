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

package stm32

import "fmt"

// capIndex is the fixed position of each opcode in the payload GET
// returns, after the leading bootloader-version byte.
type capIndex int

const (
	capGet capIndex = iota
	capGetVersion
	capGetID
	capReadMemory
	capGo
	capWriteMemory
	capErase
	capWriteProtect
	capWriteUnprotect
	capReadoutProtect
	capReadoutUnprotect

	capCount
)

// Caps is the per-target opcode table discovered by GET. Every command
// after the first GET must be dispatched through this table rather than
// the nominal opcodes in opcodes.go, since a device is free to remap
// them.
type Caps struct {
	Version byte // packed BCD, e.g. 0x31 means bootloader v3.1
	opcodes [capCount]byte

	// ExtendedErase is true when the erase opcode is EXT_ERASE (0x44)
	// rather than the classic ERASE (0x43); it drives the selector
	// encoding erase_all uses.
	ExtendedErase bool
}

func (c Caps) opcode(i capIndex) byte { return c.opcodes[i] }

// EraseOpcode returns the opcode erase_all dispatches on.
func (c Caps) EraseOpcode() byte { return c.opcodes[capErase] }

func (c Caps) String() string {
	return fmt.Sprintf("bootloader v%d.%d, erase=0x%02X extended=%v",
		c.Version>>4, c.Version&0x0F, c.EraseOpcode(), c.ExtendedErase)
}

// parseCaps decodes the payload of a GET reply: N (count byte), then
// N+1 bytes -- version followed by the opcode table.
func parseCaps(payload []byte) (Caps, error) {
	if len(payload) < 1 {
		return Caps{}, fmt.Errorf("stm32: GET reply too short")
	}
	var c Caps
	c.Version = payload[0]
	n := copy(c.opcodes[:], payload[1:])
	if n < int(capErase)+1 {
		return Caps{}, fmt.Errorf("stm32: GET reply missing erase opcode (got %d opcode bytes)", n)
	}
	c.ExtendedErase = c.opcodes[capErase] == byte(cmdExtErase)
	return c, nil
}
