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

package flasher

import (
	"fmt"
	"time"
)

// Report is the outcome of a Check or Flash call: parse counters,
// write/verify counters, elapsed times, bootloader version and erase
// variant, shaped so both a text and a JSON renderer can be driven
// from one struct.
type Report struct {
	LinesRead      int    `json:"linesRead"`
	BytesRead      int    `json:"bytesRead"`
	PagesWritten   int    `json:"pagesWritten"`
	BytesWritten   int    `json:"bytesWritten"`
	VerifyFailures int    `json:"verifyFailures"`
	AddrMin        uint32 `json:"addrMin"`
	AddrMax        uint32 `json:"addrMax"`
	EOFSeen        bool   `json:"eofSeen"`

	BootloaderVersion byte          `json:"bootloaderVersion"`
	ExtendedErase     bool          `json:"extendedErase"`
	CheckElapsed      time.Duration `json:"checkElapsedNs"`
	WriteElapsed      time.Duration `json:"writeElapsedNs"`
}

// String renders the report the way the "text" output format does,
// one key-value pair per line -- the CLI's json mode instead marshals
// the struct directly.
func (r Report) String() string {
	return fmt.Sprintf(
		"lines read:       %d\n"+
			"bytes read:       %d\n"+
			"address range:    0x%08X-0x%08X\n"+
			"EOF record seen:  %v\n"+
			"pages written:    %d\n"+
			"bytes written:    %d\n"+
			"verify failures:  %d\n"+
			"bootloader ver:   0x%02X\n"+
			"erase variant:    %s\n"+
			"check elapsed:    %s\n"+
			"write elapsed:    %s\n",
		r.LinesRead, r.BytesRead, r.AddrMin, r.AddrMax, r.EOFSeen,
		r.PagesWritten, r.BytesWritten, r.VerifyFailures,
		r.BootloaderVersion, eraseVariant(r.ExtendedErase),
		r.CheckElapsed, r.WriteElapsed,
	)
}

// Data implements feedback.Result so Report can be handed straight to
// feedback.PrintResult.
func (r Report) Data() interface{} { return r }

func eraseVariant(extended bool) string {
	if extended {
		return "extended"
	}
	return "classic"
}
