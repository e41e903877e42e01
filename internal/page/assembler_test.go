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

package page

import (
	"testing"

	"github.com/arduino/FirmwareUploader/internal/hexfile"
	"github.com/stretchr/testify/require"
)

func TestAssemblerSinglePage(t *testing.T) {
	a := New()
	p, did, err := a.Feed(hexfile.Record{Address: 0x08000000, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}})
	require.NoError(t, err)
	require.False(t, did)

	p, did = a.Flush()
	require.True(t, did)
	require.Equal(t, uint32(0x08000000), p.BaseAddr)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, p.Payload)
}

func TestAssemblerCrossPageRecord(t *testing.T) {
	a := New()
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i + 1)
	}
	// 16 bytes starting at 0x080000F8: crosses the 0x08000100 boundary
	// after 8 bytes.
	p, did, err := a.Feed(hexfile.Record{Address: 0x080000F8, Data: data})
	require.NoError(t, err)
	require.True(t, did)
	require.Equal(t, uint32(0x08000000), p.BaseAddr)
	require.Equal(t, 256, len(p.Payload))
	require.Equal(t, data[:8], p.Payload[0xF8:])

	p2, did2 := a.Flush()
	require.True(t, did2)
	require.Equal(t, uint32(0x08000100), p2.BaseAddr)
	require.Equal(t, data[8:], p2.Payload)
}

func TestAssemblerMisalignedTailPaddedWithFF(t *testing.T) {
	a := New()
	data := make([]byte, 17)
	for i := range data {
		data[i] = byte(i + 1)
	}
	_, did, err := a.Feed(hexfile.Record{Address: 0x08000000, Data: data})
	require.NoError(t, err)
	require.False(t, did)

	p, did2 := a.Flush()
	require.True(t, did2)
	require.Equal(t, 20, len(p.Payload)) // 17 rounded up to a multiple of 4
	require.Equal(t, data, p.Payload[:17])
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF}, p.Payload[17:])
}

func TestAssemblerFillsGapsWithFF(t *testing.T) {
	a := New()
	// two bytes 4 apart within the same page: the gap between them
	// must read back as 0xFF.
	_, _, err := a.Feed(hexfile.Record{Address: 0x08000000, Data: []byte{0xAA}})
	require.NoError(t, err)
	_, _, err = a.Feed(hexfile.Record{Address: 0x08000004, Data: []byte{0xBB}})
	require.NoError(t, err)

	p, did := a.Flush()
	require.True(t, did)
	require.Equal(t, byte(0xAA), p.Payload[0])
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF}, p.Payload[1:4])
	require.Equal(t, byte(0xBB), p.Payload[4])
}

func TestAssemblerOutOfOrderAddressIsRejected(t *testing.T) {
	a := New()
	_, _, err := a.Feed(hexfile.Record{Address: 0x08000000, Data: []byte{1}})
	require.NoError(t, err)
	_, _, err = a.Feed(hexfile.Record{Address: 0x08000300, Data: []byte{2}}) // forces a.base -> 0x08000300, flushing 0x08000000
	require.NoError(t, err)

	// now a byte addressed back into the already-flushed first page
	_, _, err = a.Feed(hexfile.Record{Address: 0x08000010, Data: []byte{3}})
	require.Error(t, err)
	var badHex *hexfile.BadHexError
	require.ErrorAs(t, err, &badHex)
	require.Equal(t, hexfile.KindOutOfOrder, badHex.Kind)
}
