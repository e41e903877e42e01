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
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalSinglePageHex = ":020000040800F2\n" +
	":080000000102030405060708D4\n" +
	":00000001FF\n"

func TestParserMinimalSinglePage(t *testing.T) {
	p := NewParser(strings.NewReader(minimalSinglePageHex))

	rec, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, uint32(0x08000000), rec.Address)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, rec.Data)

	_, err = p.Next()
	require.ErrorIs(t, err, io.EOF)
	require.True(t, p.EOFSeen())
}

func TestParserBadChecksumLine(t *testing.T) {
	bad := ":020000040800F2\n" +
		":080000000102030405060709D4\n" + // last data byte flipped, checksum now wrong
		":00000001FF\n"
	p := NewParser(strings.NewReader(bad))
	_, err := p.Next()
	require.Error(t, err)
	var badHex *BadHexError
	require.ErrorAs(t, err, &badHex)
	require.Equal(t, KindChecksum, badHex.Kind)
	require.Equal(t, 2, badHex.Line)
}

func TestParserMissingEOFRecord(t *testing.T) {
	missing := ":020000040800F2\n" +
		":080000000102030405060708D4\n"
	p := NewParser(strings.NewReader(missing))
	_, err := p.Next()
	require.NoError(t, err)
	_, err = p.Next()
	require.Error(t, err)
	var badHex *BadHexError
	require.ErrorAs(t, err, &badHex)
	require.Equal(t, KindEofMissing, badHex.Kind)
}

func TestParserExtendedLinearAddressCursor(t *testing.T) {
	hex := ":020000041000EA\n" + // ULBA = 0x10000000
		":04000000DEADBEEFC4\n" +
		":00000001FF\n"
	p := NewParser(strings.NewReader(hex))
	rec, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, uint32(0x10000000), rec.Address)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, rec.Data)
}

func TestParserUnsupportedRecordType(t *testing.T) {
	hex := ":00000002FE\n"
	p := NewParser(strings.NewReader(hex))
	_, err := p.Next()
	require.Error(t, err)
	var badHex *BadHexError
	require.ErrorAs(t, err, &badHex)
	require.Equal(t, KindUnsupportedRecord, badHex.Kind)
}

func TestParserCountersAdvance(t *testing.T) {
	p := NewParser(strings.NewReader(minimalSinglePageHex))
	_, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, 1, p.LinesRead)
	require.Equal(t, 8, p.BytesRead)
	require.Equal(t, uint32(0x08000000), p.AddrMin)
	require.Equal(t, uint32(0x08000008), p.AddrMax)
}
