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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnterSucceedsOnFirstAck(t *testing.T) {
	tr := &pipeTransport{}
	tr.feed(ack) // succeed on first attempt
	s := NewBootloaderSession(tr)
	require.NoError(t, s.Enter())
	require.Equal(t, statePrimed, s.state)
}

func TestEnterFailsAfterMaxAttempts(t *testing.T) {
	tr := &pipeTransport{}
	s := NewBootloaderSession(tr)
	err := s.Enter()
	require.Error(t, err)
	var entryErr *EntryFailedError
	require.ErrorAs(t, err, &entryErr)
	require.Equal(t, maxEntryAttempts, entryErr.Attempts)
}

// classicGetReply builds a synthetic GET reply for a bootloader
// reporting the classic 0x43 ERASE opcode, matching AN3155's table
// order: GET, GET_VERSION, GET_ID, READ_MEM, GO, WRITE_MEM, ERASE,
// WRITE_PROTECT, WRITE_UNPROTECT, READOUT_PROTECT, READOUT_UNPROTECT.
func classicGetReply() []byte {
	version := byte(0x31)
	opcodes := []byte{
		byte(cmdGet), byte(cmdGetVersion), byte(cmdGetID),
		byte(cmdReadMemory), byte(cmdGo), byte(cmdWriteMemory),
		byte(cmdErase), byte(cmdWriteProtect), byte(cmdWriteUnprotect),
		byte(cmdReadoutProtect), byte(cmdReadoutUnprotect),
	}
	payload := append([]byte{version}, opcodes...)
	n := byte(len(payload) - 1)
	reply := []byte{ack, n}
	reply = append(reply, payload...)
	reply = append(reply, ack)
	return reply
}

func extendedGetReply() []byte {
	r := classicGetReply()
	// leading ack+n, then 1 version byte, then the opcode table
	idx := 3 + int(capErase)
	r[idx] = byte(cmdExtErase)
	return r
}

func TestGetParsesClassicCapsAndDispatchesClassicErase(t *testing.T) {
	tr := &pipeTransport{}
	tr.feed(ack)
	tr.feed(classicGetReply()...)
	tr.feed(ack) // erase command ack
	tr.feed(ack) // erase confirm
	s := NewBootloaderSession(tr)
	require.NoError(t, s.Enter())
	caps, err := s.Get()
	require.NoError(t, err)
	require.False(t, caps.ExtendedErase)
	require.Equal(t, byte(cmdErase), caps.EraseOpcode())

	require.NoError(t, s.EraseAll())
	tx := tr.Tx.Bytes()
	// ... erase command+complement ... 0xFF,0x00 selector at the tail
	require.Equal(t, []byte{0xFF, 0x00}, tx[len(tx)-2:])
}

func TestGetDispatchesExtendedErase(t *testing.T) {
	tr := &pipeTransport{}
	tr.feed(ack)
	tr.feed(extendedGetReply()...)
	tr.feed(ack) // erase command ack
	tr.feed(ack) // erase confirm
	s := NewBootloaderSession(tr)
	require.NoError(t, s.Enter())
	caps, err := s.Get()
	require.NoError(t, err)
	require.True(t, caps.ExtendedErase)

	require.NoError(t, s.EraseAll())
	tx := tr.Tx.Bytes()
	require.Equal(t, []byte{0xFF, 0xFF, 0x00}, tx[len(tx)-3:])
}

func TestWriteMemoryRejectsMisalignedAddress(t *testing.T) {
	tr := &pipeTransport{}
	tr.feed(ack)
	tr.feed(classicGetReply()...)
	s := NewBootloaderSession(tr)
	require.NoError(t, s.Enter())
	_, err := s.Get()
	require.NoError(t, err)

	err = s.WriteMemory(0x08000001, make([]byte, 4))
	require.Error(t, err)
	var invalidErr *InvalidArgumentError
	require.ErrorAs(t, err, &invalidErr)
}

func TestWriteMemoryRejectsNonMultipleOfFourLength(t *testing.T) {
	tr := &pipeTransport{}
	tr.feed(ack)
	tr.feed(classicGetReply()...)
	s := NewBootloaderSession(tr)
	require.NoError(t, s.Enter())
	_, err := s.Get()
	require.NoError(t, err)

	err = s.WriteMemory(0x08000000, make([]byte, 5))
	require.Error(t, err)
}

// TestWriteMemoryThenReadMemoryRoundTrip replays the wire trace of a
// full 256-byte page write: WRITE_MEMORY dispatched through the
// discovered opcode, address+XOR, block+XOR, then a READ_MEMORY of the
// same range echoing the bytes just written back.
func TestWriteMemoryThenReadMemoryRoundTrip(t *testing.T) {
	tr := &pipeTransport{}
	tr.feed(ack)
	tr.feed(classicGetReply()...)
	s := NewBootloaderSession(tr)
	require.NoError(t, s.Enter())
	_, err := s.Get()
	require.NoError(t, err)

	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	tr.feed(ack) // write_memory command ack
	tr.feed(ack) // write_memory address ack
	tr.feed(ack) // write_memory data ack
	require.NoError(t, s.WriteMemory(0x08000000, data))

	tx := tr.Tx.Bytes()
	wantCmd := []byte{byte(cmdWriteMemory), ^byte(cmdWriteMemory)}
	wantAddr := []byte{0x08, 0x00, 0x00, 0x00, 0x08 ^ 0x00 ^ 0x00 ^ 0x00}
	wantBlock := make([]byte, 0, 258)
	wantBlock = append(wantBlock, 0xFF) // N-1 for a 256-byte block
	wantBlock = append(wantBlock, data...)
	chk := byte(0xFF)
	for _, b := range data {
		chk ^= b
	}
	wantBlock = append(wantBlock, chk)

	blockStart := len(tx) - len(wantBlock)
	addrStart := blockStart - len(wantAddr)
	cmdStart := addrStart - len(wantCmd)
	require.Equal(t, wantCmd, tx[cmdStart:addrStart])
	require.Equal(t, wantAddr, tx[addrStart:blockStart])
	require.Equal(t, wantBlock, tx[blockStart:])

	tr.feed(ack)      // read_memory command ack
	tr.feed(ack)      // read_memory address ack
	tr.feed(ack)      // read_memory length ack
	tr.feed(data...)  // echoed page
	readBack, err := s.ReadMemory(0x08000000, len(data))
	require.NoError(t, err)
	require.Equal(t, data, readBack)
}

func TestMethodsRequireReadyState(t *testing.T) {
	tr := &pipeTransport{}
	s := NewBootloaderSession(tr)
	_, err := s.ReadMemory(0, 1)
	require.Error(t, err)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
}
