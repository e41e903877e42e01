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

// TimeoutError means no reply arrived within an operation's deadline.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stm32: timeout waiting for reply to %s", e.Op)
}

// NackError means the device replied NACK (or an unrecognised byte)
// where ACK was expected.
type NackError struct {
	Op   string
	Byte byte
}

func (e *NackError) Error() string {
	return fmt.Sprintf("stm32: %s: unexpected reply 0x%02X", e.Op, e.Byte)
}

// EntryFailedError means auto-baud entry did not succeed within the
// configured number of retries.
type EntryFailedError struct {
	Attempts int
}

func (e *EntryFailedError) Error() string {
	return fmt.Sprintf("stm32: bootloader did not respond to auto-baud after %d attempts", e.Attempts)
}

// InvalidArgumentError flags a caller-side precondition violation, such
// as a misaligned write address or an out-of-range length.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("stm32: invalid argument: %s", e.Reason)
}

// VerifyMismatchError means a just-written page read back with
// different content than what was sent.
type VerifyMismatchError struct {
	Addr uint32
	Len  int
}

func (e *VerifyMismatchError) Error() string {
	return fmt.Sprintf("stm32: verify mismatch at 0x%08X (%d bytes)", e.Addr, e.Len)
}

// StateError means a session method was called while the session was
// not in the state it requires (see sessionState).
type StateError struct {
	Op    string
	State sessionState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("stm32: cannot %s in state %s", e.Op, e.State)
}
