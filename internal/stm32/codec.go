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

import "time"

const (
	commandTimeout = time.Second
	byteTimeout    = time.Second
	eraseTimeout   = 35 * time.Second
)

// ProtocolCodec encodes and decodes bootloader frames over a Transport.
// It carries no session state of its own -- separated out from
// BootloaderSession so the framing rules can be unit tested against an
// in-memory Transport without driving a whole session through GET.
type ProtocolCodec struct {
	t Transport
}

func NewProtocolCodec(t Transport) *ProtocolCodec {
	return &ProtocolCodec{t: t}
}

// sendCommand drains stale input, then transmits the command byte and
// its complement, matching stmCommandSequence's [cmdb, 0xff^cmdb] framing.
func (c *ProtocolCodec) sendCommand(cmd byte) error {
	c.t.Drain()
	if err := c.t.Write([]byte{cmd, ^cmd}); err != nil {
		return err
	}
	return c.t.Flush()
}

// sendAddress transmits a 32-bit address MSB-first followed by the XOR
// of its four bytes.
func (c *ProtocolCodec) sendAddress(addr uint32) error {
	a3 := byte(addr >> 24)
	a2 := byte(addr >> 16)
	a1 := byte(addr >> 8)
	a0 := byte(addr)
	frame := []byte{a3, a2, a1, a0, a3 ^ a2 ^ a1 ^ a0}
	if err := c.t.Write(frame); err != nil {
		return err
	}
	return c.t.Flush()
}

// sendBlock transmits a WRITE_MEMORY-style length+data+checksum group:
// one byte N-1, the N data bytes, then the XOR of N-1 and every data
// byte. 1 <= len(data) <= 256 is the caller's responsibility.
func (c *ProtocolCodec) sendBlock(data []byte) error {
	if len(data) == 0 || len(data) > PageSize {
		return &InvalidArgumentError{Reason: "block length must be in [1,256]"}
	}
	n := byte(len(data) - 1)
	frame := make([]byte, 0, len(data)+2)
	frame = append(frame, n)
	frame = append(frame, data...)
	chk := n
	for _, b := range data {
		chk ^= b
	}
	frame = append(frame, chk)
	if err := c.t.Write(frame); err != nil {
		return err
	}
	return c.t.Flush()
}

// expectAck reads one reply byte and classifies it.
func (c *ProtocolCodec) expectAck(op string, deadline time.Duration) error {
	b, err := c.t.ReadByte(deadline)
	if err != nil {
		return err
	}
	switch b {
	case ack:
		return nil
	case nack:
		return &NackError{Op: op, Byte: b}
	default:
		return &NackError{Op: op, Byte: b}
	}
}
