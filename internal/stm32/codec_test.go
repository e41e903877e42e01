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
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// pipeTransport is an in-memory Transport fake: writes go to Tx, reads
// come from a preloaded Rx queue, so the codec and session can be
// exercised without a real serial port.
type pipeTransport struct {
	Tx  bytes.Buffer
	rx  []byte
	pos int
}

func (p *pipeTransport) Write(b []byte) error {
	p.Tx.Write(b)
	return nil
}

func (p *pipeTransport) ReadByte(deadline time.Duration) (byte, error) {
	b, err := p.ReadN(1, deadline)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (p *pipeTransport) ReadN(n int, deadline time.Duration) ([]byte, error) {
	if p.pos+n > len(p.rx) {
		return nil, &TimeoutError{Op: "test read"}
	}
	b := p.rx[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

func (p *pipeTransport) Drain()          {}
func (p *pipeTransport) Flush() error    { return nil }
func (p *pipeTransport) Close() error    { return nil }
func (p *pipeTransport) feed(b ...byte)  { p.rx = append(p.rx, b...) }

func TestSendCommandFramesComplement(t *testing.T) {
	tr := &pipeTransport{}
	c := NewProtocolCodec(tr)
	require.NoError(t, c.sendCommand(0x31))
	require.Equal(t, []byte{0x31, ^byte(0x31)}, tr.Tx.Bytes())
}

func TestSendAddressXorProperty(t *testing.T) {
	tr := &pipeTransport{}
	c := NewProtocolCodec(tr)
	require.NoError(t, c.sendAddress(0x08001234))
	want := []byte{0x08, 0x00, 0x12, 0x34, 0x08 ^ 0x00 ^ 0x12 ^ 0x34}
	require.Equal(t, want, tr.Tx.Bytes())
}

func TestSendBlockChecksumProperty(t *testing.T) {
	tr := &pipeTransport{}
	c := NewProtocolCodec(tr)
	data := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, c.sendBlock(data))
	chk := byte(len(data)-1) ^ 0x01 ^ 0x02 ^ 0x03 ^ 0x04
	want := append([]byte{byte(len(data) - 1)}, data...)
	want = append(want, chk)
	require.Equal(t, want, tr.Tx.Bytes())
}

func TestSendBlockRejectsOutOfRangeLength(t *testing.T) {
	tr := &pipeTransport{}
	c := NewProtocolCodec(tr)
	require.Error(t, c.sendBlock(nil))
	require.Error(t, c.sendBlock(make([]byte, 257)))
}

func TestExpectAckClassifiesReplies(t *testing.T) {
	tr := &pipeTransport{}
	tr.feed(ack)
	c := NewProtocolCodec(tr)
	require.NoError(t, c.expectAck("op", time.Second))

	tr2 := &pipeTransport{}
	tr2.feed(nack)
	c2 := NewProtocolCodec(tr2)
	err := c2.expectAck("op", time.Second)
	require.Error(t, err)
	var nackErr *NackError
	require.ErrorAs(t, err, &nackErr)
}

func TestExpectAckTimesOutOnEmptyStream(t *testing.T) {
	tr := &pipeTransport{}
	c := NewProtocolCodec(tr)
	err := c.expectAck("op", time.Second)
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestEraseSelectorGlobalClassicAndExtended(t *testing.T) {
	require.Equal(t, []byte{0xFF, 0x00}, globalEraseSelector.classic)
	require.Equal(t, []byte{0xFF, 0xFF, 0x00}, globalEraseSelector.extended)
}
