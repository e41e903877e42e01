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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// sessionState tracks where a BootloaderSession sits in its lifecycle:
// Closed -> Primed -> Ready, with a detour back through Closed when
// WriteUnprotect resets the device.
type sessionState int

const (
	stateClosed sessionState = iota
	statePrimed
	stateReady
)

func (s sessionState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case statePrimed:
		return "primed"
	case stateReady:
		return "ready"
	default:
		return "unknown"
	}
}

const maxEntryAttempts = 4

// BootloaderSession wraps a ProtocolCodec with the state machine and
// command dispatch table (Caps) needed to drive a full flash job. It
// is the stm32 package's main entry point.
type BootloaderSession struct {
	codec *ProtocolCodec
	t     Transport
	state sessionState
	caps  Caps

	// lastNack is set when the most recent auto-baud attempt in Enter
	// was answered with NACK rather than timing out.
	lastNack bool
}

func NewBootloaderSession(t Transport) *BootloaderSession {
	return &BootloaderSession{codec: NewProtocolCodec(t), t: t, state: stateClosed}
}

// Caps returns the capability table discovered by the last Get call.
// Valid once the session has reached stateReady or later.
func (s *BootloaderSession) Caps() Caps { return s.caps }

// Enter sends the auto-baud byte and waits for ACK, retrying up to
// maxEntryAttempts times. Grounded on stm32_bootloader's four-retry
// auto-baud loop in the original firmware.
func (s *BootloaderSession) Enter() error {
	for attempt := 1; attempt <= maxEntryAttempts; attempt++ {
		s.t.Drain()
		if err := s.t.Write([]byte{autoBaud}); err != nil {
			return err
		}
		if err := s.t.Flush(); err != nil {
			return err
		}
		if err := s.codec.expectAck("enter", commandTimeout); err != nil {
			_, s.lastNack = err.(*NackError)
			logrus.Debugf("bootloader entry attempt %d/%d failed: %v", attempt, maxEntryAttempts, err)
			continue
		}
		s.state = statePrimed
		logrus.Info("bootloader entered")
		return nil
	}
	return &EntryFailedError{Attempts: maxEntryAttempts}
}

// enterIgnoringNack is used for the re-entry after WriteUnprotect,
// where a NACK on the auto-baud byte does not necessarily mean the
// device failed to reset: Get is re-run afterwards regardless, and
// whatever it reports is trusted.
func (s *BootloaderSession) enterIgnoringNack() error {
	if err := s.Enter(); err != nil {
		if _, failed := err.(*EntryFailedError); failed && s.lastNack {
			s.state = statePrimed
			return nil
		}
		return err
	}
	return nil
}

// Get issues the GET command and populates Caps. Requires the session
// to be Primed (after a successful Enter).
func (s *BootloaderSession) Get() (Caps, error) {
	if s.state != statePrimed && s.state != stateReady {
		return Caps{}, &StateError{Op: "get", State: s.state}
	}
	if err := s.codec.sendCommand(byte(cmdGet)); err != nil {
		return Caps{}, err
	}
	if err := s.codec.expectAck("get", commandTimeout); err != nil {
		return Caps{}, err
	}
	n, err := s.t.ReadByte(byteTimeout)
	if err != nil {
		return Caps{}, err
	}
	payload, err := s.t.ReadN(int(n)+1, byteTimeout)
	if err != nil {
		return Caps{}, err
	}
	if err := s.codec.expectAck("get", commandTimeout); err != nil {
		return Caps{}, err
	}
	caps, err := parseCaps(payload)
	if err != nil {
		return Caps{}, err
	}
	s.caps = caps
	s.state = stateReady
	logrus.Infof("bootloader capabilities: %s", caps)
	return caps, nil
}

// ReadMemory reads length bytes starting at addr. 1 <= length <= 256.
func (s *BootloaderSession) ReadMemory(addr uint32, length int) ([]byte, error) {
	if s.state != stateReady {
		return nil, &StateError{Op: "read_memory", State: s.state}
	}
	if length < 1 || length > PageSize {
		return nil, &InvalidArgumentError{Reason: "read length must be in [1,256]"}
	}
	if err := s.codec.sendCommand(s.caps.opcode(capReadMemory)); err != nil {
		return nil, err
	}
	if err := s.codec.expectAck("read_memory", commandTimeout); err != nil {
		return nil, err
	}
	if err := s.codec.sendAddress(addr); err != nil {
		return nil, err
	}
	if err := s.codec.expectAck("read_memory address", commandTimeout); err != nil {
		return nil, err
	}
	n := byte(length - 1)
	if err := s.t.Write([]byte{n, ^n}); err != nil {
		return nil, err
	}
	if err := s.t.Flush(); err != nil {
		return nil, err
	}
	if err := s.codec.expectAck("read_memory length", commandTimeout); err != nil {
		return nil, err
	}
	return s.t.ReadN(length, byteTimeout)
}

// WriteMemory writes data at addr. addr must be 256-byte page aligned
// and len(data) must be a positive multiple of 4, at most 256: the
// PageAssembler is responsible for producing buffers that already
// satisfy this before calling down into stm32.
func (s *BootloaderSession) WriteMemory(addr uint32, data []byte) error {
	if s.state != stateReady {
		return &StateError{Op: "write_memory", State: s.state}
	}
	if len(data) == 0 || len(data) > PageSize || len(data)%4 != 0 {
		return &InvalidArgumentError{Reason: fmt.Sprintf("write length %d must be a positive multiple of 4, at most 256", len(data))}
	}
	if addr%PageSize != 0 {
		return &InvalidArgumentError{Reason: fmt.Sprintf("write address 0x%08X is not page aligned", addr)}
	}
	if err := s.codec.sendCommand(s.caps.opcode(capWriteMemory)); err != nil {
		return err
	}
	if err := s.codec.expectAck("write_memory", commandTimeout); err != nil {
		return err
	}
	if err := s.codec.sendAddress(addr); err != nil {
		return err
	}
	if err := s.codec.expectAck("write_memory address", commandTimeout); err != nil {
		return err
	}
	if err := s.codec.sendBlock(data); err != nil {
		return err
	}
	return s.codec.expectAck("write_memory data", commandTimeout)
}

// WriteUnprotect clears flash write protection. Success resets the
// device, so the session drops back to Closed and the caller must
// Enter again; this method performs that re-entry itself (with a
// 500ms settle, per the original firmware) and refreshes Caps, since a
// device that just reset may report a different table.
func (s *BootloaderSession) WriteUnprotect() error {
	if s.state != stateReady {
		return &StateError{Op: "write_unprotect", State: s.state}
	}
	if err := s.codec.sendCommand(s.caps.opcode(capWriteUnprotect)); err != nil {
		return err
	}
	if err := s.codec.expectAck("write_unprotect", commandTimeout); err != nil {
		return err
	}
	if err := s.codec.expectAck("write_unprotect confirm", commandTimeout); err != nil {
		return err
	}
	s.state = stateClosed
	logrus.Info("write protection cleared, device resetting")
	time.Sleep(500 * time.Millisecond)
	if err := s.enterIgnoringNack(); err != nil {
		return fmt.Errorf("re-entering bootloader after write_unprotect: %w", err)
	}
	if _, err := s.Get(); err != nil {
		return fmt.Errorf("refreshing capabilities after write_unprotect: %w", err)
	}
	return nil
}

// EraseAll performs a full-chip mass erase, dispatching on the erase
// opcode Get discovered -- classic ERASE (0x43) uses a one-byte
// selector, extended ERASE (0x44) a two-byte one.
func (s *BootloaderSession) EraseAll() error {
	if s.state != stateReady {
		return &StateError{Op: "erase_all", State: s.state}
	}
	if err := s.codec.sendCommand(s.caps.EraseOpcode()); err != nil {
		return err
	}
	if err := s.codec.expectAck("erase", commandTimeout); err != nil {
		return err
	}
	selector := globalEraseSelector.classic
	if s.caps.ExtendedErase {
		selector = globalEraseSelector.extended
	}
	if err := s.t.Write(selector); err != nil {
		return err
	}
	if err := s.t.Flush(); err != nil {
		return err
	}
	if err := s.codec.expectAck("erase confirm", eraseTimeout); err != nil {
		return err
	}
	logrus.Info("flash erased")
	return nil
}
