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
	"go.bug.st/serial"
)

// Transport is the byte-oriented link the protocol codec speaks over.
// A single flash job owns its Transport exclusively for the duration of
// the job; nothing in this package is safe for concurrent use.
type Transport interface {
	// Write sends b in full or returns an error.
	Write(b []byte) error
	// ReadByte blocks until one byte arrives or deadline elapses, in
	// which case it returns a *TimeoutError.
	ReadByte(deadline time.Duration) (byte, error)
	// ReadN reads exactly n bytes, or returns a *TimeoutError if the
	// deadline elapses before the nth byte arrives.
	ReadN(n int, deadline time.Duration) ([]byte, error)
	// Drain discards any bytes currently buffered for reading.
	Drain()
	// Flush blocks until queued output has been transmitted.
	Flush() error
	// Close releases the underlying link.
	Close() error
}

// BootControl forces the target into its ROM bootloader and, once
// flashing is done, releases it back into normal execution. How this
// is wired to silicon (dedicated GPIO, a serial port's modem-control
// lines, or a no-op on boards that self-select the bootloader) is the
// caller's concern; stm32 only needs the two calls below.
type BootControl interface {
	EnterBootloader() error
	ResetRun() error
}

// serialTransport is a Transport backed by a real serial port, mirroring
// flasher.openSerial's baud-rate fallback loop but fixed to a single
// caller-chosen rate, since the bootloader's auto-baud step determines
// the rate and retrying at other speeds would desynchronise it.
type serialTransport struct {
	port serial.Port
}

// OpenSerial opens portAddress at baudRate and wraps it as a Transport.
// Grounded on flasher.openSerial (flasher/flasher.go): same go.bug.st/serial
// Mode, same ReadTimeout-on-open discipline, generalised to a caller
// supplied baud rate because the bootloader -- unlike the Arduino Wi-Fi
// co-processor passthrough -- requires a fixed rate chosen up front.
func OpenSerial(portAddress string, baudRate int) (Transport, error) {
	t, _, err := OpenSerialWithBootControl(portAddress, baudRate)
	return t, err
}

// OpenSerialWithBootControl opens portAddress once and returns both a
// Transport and a BootControl sharing that same serial.Port, so a
// caller that needs to pulse BOOT0/NRST through the port's modem
// control lines doesn't have to open a second handle to the device.
func OpenSerialWithBootControl(portAddress string, baudRate int) (Transport, BootControl, error) {
	port, err := serial.Open(portAddress, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, nil, fmt.Errorf("opening serial port %s: %w", portAddress, err)
	}
	if err := port.SetReadTimeout(time.Second); err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("setting read timeout on %s: %w", portAddress, err)
	}
	logrus.Infof("opened %s at %d baud", portAddress, baudRate)
	return &serialTransport{port: port}, NewModemLineBootControl(port), nil
}

func (t *serialTransport) Write(b []byte) error {
	logrus.Debugf("stm32 tx: % X", b)
	n, err := t.port.Write(b)
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("serial write: short write %d/%d bytes", n, len(b))
	}
	return nil
}

func (t *serialTransport) ReadByte(deadline time.Duration) (byte, error) {
	b, err := t.ReadN(1, deadline)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadN loops reads into buf because go.bug.st/serial's SetReadTimeout
// only bounds a single Read call, not the whole accumulation -- the
// same serialFillBuffer loop used in flasher/nina.go to assemble a full
// command reply out of however many partial reads the OS driver
// chooses to hand back.
func (t *serialTransport) ReadN(n int, deadline time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	deadlineAt := time.Now().Add(deadline)
	for read < n {
		if time.Now().After(deadlineAt) {
			return nil, &TimeoutError{Op: fmt.Sprintf("read %d bytes", n)}
		}
		if err := t.port.SetReadTimeout(time.Until(deadlineAt)); err != nil {
			return nil, fmt.Errorf("setting read timeout: %w", err)
		}
		m, err := t.port.Read(buf[read:])
		if err != nil {
			return nil, fmt.Errorf("serial read: %w", err)
		}
		if m == 0 {
			return nil, &TimeoutError{Op: fmt.Sprintf("read %d bytes", n)}
		}
		read += m
	}
	logrus.Debugf("stm32 rx: % X", buf)
	return buf, nil
}

func (t *serialTransport) Drain() {
	t.port.ResetInputBuffer()
}

func (t *serialTransport) Flush() error {
	return t.port.Drain()
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}

// modemLineBootControl toggles BOOT0/RESET through a serial port's RTS
// and DTR lines on boards that wire them to the reset network instead
// of exposing dedicated GPIO -- the same technique
// janchaloupka-fitkit-serial's mspbsl.setRstPin/setTestPin use for the
// MSP430 BSL, applied to STM32's BOOT0 (DTR) and NRST (RTS).
type modemLineBootControl struct {
	port serial.Port
}

// NewModemLineBootControl adapts an already-open serial.Port (typically
// the same port used for the bootloader transport) into a BootControl.
func NewModemLineBootControl(port serial.Port) BootControl {
	return &modemLineBootControl{port: port}
}

func (b *modemLineBootControl) EnterBootloader() error {
	if err := b.port.SetDTR(true); err != nil { // BOOT0 high
		return fmt.Errorf("asserting BOOT0: %w", err)
	}
	if err := b.port.SetRTS(true); err != nil { // NRST low
		return fmt.Errorf("asserting NRST: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := b.port.SetRTS(false); err != nil { // release NRST
		return fmt.Errorf("releasing NRST: %w", err)
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

func (b *modemLineBootControl) ResetRun() error {
	if err := b.port.SetDTR(false); err != nil { // BOOT0 low
		return fmt.Errorf("releasing BOOT0: %w", err)
	}
	if err := b.port.SetRTS(true); err != nil {
		return fmt.Errorf("asserting NRST: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	return b.port.SetRTS(false)
}
