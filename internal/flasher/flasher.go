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

// Package flasher orchestrates a full flash job: pre-flight check,
// bootloader entry, write-unprotect, erase, write-and-verify, report.
// It is the Go analogue of stm32_bootloader/stm32_flash_image in the
// original firmware, split so the protocol (internal/stm32) and the
// HEX/page plumbing (internal/hexfile, internal/page) stay independently
// testable.
package flasher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/arduino/FirmwareUploader/internal/hexfile"
	"github.com/arduino/FirmwareUploader/internal/page"
	"github.com/arduino/FirmwareUploader/internal/stm32"
	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
)

// Flasher is the top-level orchestrator. One Flasher drives one
// session end to end; it is not reused across devices.
type Flasher struct {
	session *stm32.BootloaderSession
	boot    stm32.BootControl
	sink    ProgressSink
}

// New wires a Flasher to a BootloaderSession and a BootControl. sink may be nil,
// in which case progress is discarded.
func New(session *stm32.BootloaderSession, boot stm32.BootControl, sink ProgressSink) *Flasher {
	if sink == nil {
		sink = nullSink{}
	}
	return &Flasher{session: session, boot: boot, sink: sink}
}

// Check runs the parse-only pre-flight pass without touching the
// device, mirroring the original firmware's stm32_check_hex_file
// entry point.
func (f *Flasher) Check(ctx context.Context, hexPath *paths.Path) (Report, error) {
	start := time.Now()
	r, err := f.scan(ctx, hexPath, nil)
	r.CheckElapsed = time.Since(start)
	return r, err
}

// Flash runs the full procedure: check, enter, write-unprotect, erase,
// write+verify, report. It does not reset the target to run mode; call
// ResetRun separately once satisfied with the report.
func (f *Flasher) Flash(ctx context.Context, hexPath *paths.Path) (Report, error) {
	checkStart := time.Now()
	checkReport, err := f.scan(ctx, hexPath, nil)
	checkReport.CheckElapsed = time.Since(checkStart)
	if err != nil {
		return checkReport, fmt.Errorf("pre-flight check failed: %w", err)
	}
	f.sink.Linef("check pass ok: %d lines, 0x%08X-0x%08X", checkReport.LinesRead, checkReport.AddrMin, checkReport.AddrMax)

	if err := f.boot.EnterBootloader(); err != nil {
		return checkReport, fmt.Errorf("asserting bootloader pins: %w", err)
	}
	if err := f.session.Enter(); err != nil {
		return checkReport, fmt.Errorf("entering bootloader: %w", err)
	}
	caps, err := f.session.Get()
	if err != nil {
		return checkReport, fmt.Errorf("reading bootloader capabilities: %w", err)
	}
	f.sink.Linef("bootloader version 0x%02X, %s erase", caps.Version, eraseVariant(caps.ExtendedErase))

	if err := f.session.WriteUnprotect(); err != nil {
		return checkReport, fmt.Errorf("clearing write protection: %w", err)
	}
	caps = f.session.Caps()

	if err := f.session.EraseAll(); err != nil {
		return checkReport, fmt.Errorf("erasing flash: %w", err)
	}
	f.sink.Linef("flash erased")

	writeStart := time.Now()
	writeReport, err := f.scan(ctx, hexPath, func(p page.Page, r *Report) error {
		return f.writeAndVerify(p, r)
	})
	writeReport.CheckElapsed = checkReport.CheckElapsed
	writeReport.WriteElapsed = time.Since(writeStart)
	writeReport.BootloaderVersion = caps.Version
	writeReport.ExtendedErase = caps.ExtendedErase
	if err != nil {
		return writeReport, fmt.Errorf("writing firmware: %w", err)
	}
	f.sink.Linef("wrote %d pages / %d bytes, %d verify failures", writeReport.PagesWritten, writeReport.BytesWritten, writeReport.VerifyFailures)
	return writeReport, nil
}

// ResetRun releases the device into normal execution. Kept as a
// standalone operation, not folded into Flash, since the original
// firmware exposes stm32_reset independently of flashing.
func (f *Flasher) ResetRun() error {
	return f.boot.ResetRun()
}

// writePage is invoked once per emitted page during the write pass, or
// is nil during the check-only pass. It is handed the report being
// accumulated by scan so it can record counters (verify failures) that
// only it knows about.
type writePage func(page.Page, *Report) error

// scan runs the HEX parser + page assembler once over hexPath. If
// onPage is non-nil, each flushed page is handed to it (the write
// pass); otherwise the pass only validates, counts and reports forward
// address gaps to the sink (the check pass).
func (f *Flasher) scan(ctx context.Context, hexPath *paths.Path, onPage writePage) (Report, error) {
	data, err := hexPath.ReadFile()
	if err != nil {
		return Report{}, fmt.Errorf("reading %s: %w", hexPath, err)
	}
	parser := hexfile.NewParser(bytes.NewReader(data))
	asm := page.New()

	var r Report
	var nextAddr uint32
	haveNext := false
	for {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		rec, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return r, err
		}
		if onPage == nil && haveNext && rec.Address > nextAddr {
			f.sink.Linef("gap 0x%08X-0x%08X is filled with 0xFF", nextAddr, rec.Address)
		}
		nextAddr, haveNext = rec.Address+uint32(len(rec.Data)), true
		flushed, did, err := asm.Feed(rec)
		if err != nil {
			return r, err
		}
		if did {
			if err := f.emit(flushed, onPage, &r); err != nil {
				return r, err
			}
		}
	}
	if flushed, did := asm.Flush(); did {
		if err := f.emit(flushed, onPage, &r); err != nil {
			return r, err
		}
	}

	r.LinesRead = parser.LinesRead
	r.BytesRead = parser.BytesRead
	r.AddrMin = parser.AddrMin
	r.AddrMax = parser.AddrMax
	r.EOFSeen = parser.EOFSeen()
	if !r.EOFSeen {
		return r, &hexfile.BadHexError{Kind: hexfile.KindEofMissing, Msg: "no type-1 record found"}
	}
	return r, nil
}

func (f *Flasher) emit(p page.Page, onPage writePage, r *Report) error {
	if onPage == nil {
		return nil
	}
	if err := onPage(p, r); err != nil {
		return err
	}
	r.PagesWritten++
	r.BytesWritten += len(p.Payload)
	f.sink.Dot()
	f.sink.Flush()
	return nil
}

// writeAndVerify writes one page then reads it back, failing the job
// on the first byte-level mismatch. r.VerifyFailures is incremented
// before the mismatch error is returned so the report reflects it even
// though the job aborts.
func (f *Flasher) writeAndVerify(p page.Page, r *Report) error {
	if err := f.session.WriteMemory(p.BaseAddr, p.Payload); err != nil {
		return fmt.Errorf("writing page 0x%08X: %w", p.BaseAddr, err)
	}
	readBack, err := f.session.ReadMemory(p.BaseAddr, len(p.Payload))
	if err != nil {
		return fmt.Errorf("reading back page 0x%08X: %w", p.BaseAddr, err)
	}
	if !bytes.Equal(p.Payload, readBack) {
		logrus.Errorf("verify mismatch at 0x%08X:\n wrote: % X\n  read: % X", p.BaseAddr, p.Payload, readBack)
		r.VerifyFailures++
		return &stm32.VerifyMismatchError{Addr: p.BaseAddr, Len: len(p.Payload)}
	}
	return nil
}
