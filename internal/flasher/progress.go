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
	"io"

	"github.com/sirupsen/logrus"
)

// ProgressSink receives the human-readable progress stream a Flasher
// emits while checking and writing. Message ordering follows call
// order from the single goroutine driving the job; there is no
// buffering guarantee beyond what the sink itself chooses to do.
//
// Grounded on the winc/nina Flasher's progressCallback func(int) field
// and the flasherOut io.Writer parameter threaded through FlashFirmware
// (flasher/winc.go, flasher/nina.go): this generalises both into one
// interface so the orchestrator doesn't need to special-case its output
// target.
type ProgressSink interface {
	Dot()            // one page written and verified
	Linef(format string, args ...any)
	Flush()
}

// LogrusSink emits one log line per message at Info level and treats
// Dot as a Debug-level tick; Flush is a no-op since logrus writes are
// unbuffered by line.
type LogrusSink struct{}

func (LogrusSink) Dot()                            { logrus.Debug(".") }
func (LogrusSink) Linef(format string, args ...any) { logrus.Infof(format, args...) }
func (LogrusSink) Flush()                          {}

// WriterSink writes progress as plain text to w, breaking the line
// every 80 dots -- the column width stm32_flash_image's progress-dot
// printer uses in the original firmware.
type WriterSink struct {
	w        io.Writer
	dotCount int
}

func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Dot() {
	fmt.Fprint(s.w, ".")
	s.dotCount++
	if s.dotCount%80 == 0 {
		fmt.Fprintln(s.w)
	}
}

func (s *WriterSink) Linef(format string, args ...any) {
	if s.dotCount%80 != 0 {
		fmt.Fprintln(s.w)
		s.dotCount = 0
	}
	fmt.Fprintf(s.w, format+"\n", args...)
}

func (s *WriterSink) Flush() {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		f.Flush()
	}
}

// nullSink discards everything; used when the caller doesn't supply a
// ProgressSink.
type nullSink struct{}

func (nullSink) Dot()                       {}
func (nullSink) Linef(string, ...any) {}
func (nullSink) Flush()                     {}
