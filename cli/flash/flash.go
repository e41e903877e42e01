/*
	arduino-fwuploader
	Copyright (c) 2021 Arduino LLC.  All right reserved.

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package flash implements the `flash` subcommand: entering the
// bootloader, erasing, writing and verifying a HEX file, with a retry
// loop around the whole job. Grounded on cli/firmware/flash.go's
// runFlash, adapted from downloading a named module firmware to taking
// a HEX file path or --url directly, since this client has no firmware
// index to resolve a module/version pair against.
package flash

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arduino/FirmwareUploader/cli/arguments"
	"github.com/arduino/FirmwareUploader/cli/feedback"
	"github.com/arduino/FirmwareUploader/cli/globals"
	"github.com/arduino/FirmwareUploader/internal/fetch"
	"github.com/arduino/FirmwareUploader/internal/flasher"
	"github.com/arduino/FirmwareUploader/internal/stm32"
	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var commonFlags arguments.Flags

// NewCommand creates the `flash` command.
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "flash [hex-file]",
		Short: "Flashes a HEX file to an STM32 target over its UART bootloader.",
		Long:  "Enters the target's factory bootloader, erases flash, writes the given Intel HEX file and verifies it by read-back.",
		Example: "" +
			"  " + os.Args[0] + " flash --port /dev/ttyACM0 firmware.hex\n" +
			"  " + os.Args[0] + " flash --port COM10 --url https://example.com/firmware.hex\n",
		Args: cobra.MaximumNArgs(1),
		Run:  run,
	}
	commonFlags.AddToCommand(command)
	commonFlags.AddRetriesToCommand(command)
	return command
}

func run(cmd *cobra.Command, args []string) {
	defer globals.FwUploaderPath.RemoveAll()

	if commonFlags.Port == "" {
		feedback.Fatal("Please specify a serial port with --port", feedback.ErrBadArgument)
	}
	if commonFlags.Retries < 1 {
		feedback.Fatal("Number of retries should be at least 1", feedback.ErrBadArgument)
	}

	hexPath, err := resolveHexPath(args)
	if err != nil {
		feedback.Fatal(err.Error(), feedback.ErrBadArgument)
	}

	retry := 0
	for {
		retry++
		logrus.Infof("flashing %s (try %d of %d)", hexPath, retry, commonFlags.Retries)

		report, err := runOnce(hexPath)
		if err == nil {
			feedback.PrintResult(report)
			logrus.Info("flash completed successfully")
			return
		}
		logrus.Error(err)

		if retry >= commonFlags.Retries {
			feedback.Fatal(fmt.Sprintf("flash failed after %d attempts: %s", retry, err), feedback.ErrGeneric)
		}
		logrus.Info("waiting 1 second before retrying...")
		time.Sleep(time.Second)
	}
}

func resolveHexPath(args []string) (*paths.Path, error) {
	if commonFlags.URL != "" {
		return fetch.HexFile(commonFlags.URL, globals.FwUploaderPath)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("specify a HEX file path or --url")
	}
	p := paths.New(args[0])
	if !p.Exist() {
		return nil, fmt.Errorf("HEX file not found: %s", p)
	}
	return p, nil
}

func runOnce(hexPath *paths.Path) (flasher.Report, error) {
	transport, boot, err := stm32.OpenSerialWithBootControl(commonFlags.Port, commonFlags.Baud)
	if err != nil {
		return flasher.Report{}, fmt.Errorf("opening %s: %w", commonFlags.Port, err)
	}
	defer transport.Close()

	session := stm32.NewBootloaderSession(transport)

	var sink flasher.ProgressSink
	if feedback.GetFormat() == feedback.Text {
		sink = flasher.NewWriterSink(os.Stdout)
	}
	f := flasher.New(session, boot, sink)

	return f.Flash(context.Background(), hexPath)
}
