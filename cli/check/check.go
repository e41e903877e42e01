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

// Package check implements the `check` subcommand: a dry run over a
// HEX file that validates it without touching any device, the CLI
// entry point for Flasher.Check.
package check

import (
	"context"
	"fmt"
	"os"

	"github.com/arduino/FirmwareUploader/cli/arguments"
	"github.com/arduino/FirmwareUploader/cli/feedback"
	"github.com/arduino/FirmwareUploader/cli/globals"
	"github.com/arduino/FirmwareUploader/internal/fetch"
	"github.com/arduino/FirmwareUploader/internal/flasher"
	"github.com/arduino/go-paths-helper"
	"github.com/spf13/cobra"
)

var commonFlags arguments.Flags

// NewCommand creates the `check` command.
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "check [hex-file]",
		Short:   "Validates a HEX file without flashing it.",
		Long:    "Parses the given Intel HEX file and reports line/byte counts and address range, without opening a serial port.",
		Example: "  " + os.Args[0] + " check firmware.hex",
		Args:    cobra.MaximumNArgs(1),
		Run:     run,
	}
	commonFlags.AddToCommand(command)
	return command
}

func run(cmd *cobra.Command, args []string) {
	defer globals.FwUploaderPath.RemoveAll()

	var hexPath *paths.Path
	var err error
	if commonFlags.URL != "" {
		hexPath, err = fetch.HexFile(commonFlags.URL, globals.FwUploaderPath)
	} else if len(args) == 1 {
		hexPath = paths.New(args[0])
		if !hexPath.Exist() {
			err = fmt.Errorf("HEX file not found: %s", hexPath)
		}
	} else {
		err = fmt.Errorf("specify a HEX file path or --url")
	}
	if err != nil {
		feedback.Fatal(err.Error(), feedback.ErrBadArgument)
	}

	f := flasher.New(nil, nil, nil)
	report, err := f.Check(context.Background(), hexPath)
	if err != nil {
		feedback.Fatal(fmt.Sprintf("check failed: %s", err), feedback.ErrGeneric)
	}
	feedback.PrintResult(report)
}
