/*
	Copyright 2021 Arduino SA

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

package arguments

import (
	"github.com/arduino/FirmwareUploader/cli/globals"
	"github.com/spf13/cobra"
)

// Flags contains the flags shared by the check and flash commands, so
// both stay consistent with each other.
type Flags struct {
	Port    string
	Baud    int
	URL     string
	Retries int
}

// AddToCommand adds the port/baud/url flags to cmd.
func (f *Flags) AddToCommand(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Port, "port", "p", "", "Serial port the target is attached to, e.g.: COM10, /dev/ttyACM0")
	cmd.Flags().IntVar(&f.Baud, "baud", globals.DefaultBaudRate, "Baud rate to open the serial port at; the bootloader's auto-baud step locks onto it")
	cmd.Flags().StringVar(&f.URL, "url", "", "Fetch the HEX file from this URL before running, instead of taking it from the command line")
}

// AddRetriesToCommand adds the --retries flag, used only by flash.
func (f *Flags) AddRetriesToCommand(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.Retries, "retries", globals.DefaultRetries, "Number of attempts in total in case of upload failure")
}
