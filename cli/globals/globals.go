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

package globals

import "github.com/arduino/go-paths-helper"

// DefaultBaudRate is the fixed rate a flash job communicates at once
// the bootloader's auto-baud step has locked onto it. The bootloader
// determines its own baud rate from the auto-baud byte, so there is no
// fallback list to retry at -- only one rate to open the port at
// before sending it.
const DefaultBaudRate = 115200

// DefaultRetries is how many attempts in total the flash subcommand
// makes at a job before giving up.
const DefaultRetries = 3

// FwUploaderPath is where HEX files fetched with --url land.
var FwUploaderPath = paths.TempDir().Join("stm32-fwuploader")
