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

// Package fetch optionally retrieves a HEX file over HTTP before a
// flash job runs. It is strictly file-fetch-then-hand-to-core: the
// stm32/hexfile/page/flasher packages never see a URL, only the local
// *paths.Path fetch produces.
package fetch

import (
	"fmt"
	"path"

	"github.com/arduino/go-paths-helper"
	"github.com/sirupsen/logrus"
	"go.bug.st/downloader/v2"
)

// HexFile downloads url into destDir and returns the local path to the
// fetched file. Grounded on indexes/download.DownloadFirmware, trimmed
// to drop the checksum/size verification that relies on an index entry
// this package has no equivalent of -- there is no firmware index for
// a one-off user-supplied HEX file, so nothing to verify against.
func HexFile(url string, destDir *paths.Path) (*paths.Path, error) {
	if err := destDir.MkdirAll(); err != nil {
		return nil, fmt.Errorf("creating %s: %w", destDir, err)
	}
	dest := destDir.Join(path.Base(url))
	if err := dest.WriteFile(nil); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}

	d, err := downloader.Download(dest.String(), url)
	if err != nil {
		return nil, fmt.Errorf("starting download of %s: %w", url, err)
	}
	if d == nil {
		logrus.Infof("%s already present, skipping download", dest)
		return dest, nil
	}
	if err := d.Run(); err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	if d.Resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: server returned %s", url, d.Resp.Status)
	}
	logrus.Infof("fetched %s -> %s", url, dest)
	return dest, nil
}
