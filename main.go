package main

import (
	"os"

	"github.com/arduino/FirmwareUploader/cli"
)

func main() {
	stm32FwUploaderCLI := cli.NewCommand()
	if err := stm32FwUploaderCLI.Execute(); err != nil {
		os.Exit(1)
	}
}
