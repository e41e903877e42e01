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

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arduino/FirmwareUploader/cli/check"
	"github.com/arduino/FirmwareUploader/cli/feedback"
	"github.com/arduino/FirmwareUploader/cli/flash"
	"github.com/arduino/FirmwareUploader/cli/version"
	v "github.com/arduino/FirmwareUploader/version"
	"github.com/mattn/go-colorable"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	outputFormat string
	verbose      bool
	logFile      string
	logFormat    string
	logLevel     string
)

// NewCommand creates the root command.
func NewCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:              "stm32-fwuploader",
		Short:            "Flashes firmware onto STM32 targets over their UART ROM bootloader.",
		Long:             "stm32-fwuploader drives an STM32 target's factory USART bootloader to erase, write and verify an Intel HEX firmware image.",
		Example:          "  " + os.Args[0] + " flash --port /dev/ttyACM0 firmware.hex",
		Args:             cobra.NoArgs,
		Run:              func(cmd *cobra.Command, args []string) { cmd.Help() },
		PersistentPreRun: preRun,
	}

	rootCmd.AddCommand(version.NewCommand())
	rootCmd.AddCommand(flash.NewCommand())
	rootCmd.AddCommand(check.NewCommand())

	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "The output format, can be {text|json}.")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to the file where logs will be written")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "The output format for the logs, can be {text|json}.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Messages with this level and above will be logged. Valid levels are: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print the logs on the standard output.")

	return rootCmd
}

// toLogLevel converts the --log-level option to the corresponding
// logrus level.
func toLogLevel(s string) (t logrus.Level, found bool) {
	t, found = map[string]logrus.Level{
		"trace": logrus.TraceLevel,
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}[s]
	return
}

func parseFormatString(arg string) (feedback.OutputFormat, bool) {
	return feedback.ParseOutputFormat(arg)
}

func preRun(cmd *cobra.Command, args []string) {
	if verbose {
		logrus.SetOutput(colorable.NewColorableStdout())
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})
	} else {
		logrus.SetOutput(io.Discard)
	}

	logFormat = strings.ToLower(logFormat)
	if logFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Printf("Unable to open file for logging: %s\n", logFile)
			os.Exit(int(feedback.ErrGeneric))
		}
		if logFormat == "json" {
			logrus.AddHook(lfshook.NewHook(file, &logrus.JSONFormatter{}))
		} else {
			logrus.AddHook(lfshook.NewHook(file, &logrus.TextFormatter{}))
		}
	}

	if lvl, found := toLogLevel(logLevel); !found {
		feedback.Fatal(fmt.Sprintf("Invalid option for --log-level: %s", logLevel), feedback.ErrBadArgument)
	} else {
		logrus.SetLevel(lvl)
	}

	outputFormat = strings.ToLower(outputFormat)
	format, found := parseFormatString(outputFormat)
	if !found {
		feedback.Fatal(fmt.Sprintf("Invalid output format: %s", outputFormat), feedback.ErrBadArgument)
	}
	feedback.SetFormat(format)

	logrus.Info(v.VersionInfo)

	if outputFormat != "text" {
		cmd.Root().SetHelpFunc(func(cmd *cobra.Command, args []string) {
			logrus.Warn("Calling help on JSON format")
			feedback.Fatal("Invalid call: help is only available in text mode.", feedback.ErrBadArgument)
		})
	}
}
