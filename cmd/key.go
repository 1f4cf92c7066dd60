/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/keying"
)

// keyCmd represents the key command
var keyCmd = &cobra.Command{
	Use:   "key <serial|gpio>",
	Short: "Key a single line without playing anything",
	Long: `Open one of the configured keying lines, key it for the given duration and
unkey it again. Use this to check wiring and inversion without audio.

The line is configured by serial.port/serial.pin or gpio.pin, and invert
applies as for a transmission. Ctrl+C unkeys early.

Examples:
  sdrtx key gpio
  sdrtx key serial --duration 5s`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"serial", "gpio"},
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetDuration("duration")

		settings, err := sdrtx.ReadSettings(cfg)
		if err != nil {
			return err
		}

		line, name, err := openLine(args[0], settings)
		if err != nil {
			return err
		}
		defer line.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := line.SetOn(); err != nil {
			return fmt.Errorf("failed to key %s: %w", name, err)
		}
		fmt.Printf("%s keyed for %s\n", name, duration)

		select {
		case <-ctx.Done():
		case <-time.After(duration):
		}

		if err := line.SetOff(); err != nil {
			return fmt.Errorf("failed to unkey %s: %w", name, err)
		}
		fmt.Printf("%s unkeyed\n", name)
		return nil
	},
}

func openLine(which string, s sdrtx.Settings) (keying.Line, string, error) {
	switch which {
	case "serial":
		pin, err := keying.SerialPin(s.SerialPin)
		if err != nil {
			return nil, "", err
		}
		line, err := keying.OpenSerial(s.SerialPort, pin, s.Invert)
		if err != nil {
			return nil, "", err
		}
		return line, line.String(), nil
	case "gpio":
		line, err := keying.OpenGPIO(s.GPIOPin, s.Invert, keying.WithSysfsRoot(s.GPIORoot))
		if err != nil {
			return nil, "", err
		}
		return line, line.String(), nil
	default:
		return nil, "", fmt.Errorf("invalid line: %s (valid: serial, gpio)", which)
	}
}

func init() {
	rootCmd.AddCommand(keyCmd)

	keyCmd.Flags().DurationP("duration", "d", time.Second, "How long to keep the line keyed")
}
