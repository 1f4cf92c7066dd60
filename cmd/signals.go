/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/internal/serialport"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals [port]",
	Short: "Display current modem signal states",
	Long: `Display the current state of all modem control signals of the keying port.

Without an argument the configured serial.port is used.

Examples:
  sdrtx signals
  sdrtx signals /dev/ttyUSB0

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output, keying pin)
  DTR - Data Terminal Ready (output, keying pin)`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := cfg.GetString(sdrtx.KeySerialPort)
		if len(args) == 1 {
			portPath = args[0]
		}

		port, err := serialport.Open(portPath, serialport.WithExclusive(false))
		exitOnError("Error opening port", err)
		defer port.Close()

		signals, err := port.GetModemSignals()
		if err != nil {
			port.Close()
			exitOnError("Error reading modem signals", err)
		}

		fmt.Printf("Modem Signals for %s:\n\n", portPath)
		fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
		fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
		fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
		fmt.Printf("  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
		fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
		fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))

		if cfg.GetBool(sdrtx.KeySerialUse) && portPath == cfg.GetString(sdrtx.KeySerialPort) {
			fmt.Fprintf(os.Stderr, "\nkeying pin: %s (invert=%t)\n",
				cfg.GetString(sdrtx.KeySerialPin), cfg.GetBool(sdrtx.KeyInvert))
		}
	},
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
