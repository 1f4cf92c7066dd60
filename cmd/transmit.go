/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/encoder"
	"github.com/allbin/go-sdrtx/internal/tui/colors"
)

// transmitCmd represents the transmit command
var transmitCmd = &cobra.Command{
	Use:   "transmit [codeword...]",
	Short: "Encode and transmit codewords",
	Long: `Initialize the transmitter from the configuration, encode the given
codewords and transmit them.

Codewords are 32-bit values given as decimal numbers, or as hexadecimal with
--hex (with or without a 0x prefix). --test-page sends an idle batch that
pagers ignore, which is useful to check the keying and the audio path.

Example usage:
  sdrtx transmit --test-page
  sdrtx transmit --hex 7CD215D8 7A89C197
  sdrtx transmit -c /etc/sdrtx/sdrtx.yaml 2055848343`,
	RunE: func(cmd *cobra.Command, args []string) error {
		testPage, _ := cmd.Flags().GetBool("test-page")
		hexMode, _ := cmd.Flags().GetBool("hex")

		words, err := codewordsFromArgs(args, hexMode, testPage)
		if err != nil {
			return err
		}

		tx, err := newController()
		if err != nil {
			return fmt.Errorf("failed to initialize transmitter: %w", err)
		}
		defer tx.Shutdown()

		data, err := tx.Encode(words)
		if err != nil {
			return fmt.Errorf("failed to encode: %w", err)
		}

		if err := tx.Transmit(data); err != nil {
			return describeTransmitError(err)
		}

		ok := lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
		fmt.Printf("%s %d codewords, %d bytes\n", ok.Render("✓ transmitted"), len(words), len(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transmitCmd)

	transmitCmd.Flags().Bool("test-page", false, "Transmit an idle test batch")
	transmitCmd.Flags().Bool("hex", false, "Parse codewords as hexadecimal")
}

// codewordsFromArgs returns the test page or the parsed arguments
func codewordsFromArgs(args []string, hexMode, testPage bool) ([]int, error) {
	if testPage {
		if len(args) > 0 {
			return nil, fmt.Errorf("--test-page takes no codewords")
		}
		return encoder.TestPage(), nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no codewords given")
	}
	return parseCodewords(args, hexMode)
}

// parseCodewords converts arguments to 32-bit codewords. Arguments may
// also hold several comma or space separated values.
func parseCodewords(args []string, hexMode bool) ([]int, error) {
	var words []int
	for _, arg := range args {
		for _, field := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' }) {
			base := 10
			if hexMode {
				base = 16
				field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
			}
			v, err := strconv.ParseUint(field, base, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid codeword '%s': %w", field, err)
			}
			words = append(words, int(v))
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("no codewords given")
	}
	return words, nil
}

// describeTransmitError adds a hint for the errors an operator can act on
func describeTransmitError(err error) error {
	var armErr *sdrtx.ArmError
	switch {
	case errors.As(err, &armErr):
		return fmt.Errorf("%w (check the %s keying line and its permissions)", err, armErr.Line)
	case errors.Is(err, sdrtx.ErrUninitialized):
		return fmt.Errorf("%w (enable serial.use or gpio.use)", err)
	default:
		return err
	}
}
