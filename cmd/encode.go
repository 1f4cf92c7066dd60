/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/encoder"
)

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode [codeword...]",
	Short: "Encode codewords to a raw PCM file",
	Long: `Encode codewords with the configured device correction and write the
waveform as signed 16-bit little-endian mono PCM. No keying line is touched.

The output can be played back with:
  aplay -t raw -f S16_LE -r 48000 -c 1 page.raw

Example usage:
  sdrtx encode --test-page -o page.raw
  sdrtx encode --hex 7CD215D8 7A89C197 -o page.raw`,
	Run: func(cmd *cobra.Command, args []string) {
		testPage, _ := cmd.Flags().GetBool("test-page")
		hexMode, _ := cmd.Flags().GetBool("hex")
		output, _ := cmd.Flags().GetString("output")

		words, err := codewordsFromArgs(args, hexMode, testPage)
		exitOnError("Error", err)

		settings, err := sdrtx.ReadSettings(cfg)
		exitOnError("Error reading configuration", err)

		enc, err := encoder.New(settings.Device, encoder.WithPlayer(settings.Player...))
		exitOnError("Error creating encoder", err)
		enc.SetCorrection(settings.Correction)

		data, err := enc.Encode(words)
		exitOnError("Error encoding", err)

		if output == "-" {
			_, err = os.Stdout.Write(data)
			exitOnError("Error writing output", err)
			return
		}
		exitOnError("Error writing output", os.WriteFile(output, data, 0o644))
		fmt.Fprintf(os.Stderr, "Wrote %d bytes (%d codewords, %+.2f ppm) to %s\n",
			len(data), len(words), settings.Correction, output)
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().Bool("test-page", false, "Encode an idle test batch")
	encodeCmd.Flags().Bool("hex", false, "Parse codewords as hexadecimal")
	encodeCmd.Flags().StringP("output", "o", "-", "Output file, - for stdout")
}
