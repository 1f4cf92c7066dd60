/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-sdrtx/internal/tui/components"
	"github.com/allbin/go-sdrtx/internal/tui/styles"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Initialize the transmitter and show its resources",
	Long: `Initialize the transmitter from the configuration, show which keying lines
and which encoder it owns, and shut it down again. Nothing is keyed.

A failed initialization is reported with the resource that could not be
built; nothing stays open in that case.`,
	Run: func(cmd *cobra.Command, args []string) {
		tx, err := newController()
		if err != nil {
			fmt.Println(styles.ErrorStyle.Render("✗ not initialized"))
			exitOnError("Error", err)
		}

		st := tx.Status()
		if err := tx.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		fmt.Println(styles.TitleStyle.Render("sdrtx"), styles.StateReadyStyle.Render("● initialized"))
		fmt.Println(components.NewResourceTable(st).View())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
