/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/allbin/go-sdrtx"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration as seen by the transmitter, after defaults, the
config file and SDRTX_* environment overrides are merged. The output is
valid sdrtx.yaml.

Examples:
  sdrtx config
  sdrtx config --paths
  sdrtx config > ~/.config/sdrtx/sdrtx.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		showPaths, _ := cmd.Flags().GetBool("paths")
		if showPaths {
			if used := cfg.ConfigFileUsed(); used != "" {
				fmt.Fprintf(os.Stderr, "using %s\n", used)
			}
			for _, dir := range sdrtx.ConfigDirs() {
				fmt.Println(dir)
			}
			return
		}

		out, err := yaml.Marshal(cfg.AllSettings())
		exitOnError("Error encoding configuration", err)
		os.Stdout.Write(out)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("paths", false, "List the directories searched for sdrtx.yaml")
}
