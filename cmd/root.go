/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/go-sdrtx"
	"github.com/allbin/go-sdrtx/internal/logging"
)

var (
	cfgFile string

	cfg       *viper.Viper
	logger    *slog.Logger
	logWriter io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sdrtx",
	Short: "Key and drive an SDR paging transmitter",
	Long: `sdrtx coordinates the transmission path of an SDR-based paging transmitter.

A transmission keys the configured lines (a serial RTS/DTR pin and/or a GPIO
pin), waits the guard delay, plays the encoded waveform on the radio device
and unkeys the lines again.

Configuration is read from sdrtx.yaml in $XDG_CONFIG_HOME/sdrtx, the XDG
config dirs or the working directory. Environment variables prefixed with
SDRTX_ override file values, e.g. SDRTX_SERIAL_USE=true.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := sdrtx.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if err := v.BindPFlag(sdrtx.KeyLogLevel, cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
			return err
		}
		if err := v.BindPFlag(sdrtx.KeyLogFile, cmd.Root().PersistentFlags().Lookup("log-file")); err != nil {
			return err
		}
		cfg = v

		logCfg := logging.DefaultConfig()
		logCfg.Level = v.GetString(sdrtx.KeyLogLevel)
		logCfg.File = v.GetString(sdrtx.KeyLogFile)
		l, w, err := logging.New(logCfg)
		if err != nil {
			return err
		}
		logger, logWriter = l, w
		slog.SetDefault(l)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logWriter != nil {
			logWriter.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: sdrtx.yaml in the XDG config dirs)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "log to a rotating file instead of stderr")
}

// newController returns a controller initialized from the loaded configuration
func newController() (*sdrtx.Controller, error) {
	tx := sdrtx.New(sdrtx.WithLogger(logger))
	if err := tx.Initialize(cfg); err != nil {
		return nil, err
	}
	return tx, nil
}

func exitOnError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}
