// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the physionet-sample CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/physionet-sample/internal/secrets"
	"github.com/pdiddy/physionet-sample/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured from --log-level and --log-format before any
// subcommand runs.
var logger = zerolog.Nop()

// credentials holds PhysioNet credentials loaded from .secrets/ or the
// environment at startup.
var credentials types.Credentials

// configFileUsed is recorded by initConfig and logged once the logger exists.
var configFileUsed string

// rootCmd is the base command for the physionet-sample CLI.
var rootCmd = &cobra.Command{
	Use:   "physionet-sample",
	Short: "Download small subsets of PhysioNet databases for local testing",
	Long: `physionet-sample downloads a handful of subjects from a public PhysioNet
database (by default the EEG Motor Movement/Imagery dataset, eegmmidb) into a
local directory, so tests can run against real recordings without mirroring
the whole database.

Each subject is fetched independently: a failed subject is reported as a
warning and the remaining subjects are still downloaded.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(os.Stdout, viper.GetString("log-level"), viper.GetString("log-format"))
		if err != nil {
			return err
		}
		logger = l
		if configFileUsed != "" {
			logger.Debug().Str("path", configFileUsed).Msg("Using config file")
		}

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		credentials = secrets.Credentials(s)
		if !credentials.Empty() {
			logger.Debug().Str("username", credentials.Username).Msg("Loaded PhysioNet credentials")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: physionet-sample.yaml in . or ~/.config/physionet-sample/)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("physionet-sample")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "physionet-sample"))
		}
	}

	viper.SetEnvPrefix("PHYSIONET_SAMPLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		configFileUsed = viper.ConfigFileUsed()
	}
}

// newLogger builds the CLI logger. Console output mirrors the familiar
// "[INFO] ..." status lines; json emits one object per line.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch format {
	case "json":
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
	case "console", "":
		cw := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
			FormatLevel: func(i any) string {
				s, _ := i.(string)
				return "[" + strings.ToUpper(s) + "]"
			},
		}
		return zerolog.New(cw).Level(lvl).With().Timestamp().Logger(), nil
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid --log-format %q (want console or json)", format)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
