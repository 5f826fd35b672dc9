// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/physionet-sample/internal/batch"
	"github.com/pdiddy/physionet-sample/internal/physionet"
	"github.com/pdiddy/physionet-sample/pkg/types"
)

const (
	defaultDB        = "eegmmidb"
	defaultOut       = "data/raw/sample_eegmmidb"
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "physionet-sample/0.1"
)

var defaultSubjects = []string{"S001", "S002"}

var fetchCmd = &cobra.Command{
	Use:   "fetch [subjects...]",
	Short: "Download subjects of a PhysioNet database",
	Long: `Fetch downloads each subject directory of a PhysioNet database into
<out>/<subject>, keeping the remote subdirectory layout. Files that already
exist locally are not downloaded again.

Subjects come from positional arguments, --subjects, --range and
--subjects-file, in that order. A subject that fails to download is logged as
a warning and does not stop the others; the command only fails when the
output directory cannot be created.`,
	Example: `  physionet-sample fetch --subjects S001,S002
  physionet-sample fetch --db eegmmidb --out data/raw/sample_eegmmidb S001 S002
  physionet-sample fetch --range S001-S010`,
	RunE: runFetch,
}

func init() {
	addFetchFlags(fetchCmd.Flags())
	bindFetchFlags(viper.GetViper(), fetchCmd.Flags())

	rootCmd.AddCommand(fetchCmd)
}

// fetchKeys names the fetch flags that double as config/env keys.
var fetchKeys = []string{
	"db", "out", "subjects", "subjects-file", "range", "db-version",
	"overwrite", "base-url", "timeout", "max-retries",
}

func addFetchFlags(f *pflag.FlagSet) {
	f.String("db", defaultDB, "PhysioNet database name")
	f.String("out", defaultOut, "output folder")
	f.StringSlice("subjects", defaultSubjects, "subject IDs (e.g. S001,S002)")
	f.String("subjects-file", "", "YAML file listing subject IDs")
	f.String("range", "", "subject ID range, e.g. S001-S010")
	f.String("db-version", "", "database version (default: latest published)")
	f.Bool("overwrite", false, "replace files that already exist locally")
	f.String("base-url", physionet.DefaultBaseURL, "PhysioNet base URL")
	f.Duration("timeout", defaultTimeout, "HTTP request timeout")
	f.Int("max-retries", 0, "retries on HTTP 429/503 (default 5)")
}

func bindFetchFlags(v *viper.Viper, f *pflag.FlagSet) {
	for _, name := range fetchKeys {
		v.BindPFlag(name, f.Lookup(name))
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	subjects, err := collectSubjects(viper.GetViper(), cmd.Flags(), args)
	if err != nil {
		return err
	}

	pcfg := types.PhysioNetConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: defaultUserAgent,
		},
		BaseURL:     viper.GetString("base-url"),
		Version:     viper.GetString("db-version"),
		Overwrite:   viper.GetBool("overwrite"),
		MaxRetries:  viper.GetInt("max-retries"),
		Credentials: credentials,
	}
	if pcfg.Timeout <= 0 {
		pcfg.Timeout = defaultTimeout
	}

	client := physionet.New(&http.Client{Timeout: pcfg.Timeout}, pcfg)

	_, err = batch.Run(cmd.Context(), client, types.BatchConfig{
		Collection: viper.GetString("db"),
		Subjects:   subjects,
		OutDir:     viper.GetString("out"),
	}, logger)
	return err
}

// collectSubjects merges positional arguments, --subjects, --range and
// --subjects-file. The --subjects default only applies when no other
// source names a subject.
func collectSubjects(v *viper.Viper, f *pflag.FlagSet, args []string) ([]string, error) {
	file := v.GetString("subjects-file")
	rng := v.GetString("range")

	subjects := append([]string(nil), args...)
	explicit := f.Changed("subjects") || v.InConfig("subjects")
	if explicit || (len(args) == 0 && file == "" && rng == "") {
		subjects = append(subjects, v.GetStringSlice("subjects")...)
	}

	if rng != "" {
		r, err := batch.SubjectRange(rng)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, r...)
	}

	if file != "" {
		fromFile, err := batch.ReadSubjectsFile(file)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, fromFile...)
	}
	return subjects, nil
}
