// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cmd implements the strpool command line.
package cmd

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/open-policy-agent/strpool/v1/logging"
	"github.com/open-policy-agent/strpool/v1/strpool"
	"github.com/open-policy-agent/strpool/v1/util"
)

// envPrefix namespaces environment overrides, e.g. STRPOOL_LOG_LEVEL.
const envPrefix = "STRPOOL"

type config struct {
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	Seed        string `mapstructure:"seed"`
	SegmentSize int    `mapstructure:"segment-size"`
	Workers     int    `mapstructure:"workers"`
}

// env holds the state shared by all subcommands of one invocation.
type env struct {
	v      *viper.Viper
	cfg    config
	logger *logging.StandardLogger
}

// NewRootCommand returns the strpool command tree.
func NewRootCommand() *cobra.Command {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:   path.Base(os.Args[0]),
		Short: "String interning toolkit",
		Long: `strpool interns text into a deduplicating string pool.

Lines read from files (or stdin) are interned one by one; the pool stores every
distinct line once and reports how much duplication the input contained.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load(cmd)
		},
	}

	addGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newStatsCommand(e),
		newDedupCommand(e),
		newReplCommand(e),
		newVersionCommand(),
	)

	return root
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "set path of configuration file")
	fs.String("log-level", "info", "set log level (debug, info, warn, error)")
	fs.String("log-format", "text", "set log format (text, json)")
	fs.String("seed", "", "JSON or YAML list of strings interned before any input")
	fs.Int("segment-size", strpool.DefaultSegmentSize, "number of entries per pool segment")
	fs.Int("workers", runtime.GOMAXPROCS(0), "number of files read concurrently")
}

// load resolves configuration from flags, environment and the optional config
// file, in that order of precedence, and sets up logging.
func (e *env) load(cmd *cobra.Command) error {
	if err := e.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	e.v.SetEnvPrefix(envPrefix)
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()

	if file := e.v.GetString("config"); file != "" {
		e.v.SetConfigFile(file)
		if err := e.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := e.v.Unmarshal(&e.cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	level, err := logging.ParseLevel(e.cfg.LogLevel)
	if err != nil {
		return err
	}
	e.logger = logging.New()
	e.logger.SetOutput(cmd.ErrOrStderr())
	e.logger.SetLevel(level)
	if err := e.logger.SetFormat(e.cfg.LogFormat); err != nil {
		return err
	}

	if e.cfg.Workers < 1 {
		e.cfg.Workers = 1
	}
	return nil
}

// newPool creates the pool for one command run and interns the seed file,
// if any, as static entries.
func (e *env) newPool() (*strpool.Pool, error) {
	p := strpool.New(
		strpool.WithName("cli"),
		strpool.WithLogger(e.logger),
		strpool.WithSegmentSize(e.cfg.SegmentSize),
	)

	if e.cfg.Seed == "" {
		return p, nil
	}

	bs, err := os.ReadFile(e.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	seeds, err := util.LoadStrings(bs)
	if err != nil {
		return nil, fmt.Errorf("load seed %s: %w", e.cfg.Seed, err)
	}
	for _, s := range seeds {
		p.InternStatic(s)
	}
	e.logger.Debug("Seeded pool with %d strings from %s.", len(seeds), e.cfg.Seed)

	return p, nil
}
