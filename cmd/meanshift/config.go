package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TrevorS/meanshift"
)

// fileConfig is the YAML config file layout. Pointer fields distinguish an
// absent key from an explicit zero.
//
// Example:
//
//	bandwidth: 2.5
//	metric: manhattan
//	workers: 4
//	log_level: debug
type fileConfig struct {
	Bandwidth     *float64 `yaml:"bandwidth"`
	Quantile      *float64 `yaml:"quantile"`
	Metric        string   `yaml:"metric"`
	Algorithm     string   `yaml:"algorithm"`
	Workers       *int     `yaml:"workers"`
	MaxIterations *int     `yaml:"max_iterations"`
	Tolerance     *float64 `yaml:"tolerance"`
	LeafSize      *int     `yaml:"leaf_size"`
	LogLevel      string   `yaml:"log_level"`
}

// loadConfig reads a YAML config file. Unknown keys are rejected.
func loadConfig(path string) (*fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// fitOptions is everything runFit needs, resolved from defaults, the config
// file and flags, in increasing precedence.
type fitOptions struct {
	cfg       meanshift.Config
	header    bool
	delimiter rune
	output    string
	logLevel  string
	logFormat string
}

func resolveOptions(cmd *cobra.Command) (*fitOptions, error) {
	flags := cmd.Flags()
	opts := &fitOptions{cfg: meanshift.DefaultConfig()}
	metricName := meanshift.MetricMinkowski

	opts.logLevel, _ = flags.GetString("log-level")
	if path, _ := flags.GetString("config"); path != "" {
		file, err := loadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if file.Bandwidth != nil {
			opts.cfg.Bandwidth = *file.Bandwidth
		}
		if file.Quantile != nil {
			opts.cfg.Quantile = *file.Quantile
		}
		if file.Metric != "" {
			metricName = file.Metric
		}
		if file.Algorithm != "" {
			opts.cfg.Algorithm = meanshift.Algorithm(file.Algorithm)
		}
		if file.Workers != nil {
			opts.cfg.Workers = *file.Workers
		}
		if file.MaxIterations != nil {
			opts.cfg.MaxIterations = *file.MaxIterations
		}
		if file.Tolerance != nil {
			opts.cfg.ConvergenceTolerance = *file.Tolerance
		}
		if file.LeafSize != nil {
			opts.cfg.LeafSize = *file.LeafSize
		}
		if file.LogLevel != "" && !flags.Changed("log-level") {
			opts.logLevel = file.LogLevel
		}
	}

	if flags.Changed("bandwidth") {
		opts.cfg.Bandwidth, _ = flags.GetFloat64("bandwidth")
	}
	if flags.Changed("quantile") {
		opts.cfg.Quantile, _ = flags.GetFloat64("quantile")
	}
	if flags.Changed("metric") {
		metricName, _ = flags.GetString("metric")
	}
	if flags.Changed("algorithm") {
		algo, _ := flags.GetString("algorithm")
		opts.cfg.Algorithm = meanshift.Algorithm(algo)
	}
	if flags.Changed("workers") {
		opts.cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("max-iterations") {
		opts.cfg.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("tolerance") {
		opts.cfg.ConvergenceTolerance, _ = flags.GetFloat64("tolerance")
	}
	if flags.Changed("leaf-size") {
		opts.cfg.LeafSize, _ = flags.GetInt("leaf-size")
	}

	metric, err := meanshift.MetricByName(metricName)
	if err != nil {
		return nil, err
	}
	opts.cfg.Metric = metric

	opts.header, _ = flags.GetBool("header")
	delim, _ := flags.GetString("delimiter")
	if opts.delimiter, err = parseDelimiter(delim); err != nil {
		return nil, err
	}

	opts.output, _ = flags.GetString("output")
	switch opts.output {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", opts.output)
	}
	opts.logFormat, _ = flags.GetString("log-format")

	return opts, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '\n' || r[0] == '\r' || r[0] == '"' {
		return 0, fmt.Errorf("invalid delimiter %q: want a single character", s)
	}
	return r[0], nil
}

// newLogger builds the CLI logger. Records go to w, which is stderr in
// normal use so they never mix with results on stdout.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}
