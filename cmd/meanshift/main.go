// Package main provides the meanshift CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/TrevorS/meanshift"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "meanshift",
		Short: "Mean-shift clustering for numeric datasets",
		Long: `meanshift clusters the rows of a delimited numeric file with the
mean-shift algorithm and prints the cluster centers and per-row labels.

The bandwidth is estimated from the data unless one is given. Supported
metrics: minkowski (euclidean), manhattan, dtw.`,
		SilenceUsage: true,
	}

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "meanshift v%s (%s)\n", version, commit)
		},
	})

	// Fit command
	fitCmd := &cobra.Command{
		Use:   "fit [csv-file]",
		Short: "Cluster a dataset",
		Long:  "Cluster the rows of a delimited file (or stdin when no file or \"-\" is given).",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFit,
	}
	fitCmd.Flags().String("config", "", "YAML config file; flags override its values")
	fitCmd.Flags().Float64("bandwidth", 0, "Kernel bandwidth (0 = estimate from data)")
	fitCmd.Flags().Float64("quantile", 0.3, "Neighborhood fraction used for bandwidth estimation")
	fitCmd.Flags().String("metric", "minkowski", "Distance metric: minkowski, manhattan or dtw")
	fitCmd.Flags().String("algorithm", "auto", "Spatial index: auto, kd_tree or brute")
	fitCmd.Flags().Int("workers", 0, "Worker goroutines (0 = number of CPUs)")
	fitCmd.Flags().Int("max-iterations", 300, "Maximum shifts per seed")
	fitCmd.Flags().Float64("tolerance", 1e-3, "Convergence tolerance relative to the bandwidth")
	fitCmd.Flags().Int("leaf-size", 16, "KD-tree leaf size")
	fitCmd.Flags().Bool("header", false, "Skip the first row of the input")
	fitCmd.Flags().String("delimiter", ",", "Field delimiter (a single character, or \"tab\")")
	fitCmd.Flags().String("output", "text", "Output format: text or json")
	fitCmd.Flags().String("log-level", "warn", "Log level: debug, info, warn or error")
	fitCmd.Flags().String("log-format", "text", "Log format: text or json")
	rootCmd.AddCommand(fitCmd)

	return rootCmd
}

func runFit(cmd *cobra.Command, args []string) error {
	opts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	opts.cfg.Logger = logger

	var in io.Reader = cmd.InOrStdin()
	source := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening dataset: %w", err)
		}
		defer f.Close()
		in, source = f, args[0]
	}

	data, err := readDataset(in, opts.delimiter, opts.header)
	if err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}
	logger.Info("dataset loaded", "source", source, "rows", len(data))

	result, err := meanshift.Fit(data, opts.cfg)
	if err != nil {
		return err
	}
	logger.Info("fit complete", "clusters", len(result.Centers), "bandwidth", result.Bandwidth)

	return writeResult(cmd.OutOrStdout(), result, opts.output, opts.cfg.Metric.Name())
}
