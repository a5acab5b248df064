package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TrevorS/meanshift"
)

// fitOutput is the JSON document written by "fit --output json".
type fitOutput struct {
	Bandwidth float64     `json:"bandwidth"`
	Metric    string      `json:"metric"`
	Centers   [][]float64 `json:"centers"`
	Sizes     []int       `json:"sizes"`
	Labels    []int       `json:"labels"`
}

func newFitOutput(result *meanshift.Result, metric string) fitOutput {
	return fitOutput{
		Bandwidth: result.Bandwidth,
		Metric:    metric,
		Centers:   result.Centers,
		Sizes:     clusterSizes(result),
		Labels:    result.Labels,
	}
}

func clusterSizes(result *meanshift.Result) []int {
	sizes := make([]int, len(result.Centers))
	for _, l := range result.Labels {
		sizes[l]++
	}
	return sizes
}

func writeResult(w io.Writer, result *meanshift.Result, format, metric string) error {
	out := newFitOutput(result, metric)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "metric:    %s\n", out.Metric)
	fmt.Fprintf(w, "bandwidth: %s\n", formatFloat(out.Bandwidth))
	fmt.Fprintf(w, "clusters:  %d\n", len(out.Centers))
	for k, c := range out.Centers {
		coords := make([]string, len(c))
		for j, v := range c {
			coords[j] = formatFloat(v)
		}
		fmt.Fprintf(w, "  %d: size=%d center=[%s]\n", k, out.Sizes[k], strings.Join(coords, " "))
	}
	labels := make([]string, len(out.Labels))
	for i, l := range out.Labels {
		labels[i] = strconv.Itoa(l)
	}
	_, err := fmt.Fprintf(w, "labels:    %s\n", strings.Join(labels, " "))
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
