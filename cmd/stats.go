// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/open-policy-agent/strpool/v1/metrics"
	"github.com/open-policy-agent/strpool/v1/strpool"
	"github.com/open-policy-agent/strpool/v1/util"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type statsParams struct {
	output     string
	prometheus bool
}

type sourceReport struct {
	Name    string `json:"name"`
	Lines   int    `json:"lines"`
	Invalid int    `json:"invalid"`
}

type statsReport struct {
	Sources    []sourceReport `json:"sources"`
	Lines      int            `json:"lines"`
	Invalid    int            `json:"invalid"`
	Unique     int            `json:"unique"`
	DedupRatio float64        `json:"dedup_ratio"`
	Pool       strpool.Stats  `json:"pool"`
}

func newStatsCommand(e *env) *cobra.Command {
	var params statsParams

	cmd := &cobra.Command{
		Use:   "stats [file...]",
		Short: "Report how much duplication the input lines contain",
		Long: `Intern every line of the given files (stdin when none) into one pool and
report line, entry and lookup counts. Files are read concurrently.`,
		PreRunE: func(*cobra.Command, []string) error {
			switch params.output {
			case outputTable, outputJSON, outputYAML:
				return nil
			}
			return fmt.Errorf("invalid output format %q", params.output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.newPool()
			if err != nil {
				return err
			}

			l := &loader{pool: p, workers: e.cfg.Workers, logger: e.logger}
			sources, err := l.load(cmd.Context(), args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			report := buildStatsReport(p, sources)
			out := cmd.OutOrStdout()

			switch params.output {
			case outputJSON:
				bs, err := util.MarshalIndentJSON(report)
				if err != nil {
					return err
				}
				if _, err := out.Write(bs); err != nil {
					return err
				}
			case outputYAML:
				bs, err := util.MarshalYAML(report)
				if err != nil {
					return err
				}
				if _, err := out.Write(bs); err != nil {
					return err
				}
			default:
				if err := renderStatsTable(out, report); err != nil {
					return err
				}
			}

			if params.prometheus {
				return writePrometheus(out, p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&params.output, "output", "o", outputTable, "set output format (table, json, yaml)")
	cmd.Flags().BoolVar(&params.prometheus, "prometheus", false, "also print pool metrics in Prometheus text format")

	return cmd
}

func buildStatsReport(p *strpool.Pool, sources []*source) statsReport {
	report := statsReport{Pool: p.Stats()}
	unique := make(map[strpool.Handle]struct{})

	for _, src := range sources {
		report.Sources = append(report.Sources, sourceReport{
			Name:    src.name,
			Lines:   len(src.lines),
			Invalid: src.invalid,
		})
		report.Lines += len(src.lines)
		report.Invalid += src.invalid
		for _, h := range src.lines {
			unique[h] = struct{}{}
		}
	}

	report.Unique = len(unique)
	if report.Unique > 0 {
		report.DedupRatio = float64(report.Lines) / float64(report.Unique)
	}
	return report
}

func renderStatsTable(w io.Writer, report statsReport) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")

	rows := [][]string{
		{"lines", strconv.Itoa(report.Lines)},
		{"invalid", strconv.Itoa(report.Invalid)},
		{"unique", strconv.Itoa(report.Unique)},
		{"dedup ratio", strconv.FormatFloat(report.DedupRatio, 'f', 2, 64)},
		{"entries", strconv.Itoa(report.Pool.Entries)},
		{"bytes", strconv.FormatInt(report.Pool.Bytes, 10)},
		{"segments", strconv.Itoa(report.Pool.Segments)},
		{"hits", strconv.FormatInt(report.Pool.Hits, 10)},
		{"misses", strconv.FormatInt(report.Pool.Misses, 10)},
	}
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}

	return table.Render()
}

func writePrometheus(w io.Writer, p *strpool.Pool) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector("", p)); err != nil {
		return err
	}

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
