// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bufio"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/open-policy-agent/strpool/v1/strpool"
)

type dedupParams struct {
	filter string
	count  bool
}

func newDedupCommand(e *env) *cobra.Command {
	var params dedupParams

	cmd := &cobra.Command{
		Use:   "dedup [file...]",
		Short: "Print each distinct input line once, in first-seen order",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.newPool()
			if err != nil {
				return err
			}

			l := &loader{pool: p, workers: e.cfg.Workers, logger: e.logger}
			if params.filter != "" {
				l.filter, err = glob.Compile(params.filter)
				if err != nil {
					return fmt.Errorf("invalid filter %q: %w", params.filter, err)
				}
			}

			sources, err := l.load(cmd.Context(), args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var order []strpool.Handle
			counts := make(map[strpool.Handle]int)
			for _, src := range sources {
				for _, h := range src.lines {
					if counts[h] == 0 {
						order = append(order, h)
					}
					counts[h]++
				}
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			for _, h := range order {
				if params.count {
					fmt.Fprintf(w, "%d\t%s\n", counts[h], h)
				} else {
					fmt.Fprintln(w, h)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&params.filter, "filter", "", "only keep lines matching this glob pattern")
	cmd.Flags().BoolVarP(&params.count, "count", "c", false, "prefix lines with the number of occurrences")

	return cmd
}
