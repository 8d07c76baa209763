// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/open-policy-agent/strpool/v1/strpool"
)

const replHelp = `Every non-empty line that is not a command is interned. Empty lines are
ignored.

Commands:
  :stats        print pool statistics
  :lookup <n>   print the entry at index n
  :list         print all entries in insertion order
  :help         print this message
  :quit         exit
`

// prompter is the part of *liner.State the REPL uses.
type prompter interface {
	Prompt(string) (string, error)
	AppendHistory(string)
}

func newReplCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Intern strings interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := e.newPool()
			if err != nil {
				return err
			}

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			return runREPL(line, cmd.OutOrStdout(), p)
		},
	}
}

func runREPL(pr prompter, w io.Writer, p *strpool.Pool) error {
	for {
		input, err := pr.Prompt("strpool> ")
		switch {
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		if input == "" {
			continue
		}
		pr.AppendHistory(input)

		if !strings.HasPrefix(input, ":") {
			h := p.Intern(input)
			fmt.Fprintf(w, "#%d %016x (%d entries)\n", h.Index(), h.Hash(), p.Len())
			continue
		}

		command, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
		switch command {
		case ":quit", ":q", ":exit":
			return nil
		case ":help":
			fmt.Fprint(w, replHelp)
		case ":stats":
			s := p.Stats()
			fmt.Fprintf(w, "entries=%d bytes=%d segments=%d hits=%d misses=%d\n",
				s.Entries, s.Bytes, s.Segments, s.Hits, s.Misses)
		case ":lookup":
			idx, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				fmt.Fprintf(w, "error: invalid index %q\n", arg)
				continue
			}
			s, ok := p.Lookup(idx)
			if !ok {
				fmt.Fprintf(w, "error: no entry at index %d\n", idx)
				continue
			}
			fmt.Fprintf(w, "%q\n", s)
		case ":list":
			i := 0
			p.Each(func(_ strpool.Handle, s string) bool {
				fmt.Fprintf(w, "%d\t%q\n", i, s)
				i++
				return true
			})
		default:
			fmt.Fprintf(w, "error: unknown command %s (try :help)\n", command)
		}
	}
}
