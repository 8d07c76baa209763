// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/open-policy-agent/strpool/v1/logging"
	"github.com/open-policy-agent/strpool/v1/strpool"
)

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// source is one input, read into handles in line order.
type source struct {
	name    string
	lines   []strpool.Handle
	invalid int
}

type loader struct {
	pool    *strpool.Pool
	workers int
	filter  glob.Glob
	logger  logging.Logger
}

// load interns every line of paths, reading up to l.workers files at a time.
// With no paths it reads stdin. Sources are returned in argument order.
func (l *loader) load(ctx context.Context, paths []string, stdin io.Reader) ([]*source, error) {
	if len(paths) == 0 {
		src, err := l.read(ctx, "<stdin>", stdin)
		if err != nil {
			return nil, err
		}
		return []*source{src}, nil
	}

	sources := make([]*source, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, path := range paths {
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			src, err := l.read(ctx, path, f)
			if err != nil {
				return err
			}
			sources[i] = src
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

func (l *loader) read(ctx context.Context, name string, r io.Reader) (*source, error) {
	src := &source{name: name}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for n := 1; scanner.Scan(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := scanner.Bytes()
		if l.filter != nil && !l.filter.Match(string(line)) {
			continue
		}

		h, err := l.pool.InternBytes(line)
		if err != nil {
			src.invalid++
			l.logger.Warn("Skipping %s:%d: %v", name, n, err)
			continue
		}
		src.lines = append(src.lines, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	l.logger.Debug("Read %d lines from %s.", len(src.lines), name)
	return src, nil
}
