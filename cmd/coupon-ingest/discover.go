package main

import (
	"bufio"
	"context"
	"math/bits"
	"os"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minCodeLen    = 8
	maxCodeLen    = 10
	progressEvery = 10_000_000
)

// discoverer finds codes present in two or more files in two passes: one
// bloom filter per file, then every file is rescanned against the other
// files' filters. Only the candidates of the second pass are held in
// memory, and a bloom false positive is dropped unless the code was also
// read from a second file.
type discoverer struct {
	lg       *zap.Logger
	capacity uint
	fpRate   float64
}

// Discover returns the valid codes, sorted.
func (d *discoverer) Discover(ctx context.Context, files []string) ([]string, error) {
	if len(files) > bits.UintSize {
		return nil, errors.Errorf("at most %d files are supported", bits.UintSize)
	}

	d.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	filters := make([]*bloom.BloomFilter, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(d.capacity, d.fpRate)
			n, err := scanCodes(gctx, path, func(code string) { filter.AddString(code) })
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}
			d.lg.Info("Pass 1 complete", zap.String("file", path), zap.Uint64("codes", n))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.lg.Info("Pass 2: finding codes shared between files")
	found := make([]map[string]struct{}, len(files))
	g, gctx = errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			seen := make(map[string]struct{})
			n, err := scanCodes(gctx, path, func(code string) {
				for j, f := range filters {
					if j != i && f.TestString(code) {
						seen[code] = struct{}{}
						return
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			d.lg.Info("Pass 2 complete",
				zap.String("file", path),
				zap.Uint64("codes", n),
				zap.Int("candidates", len(seen)),
			)
			found[i] = seen
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A candidate is confirmed once two files produced it.
	read := make(map[string]uint)
	for i, seen := range found {
		for code := range seen {
			read[code] |= 1 << uint(i)
		}
	}
	var valid []string
	for code, mask := range read {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, code)
		}
	}
	slices.Sort(valid)
	return valid, nil
}

// scanCodes streams a gzip file line by line and calls fn for every line
// of valid code length.
func scanCodes(ctx context.Context, path string, fn func(code string)) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var n uint64
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		code := scanner.Text()
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		n++
		if n%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		fn(code)
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrap(err, "scan")
	}
	return n, ctx.Err()
}
