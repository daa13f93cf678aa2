// Package batch discovers result logs and analyses them in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/wheelpoke/internal/parser"
)

// DefaultPattern matches the file names the apparatus writes results to.
const DefaultPattern = "*Results*.txt"

// ErrNoFiles is returned when discovery finds nothing to analyse.
var ErrNoFiles = errors.New("no result files found")

// Discover expands paths into a sorted, de-duplicated list of result files.
// Files named explicitly are always kept; directories are walked and filtered
// by the glob pattern on the base name.
func Discover(paths []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	seen := map[string]struct{}{}
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, ErrNoFiles
	}
	sort.Strings(out)
	return out, nil
}

// FileOutcome is the analysis result of one file. Exactly one of Result and
// Err is set.
type FileOutcome struct {
	Path   string
	Result *parser.Result
	Err    error
}

// Run parses every path with at most workers files in flight. Per-file
// failures are reported in the outcome and never stop the batch; only context
// cancellation does. Outcomes keep the input order.
func Run(ctx context.Context, paths []string, workers int) ([]FileOutcome, error) {
	return run(ctx, paths, workers, parser.ParseFile)
}

func run(ctx context.Context, paths []string, workers int, parse func(string) (*parser.Result, error)) ([]FileOutcome, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	outcomes := make([]FileOutcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := parse(path)
			outcomes[i] = FileOutcome{Path: path, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// Failed counts outcomes that carry an error.
func Failed(outcomes []FileOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
