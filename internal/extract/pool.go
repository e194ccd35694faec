package extract

import (
	"context"
	"os"
	"runtime"
	"sync"

	"codedoc/internal/errors"
	"codedoc/internal/logging"
)

// Run extracts every file in entries using a GOMAXPROCS-sized worker
// pool (raised to 4 when GOMAXPROCS is lower, and never more workers
// than files), merges per-file results into a single registry-ready
// Result, and logs a warning for each file that cannot be read or
// whose strategy returns an error rather than aborting the run.
func Run(ctx context.Context, root string, entries []FileEntry, log *logging.Logger) (Result, error) {
	if len(entries) == 0 {
		return Result{}, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 4 {
		numWorkers = 4
	}
	if numWorkers > len(entries) {
		numWorkers = len(entries)
	}

	work := make(chan int, len(entries))
	results := make(chan Result, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			strategies := make(map[Language]Strategy)

			for idx := range work {
				f := entries[idx]
				strat, ok := strategies[f.Language]
				if !ok {
					strat, ok = Dispatch(f.Language)
					if !ok {
						continue
					}
					strategies[f.Language] = strat
				}

				source, err := os.ReadFile(f.AbsPath)
				if err != nil {
					if log != nil {
						log.Warn("failed to read source file", map[string]any{"path": f.RelPath, "error": err.Error()})
					}
					continue
				}

				res, err := strat.Extract(ctx, f.AbsPath, f.RelPath, source)
				if err != nil {
					if log != nil {
						log.Warn("parse failure", map[string]any{"path": f.RelPath, "error": err.Error()})
					}
					continue
				}
				results <- res
			}
		}()
	}

	for i := range entries {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	var merged Result
	for r := range results {
		merged.Components = append(merged.Components, r.Components...)
		merged.Edges = append(merged.Edges, r.Edges...)
	}

	select {
	case <-ctx.Done():
		return merged, errors.Wrap(errors.ParseFailure, "extraction cancelled", ctx.Err())
	default:
	}

	return merged, nil
}
