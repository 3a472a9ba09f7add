package preflight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"skmotion/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDisplayServer())

	outputDir := filepath.Dir(cfg.Recording.Output)
	results = append(results, CheckDirectoryAccess("Destination directory", outputDir))
	if cfg.Preflight.MinFreeMiB > 0 {
		results = append(results, CheckFreeSpace(ctx, "Destination free space", outputDir, uint64(cfg.Preflight.MinFreeMiB)<<20))
	}
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	return results
}

// Failed returns an error describing every failed result, or nil.
func Failed(results []Result) error {
	var failures []string
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failures, "; "))
}
