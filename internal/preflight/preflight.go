package preflight

import (
	"context"

	"truvideo/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Advisory bool
}

// RunAll executes the filesystem and dependency checks for cfg. The upload
// endpoint check is advisory: a session still records and keeps its file
// when delivery is impossible.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail, Advisory: status.Optional})
	}

	results = append(results, CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckFreeSpace("Scratch space", cfg.Paths.ScratchDir, requiredScratchBytes(cfg)))

	endpoint := CheckUploadEndpoint(ctx, cfg.Upload.Endpoint)
	endpoint.Advisory = true
	results = append(results, endpoint)

	return results
}

// Blocking returns the failed checks that should stop a recording.
func Blocking(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Advisory {
			failed = append(failed, r)
		}
	}
	return failed
}

// requiredScratchBytes reserves room for one full-size export plus the same
// again for the segments it is built from.
func requiredScratchBytes(cfg *config.Config) int64 {
	return 2 * cfg.Export.MaxBytes
}
