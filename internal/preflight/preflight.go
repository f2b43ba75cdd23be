package preflight

import (
	"hlssafe/internal/config"
	"hlssafe/internal/encoding"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Log directory (always checked; it also holds the socket and lock)
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// Default output directory (when configured)
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}

	results = append(results, CheckEncoder(encoding.NewResolver(cfg.Encoder.Candidates, cfg.Encoder.Command)))
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
