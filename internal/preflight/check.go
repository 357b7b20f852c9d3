// Package preflight runs environment checks before indexing: free disk
// space and write access at the data directory, open file limits, root
// readability and index integrity.
package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/ancheck/internal/store"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status as PASS, WARN or FAIL in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Target describes what the checks inspect.
type Target struct {
	// DBPath is the index database file; its directory is the data dir.
	DBPath string
	// Roots are the directories the scanner walks.
	Roots []string
}

// Checker performs preflight validation checks.
type Checker struct {
	verbose bool
	output  io.Writer

	// platform probes, replaced in tests
	freeSpace     func(dir string) (uint64, error)
	openFileLimit func() (uint64, error)
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output:        os.Stdout,
		freeSpace:     freeSpace,
		openFileLimit: openFileLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against target and returns the results in a
// stable order.
func (c *Checker) RunAll(ctx context.Context, target Target) []CheckResult {
	dataDir := filepath.Dir(target.DBPath)

	results := []CheckResult{
		c.CheckWritePermissions(dataDir),
		c.CheckDiskSpace(dataDir),
		c.CheckFileDescriptors(),
		c.CheckRoots(target.Roots),
	}
	if ctx.Err() != nil {
		return results
	}
	return append(results, c.CheckDatabase(target.DBPath))
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns ready, ready_with_warnings or failed.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "ancheck doctor")
	_, _ = fmt.Fprintln(c.output, "==============")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var warnings, errs []string
	for _, r := range results {
		switch {
		case r.IsCritical():
			errs = append(errs, r.Name+": "+r.Message)
		case r.Status != StatusPass:
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}
	c.printList("error(s)", errs)
	c.printList("warning(s)", warnings)
}

func (c *Checker) printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "%d %s:\n", len(items), label)
	for _, item := range items {
		_, _ = fmt.Fprintf(c.output, "  - %s\n", item)
	}
}

// CheckWritePermissions checks that the data directory can be created and
// written to.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	f, err := os.CreateTemp(dir, ".ancheck-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "OK"
	result.Details = dir
	return result
}

// CheckRoots checks that the configured roots exist and can be listed.
// Missing roots are skipped by the scanner, so only an empty set fails.
func (c *Checker) CheckRoots(roots []string) CheckResult {
	result := CheckResult{
		Name:     "roots",
		Required: true,
	}

	var readable, missing []string
	for _, root := range roots {
		if _, err := os.ReadDir(root); err != nil {
			missing = append(missing, root)
			continue
		}
		readable = append(readable, root)
	}

	switch {
	case len(readable) == 0:
		result.Status = StatusFail
		result.Message = "no readable roots"
		if len(roots) == 0 {
			result.Message = "no roots configured"
		}
	case len(missing) > 0:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d of %d roots unreadable", len(missing), len(roots))
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d readable", len(readable))
	}
	if len(missing) > 0 {
		result.Details = "unreadable: " + strings.Join(missing, ", ")
	}
	return result
}

// CheckDatabase checks the integrity of an existing index file.
func (c *Checker) CheckDatabase(path string) CheckResult {
	result := CheckResult{
		Name:     "database",
		Required: true,
		Details:  path,
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = StatusWarn
		result.Message = "not built yet (run: ancheck index)"
		return result
	}
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	if err := store.ValidateIntegrity(path); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("OK (%s)", formatBytes(info.Size()))
	return result
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
