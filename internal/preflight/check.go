package preflight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical problem.
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

// MarshalText encodes the status by name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *CheckStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "PASS":
		*s = StatusPass
	case "WARN":
		*s = StatusWarn
	case "FAIL":
		*s = StatusFail
	default:
		return fmt.Errorf("unknown check status %q", text)
	}
	return nil
}

// CheckResult holds the result of a single check.
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

// Target describes the run being checked.
type Target struct {
	Input   string
	Index   string
	Threads int
}

// Checker performs preflight checks.
type Checker struct {
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose prints check details.
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

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against t. The input check is skipped when
// t.Input is empty. The index checks look at the nearest existing ancestor
// of t.Index because the index directory is created by the run.
func (c *Checker) RunAll(_ context.Context, t Target) []CheckResult {
	var results []CheckResult
	if t.Input != "" {
		results = append(results, c.CheckInput(t.Input))
	}
	indexBase := existingAncestor(t.Index)
	return append(results,
		c.CheckWritePermissions(indexBase),
		c.CheckDiskSpace(indexBase),
		c.CheckFileDescriptors(t.Threads),
	)
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

// Failures returns the critical failures as "name: message" lines.
func (c *Checker) Failures(results []CheckResult) []string {
	var out []string
	for _, r := range results {
		if r.IsCritical() {
			out = append(out, r.Name+": "+r.Message)
		}
	}
	return out
}

// SummaryStatus returns "ready", "warnings", or "not ready".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	warn := false
	for _, r := range results {
		if r.IsCritical() {
			return "not ready"
		}
		if r.Status != StatusPass {
			warn = true
		}
	}
	if warn {
		return "warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "corpusidx preflight")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))
}

// CheckInput checks that the corpus root is a readable directory.
func (c *Checker) CheckInput(root string) CheckResult {
	result := CheckResult{
		Name:     "input",
		Required: true,
	}

	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s does not exist", root)
		return result
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot stat %s: %v", root, err)
		return result
	case !info.IsDir():
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a directory", root)
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read %s: %v", root, err)
		return result
	}
	if len(entries) == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s is empty", root)
		result.Details = "The run will produce an empty index"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d entries)", root, len(entries))
	return result
}

// CheckWritePermissions checks that a file can be created in dir.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
	}

	f, err := os.CreateTemp(dir, ".corpusidx-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to %s: %v", dir, err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = dir
	return result
}

// existingAncestor returns path or its nearest ancestor that exists.
func existingAncestor(path string) string {
	if path == "" {
		return "."
	}
	p := filepath.Clean(path)
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
