package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the limit below which a run is refused.
const MinFileDescriptors = 256

// descriptorsPerWorker covers the open partition plus the index segments a
// flush can touch.
const descriptorsPerWorker = 16

// CheckFileDescriptors checks the open file limit against threads workers.
func (c *Checker) CheckFileDescriptors(threads int) CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: true,
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	want := uint64(MinFileDescriptors)
	if threads > 0 {
		want += uint64(threads) * descriptorsPerWorker
	}
	result.Message = fmt.Sprintf("%d (recommended for %d threads: %d)", rLimit.Cur, threads, want)

	switch {
	case rLimit.Cur < MinFileDescriptors:
		result.Status = StatusFail
		result.Details = "Run 'ulimit -n 10240' to increase the limit"
	case rLimit.Cur < want:
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 10240' or lower --threads"
	default:
		result.Status = StatusPass
	}
	return result
}
