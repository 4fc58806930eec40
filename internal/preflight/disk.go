package preflight

import (
	"fmt"
	"syscall"

	"github.com/dustin/go-humanize"
)

// MinDiskSpaceBytes is the free space below which a run is refused.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// LowDiskSpaceBytes is the free space below which a run is warned about.
const LowDiskSpaceBytes = 2 * 1024 * 1024 * 1024

// CheckDiskSpace checks the free space on the filesystem holding path.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum: %s)", humanize.IBytes(available), humanize.IBytes(MinDiskSpaceBytes))

	switch {
	case available < MinDiskSpaceBytes:
		result.Status = StatusFail
	case available < LowDiskSpaceBytes:
		result.Status = StatusWarn
		result.Details = "Large corpora can produce indexes of several GB"
	default:
		result.Status = StatusPass
	}
	return result
}
