package preflight

import (
	"errors"
	"fmt"
)

const (
	// minDiskBytes is the free space below which indexing is refused.
	minDiskBytes = 100 << 20
	// warnDiskBytes is the free space below which a warning is shown.
	warnDiskBytes = 1 << 30
)

var errUnsupported = errors.New("not supported on this platform")

// CheckDiskSpace checks the free space on the volume holding dir.
func (c *Checker) CheckDiskSpace(dir string) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	free, err := c.freeSpace(dir)
	if errors.Is(err, errUnsupported) {
		result.Status = StatusWarn
		result.Message = "not checked on this platform"
		return result
	}
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot stat %s: %v", dir, err)
		return result
	}

	msg := formatBytes(int64(free)) + " free"
	switch {
	case free < minDiskBytes:
		result.Status = StatusFail
		result.Message = msg + fmt.Sprintf(" (need %s)", formatBytes(minDiskBytes))
	case free < warnDiskBytes:
		result.Status = StatusWarn
		result.Message = msg
	default:
		result.Status = StatusPass
		result.Message = msg
	}
	return result
}
