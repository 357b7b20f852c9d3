package preflight

import (
	"errors"
	"fmt"
)

const (
	// minFileDescriptors is the soft limit below which walking fails often.
	minFileDescriptors = 256
	// recommendedFileDescriptors is the soft limit below which a warning is shown.
	recommendedFileDescriptors = 1024
)

// CheckFileDescriptors checks the soft open-file limit.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: false,
	}

	limit, err := c.openFileLimit()
	if errors.Is(err, errUnsupported) {
		result.Status = StatusPass
		result.Message = "not limited on this platform"
		return result
	}
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot read limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d", limit)
	switch {
	case limit < minFileDescriptors:
		result.Status = StatusFail
		result.Details = fmt.Sprintf("raise with: ulimit -n %d", recommendedFileDescriptors)
	case limit < recommendedFileDescriptors:
		result.Status = StatusWarn
		result.Details = fmt.Sprintf("recommended: %d", recommendedFileDescriptors)
	default:
		result.Status = StatusPass
	}
	return result
}
