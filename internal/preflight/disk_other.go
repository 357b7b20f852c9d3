//go:build !linux && !darwin && !windows

package preflight

func freeSpace(string) (uint64, error) {
	return 0, errUnsupported
}
