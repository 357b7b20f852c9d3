//go:build !unix

package preflight

func openFileLimit() (uint64, error) {
	return 0, errUnsupported
}
