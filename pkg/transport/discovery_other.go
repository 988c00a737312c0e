//go:build !linux

package transport

import "path/filepath"

// discoverPlatformEndpoints globs the callout device files macOS and
// other BSD-derived Unixes expose for USB-serial adapters.
func discoverPlatformEndpoints() []string {
	matches, err := filepath.Glob("/dev/cu.*")
	if err != nil {
		return nil
	}
	return matches
}
