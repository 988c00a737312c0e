//go:build linux

package transport

import "path/filepath"

// discoverPlatformEndpoints globs the usual suspects for USB-serial
// and USB-CDC-ACM adapters on Linux.
func discoverPlatformEndpoints() []string {
	var found []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		found = append(found, matches...)
	}
	return found
}
