package transport

import (
	"path/filepath"
	"sort"
)

// DiscoverEndpoints enumerates candidate serial device files for the
// current platform, sorted and de-duplicated. The platform-specific
// glob patterns live in discovery_linux.go and discovery_other.go.
func DiscoverEndpoints() []string {
	return DiscoverEndpointsIn(nil, nil)
}

// DiscoverEndpointsIn enumerates the platform defaults plus every
// extraGlobs pattern joined against every extraRoots directory, sorted
// and de-duplicated. A deployment whose serial adapters don't show up
// under the platform default (e.g. a USB hub exposed under a
// non-standard path) names its own roots/globs in config rather than
// going undiscovered.
func DiscoverEndpointsIn(extraRoots, extraGlobs []string) []string {
	found := discoverPlatformEndpoints()

	for _, root := range extraRoots {
		for _, glob := range extraGlobs {
			matches, err := filepath.Glob(filepath.Join(root, glob))
			if err != nil {
				continue
			}
			found = append(found, matches...)
		}
	}

	sort.Strings(found)
	deduped := found[:0]
	var last string
	for i, p := range found {
		if i == 0 || p != last {
			deduped = append(deduped, p)
			last = p
		}
	}
	return deduped
}
