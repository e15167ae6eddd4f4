// Package embedded provides embedded static assets for the application.
package embedded

import (
	_ "embed"
)

// SampleRegistryName identifies the bundled export in logs and the cache
const SampleRegistryName = "sample"

// SampleRegistry is a Verra-style registry export bundled into the binary
// so the screener runs offline. It holds a handful of deliberately malformed
// rows (a duplicate ID, non-numeric volumes) that the loader must drop.
//
//go:embed registry_sample.csv
var SampleRegistry []byte
