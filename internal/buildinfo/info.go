// Package buildinfo carries release metadata stamped into the tally binary.
package buildinfo

var (
	// Version is the release tag, injected with -ldflags "-X".
	Version = "dev"
	// Commit is the short git revision the binary was built from.
	Commit = "none"
	// Date is the build timestamp in RFC 3339.
	Date = "unknown"
)
