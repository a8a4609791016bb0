// Package version exposes build information.
package version

// Version is overridden at build time with -ldflags "-X ghl-mcp/internal/version.Version=...".
var Version = "1.0.0"

// GetVersion returns the build version.
func GetVersion() string {
	return Version
}
