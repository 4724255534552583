// Package version exposes the build version injected at link time.
package version

// Version is overridden via -ldflags at build time.
var Version = "dev"

// Value returns the current build version.
func Value() string {
	return Version
}
