// Package version holds the build version, set with -ldflags at release time.
package version

// Version is the weave release version.
var Version = "0.0.0-dev"
