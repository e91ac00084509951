// Package version centralizes build version information.
package version

// Version is the current semantic version of revet.
const Version = "0.3.0"

// BuildDate is set during build time (use -ldflags).
var BuildDate = "development"

// GitCommit is set during build time (use -ldflags).
var GitCommit = "unknown"

// Info returns version information as a string.
func Info() string {
	return Version
}

// FullInfo returns detailed version information.
func FullInfo() string {
	return "revet " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}
