// Package version holds the build version, overridden at link time with
// -ldflags "-X github.com/maxvaer/reconx/pkg/version.Version=...".
package version

var Version = "dev"
