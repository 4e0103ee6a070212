// Package version reports the build version of the SnackBase client.
//
// Version, commit and build time are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/snackbase/snackbase-go/version.Version=1.0.0"
//
// When they are not set, the VCS stamp recorded by the Go toolchain is used.
package version
