//go:build !fuse

package main

import "fmt"

// runMount is a stub used when the binary is built without the fuse
// build tag; FUSE support pulls in github.com/hanwen/go-fuse/v2 and is
// opt-in at build time.
func runMount(manifestPath, mountpoint string) error {
	return fmt.Errorf("mount support requires building with -tags fuse")
}
