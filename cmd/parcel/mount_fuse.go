//go:build fuse

package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/parcel-format/parcel"
)

// runMount reads a newline-separated manifest of parcel file paths
// (highest precedence first), opens each as a layer, stacks them behind
// an Overlay, and mounts the result read-only at mountpoint.
func runMount(manifestPath, mountpoint string) error {
	manifest, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer manifest.Close()

	var handles []*parcel.Handle
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()

	scanner := bufio.NewScanner(manifest)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		h, err := parcel.Open(line)
		if err != nil {
			return fmt.Errorf("opening layer %s: %w", line, err)
		}
		handles = append(handles, h)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	if len(handles) == 0 {
		return fmt.Errorf("manifest %s names no layers", manifestPath)
	}

	overlay := parcel.NewOverlay(handles)
	server := parcel.NewFuseServer(overlay)

	opts := &fuse.MountOptions{
		FsName:     "parcel",
		Name:       "parcel",
		Debug:      false,
		AllowOther: false,
	}
	conn, err := fuse.NewServer(server, mountpoint, opts)
	if err != nil {
		return fmt.Errorf("mounting at %s: %w", mountpoint, err)
	}
	conn.Serve()
	return nil
}
