// Command parcel is a CLI for inspecting and building Parcel archives.
package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/parcel-format/parcel"
)

const usage = `parcel - Parcel archive CLI tool

Usage:
  parcel ls <parcel_file> [<path>]          List entries under a path (default /)
  parcel cat <parcel_file> <path>           Display the contents of a file
  parcel info <parcel_file>                 Display header metadata
  parcel pack <parcel_file> <source_dir>    Build a parcel from a host directory tree
  parcel mount <manifest> <mountpoint>      Mount a stack of parcels read-only (requires the fuse build tag)
  parcel help                               Show this help message

Examples:
  parcel ls archive.parcel                  List all entries at the root of archive.parcel
  parcel ls archive.parcel lib              List entries under /lib
  parcel cat archive.parcel dir/file.txt    Display the contents of /dir/file.txt
  parcel info archive.parcel                Show metadata about the parcel
  parcel pack archive.parcel ./rootfs       Build archive.parcel from ./rootfs
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "ls":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing parcel file path")
			break
		}
		dir := "/"
		if len(os.Args) > 3 {
			dir = os.Args[3]
		}
		err = listEntries(os.Args[2], dir)

	case "cat":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing parcel file path or target file")
			break
		}
		err = catFile(os.Args[2], os.Args[3])

	case "info":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing parcel file path")
			break
		}
		err = showInfo(os.Args[2])

	case "pack":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing parcel file path or source directory")
			break
		}
		err = packDir(os.Args[2], os.Args[3])

	case "mount":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing manifest or mountpoint")
			break
		}
		err = runMount(os.Args[2], os.Args[3])

	case "help":
		fmt.Println(usage)
		return

	default:
		fmt.Printf("Error: Unknown command '%s'\n", cmd)
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func listEntries(path, dir string) error {
	h, err := parcel.Open(path)
	if err != nil {
		return fmt.Errorf("opening parcel: %w", err)
	}
	defer h.Close()

	ino, ok := h.Select(dir)
	if !ok {
		return fmt.Errorf("path %q not found", dir)
	}
	kind, err := h.GetKind(ino)
	if err != nil {
		return err
	}
	if kind != parcel.Directory {
		return fmt.Errorf("%q is not a directory", dir)
	}

	entries, err := h.Readdir(ino)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	for _, e := range entries {
		if e.Kind == parcel.Whiteout {
			continue
		}
		attr, err := h.GetAttr(e.Child)
		if err != nil {
			continue
		}
		printEntry(e.Name, e.Kind, attr)
	}
	return nil
}

func printEntry(name string, kind parcel.InodeKind, attr parcel.InodeAttr) {
	mode := parcel.UnixToMode(parcel.KindToUnix(kind) | attr.Perm)
	mtime := time.Unix(attr.Mtime.Sec, attr.Mtime.Nsec)
	fmt.Printf("%s %8d %s %s\n", mode, attr.Nlink, mtime.Format("Jan 02 15:04"), name)
}

func catFile(path, target string) error {
	h, err := parcel.Open(path)
	if err != nil {
		return fmt.Errorf("opening parcel: %w", err)
	}
	defer h.Close()

	ino, ok := h.Select(target)
	if !ok {
		return fmt.Errorf("path %q not found", target)
	}
	data, err := h.Read(ino, 0, nil)
	if err != nil {
		return fmt.Errorf("reading %q: %w", target, err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func showInfo(path string) error {
	h, err := parcel.Open(path)
	if err != nil {
		return fmt.Errorf("opening parcel: %w", err)
	}
	defer h.Close()

	meta := h.Metadata()
	fmt.Println("Parcel Archive Information")
	fmt.Println("==========================")
	fmt.Printf("Package version:  %s\n", meta.Version)
	if len(meta.Depends) > 0 {
		fmt.Printf("Depends:          %s\n", strings.Join(meta.Depends, ", "))
	}

	var fileCount, dirCount, symCount, charCount int
	countKinds(h, h.RootInode(), &fileCount, &dirCount, &symCount, &charCount)

	fmt.Println("\nContent Summary")
	fmt.Println("---------------")
	fmt.Printf("Directories:      %d\n", dirCount)
	fmt.Printf("Regular files:    %d\n", fileCount)
	fmt.Printf("Symlinks:         %d\n", symCount)
	fmt.Printf("Char devices:     %d\n", charCount)
	return nil
}

func countKinds(h *parcel.Handle, ino uint64, fileCount, dirCount, symCount, charCount *int) {
	entries, err := h.Readdir(ino)
	if err != nil {
		return
	}
	for _, e := range entries {
		switch e.Kind {
		case parcel.Whiteout:
			continue
		case parcel.Directory:
			*dirCount++
			countKinds(h, e.Child, fileCount, dirCount, symCount, charCount)
		case parcel.Symlink:
			*symCount++
		case parcel.CharDevice:
			*charCount++
		default:
			*fileCount++
		}
	}
}

// hardlinkKey identifies one host inode across the walked tree, so that
// a file with several names becomes one parcel inode with several
// directory entries rather than several copies of the payload.
type hardlinkKey struct {
	dev uint64
	ino uint64
}

// packDir walks sourceDir on the host filesystem and builds a fresh
// parcel at outPath containing its full tree.
func packDir(outPath, sourceDir string) error {
	h, err := parcel.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating parcel: %w", err)
	}
	defer h.Close()

	seen := make(map[hardlinkKey]string)
	if err := packTree(h, h.RootInode(), sourceDir, "/", seen); err != nil {
		return err
	}
	return h.Store()
}

func packTree(h *parcel.Handle, parentIno uint64, hostDir, parcelDir string, seen map[hardlinkKey]string) error {
	entries, err := os.ReadDir(hostDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", hostDir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !utf8.ValidString(name) {
			return fmt.Errorf("entry %q in %s: %w", name, hostDir, parcel.ErrStringConversion)
		}
		hostPath := filepath.Join(hostDir, name)
		parcelPath := path.Join(parcelDir, name)
		info, err := entry.Info()
		if err != nil {
			return err
		}
		attr := parcel.FromFileInfo(info)

		switch {
		case info.IsDir():
			childIno := h.AddDirectory(attr, nil)
			h.InsertDirent(parentIno, name, childIno, parcel.Directory)
			if err := packTree(h, childIno, hostPath, parcelPath, seen); err != nil {
				return err
			}

		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(hostPath)
			if err != nil {
				return err
			}
			childIno := h.AddSymlink(target, attr, nil)
			h.InsertDirent(parentIno, name, childIno, parcel.Symlink)

		case info.Mode()&os.ModeCharDevice != 0:
			childIno := h.AddChar(attr, nil)
			h.InsertDirent(parentIno, name, childIno, parcel.CharDevice)

		case info.Mode().IsRegular():
			if st, ok := info.Sys().(*syscall.Stat_t); ok && st.Nlink > 1 {
				key := hardlinkKey{dev: uint64(st.Dev), ino: st.Ino}
				if existing, linked := seen[key]; linked {
					childIno, err := h.AddHardlink(existing)
					if err != nil {
						return err
					}
					h.InsertDirent(parentIno, name, childIno, parcel.RegularFile)
					continue
				}
				seen[key] = parcelPath
			}
			childIno, err := h.AddFile(parcel.PathSource(hostPath), attr, nil)
			if err != nil {
				return err
			}
			h.InsertDirent(parentIno, name, childIno, parcel.RegularFile)

		default:
			// Sockets, named pipes, and other exotic host file types have
			// no parcel representation; skip them.
			continue
		}
	}
	return nil
}
