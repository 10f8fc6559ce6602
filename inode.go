package parcel

import (
	"os"
	"syscall"
)

// Timespec is a seconds+nanoseconds Unix timestamp, stored separately
// from the struct it appears in so that atime/mtime/ctime all share one
// representation on disk.
type Timespec struct {
	Sec  int64 `yaml:"sec"`
	Nsec int64 `yaml:"nsec"`
}

// InodeAttr carries the metadata every inode record stores regardless of
// kind: timestamps, permission bits, link count, ownership, and the
// device number (meaningful only for CharDevice inodes).
type InodeAttr struct {
	Atime Timespec `yaml:"atime"`
	Mtime Timespec `yaml:"mtime"`
	Ctime Timespec `yaml:"ctime"`
	Perm  uint32   `yaml:"perm"`
	Nlink uint32   `yaml:"nlink"`
	Uid   uint32   `yaml:"uid"`
	Gid   uint32   `yaml:"gid"`
	Rdev  uint64   `yaml:"rdev"`
}

// DefaultInodeAttr returns the baseline attribute set for a freshly
// created inode: all timestamps at the epoch, uid/gid 0, nlink 1, perm
// and rdev 0.
func DefaultInodeAttr() InodeAttr {
	return InodeAttr{Nlink: 1}
}

// RootInodeAttr returns the attribute set a freshly created parcel gives
// its root directory: default attributes with perm 0o755.
func RootInodeAttr() InodeAttr {
	a := DefaultInodeAttr()
	a.Perm = 0o755
	return a
}

// FromFileInfo builds an InodeAttr from host filesystem metadata,
// pulling uid/gid/rdev/nlink/ctime out of the platform-specific
// syscall.Stat_t embedded in fi.Sys() when available.
func FromFileInfo(fi os.FileInfo) InodeAttr {
	a := InodeAttr{
		Perm:  permMask(ModeToUnix(fi.Mode())),
		Nlink: 1,
	}
	mtime := fi.ModTime()
	a.Mtime = Timespec{Sec: mtime.Unix(), Nsec: int64(mtime.Nanosecond())}
	a.Atime = a.Mtime
	a.Ctime = a.Mtime

	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		a.Uid = st.Uid
		a.Gid = st.Gid
		a.Nlink = uint32(st.Nlink)
		a.Rdev = uint64(st.Rdev)
		a.Atime = Timespec{Sec: int64(st.Atim.Sec), Nsec: int64(st.Atim.Nsec)}
		a.Mtime = Timespec{Sec: int64(st.Mtim.Sec), Nsec: int64(st.Mtim.Nsec)}
		a.Ctime = Timespec{Sec: int64(st.Ctim.Sec), Nsec: int64(st.Ctim.Nsec)}
	}

	return a
}

// FileReference locates a regular file's payload within the backing
// store. Capacity may exceed Size: it records how much space is
// reserved for this file so that growth within the reserved region
// never requires relocating the payload.
type FileReference struct {
	Offset   uint64 `yaml:"offset"`
	Size     uint64 `yaml:"size"`
	Capacity uint64 `yaml:"capacity"`
}

// InodeContent is the kind-specific payload attached to an inode. Each
// concrete type below implements it as a marker; the container
// type-asserts the stored value to the concrete type an operation
// needs, and the codec encodes content as an externally tagged union
// keyed by kind name.
type InodeContent interface {
	contentKind() InodeKind
}

// DirectoryContent lists a directory's children: name to (child inode
// id, child kind). The child kind is duplicated here, alongside the
// kind already recorded on the child inode itself, so that a directory
// listing never needs to dereference every child just to report its
// type. A child id of 0 paired with kind Whiteout records a whiteout
// entry rather than a live child, used only by directories participating
// in an overlay.
type DirectoryContent struct {
	Entries *OrderedMap[DirEntry]
}

func (DirectoryContent) contentKind() InodeKind { return Directory }

// DirEntry is one named entry inside a DirectoryContent.
type DirEntry struct {
	Child uint64    `yaml:"child"`
	Kind  InodeKind `yaml:"kind"`
}

// RegularFileContent locates a file's bytes in the backing store.
type RegularFileContent struct {
	FileReference `yaml:",inline"`
}

func (RegularFileContent) contentKind() InodeKind { return RegularFile }

// SymlinkContent stores a symlink's target path verbatim.
type SymlinkContent struct {
	Target string `yaml:"target"`
}

func (SymlinkContent) contentKind() InodeKind { return Symlink }

// CharDeviceContent stores a character device's device number, a copy
// of the owning inode's Attr.Rdev.
type CharDeviceContent struct {
	Rdev uint64 `yaml:"rdev"`
}

func (CharDeviceContent) contentKind() InodeKind { return CharDevice }

// Inode is one entry in a parcel's inode table: its kind, its parent (0
// for the root inode, which is its own conceptual parent), and its
// attributes. The kind-specific payload is stored separately, keyed by
// the same id, in the container's content table.
type Inode struct {
	Kind   InodeKind           `yaml:"kind"`
	Parent uint64              `yaml:"parent"`
	Attr   InodeAttr           `yaml:"attr"`
	Xattrs *OrderedMap[[]byte] `yaml:"xattrs"`
}

// NewInode builds an Inode of the given kind with the given attributes,
// a freshly allocated empty xattr set, and the given parent.
func NewInode(kind InodeKind, parent uint64, attr InodeAttr) *Inode {
	return &Inode{
		Kind:   kind,
		Parent: parent,
		Attr:   attr,
		Xattrs: NewOrderedMap[[]byte](),
	}
}
