//go:build fuse

package parcel

import (
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// FuseServer adapts an Overlay to go-fuse's low-level fuse.RawFileSystem
// interface, so a host binary can mount a stack of parcels directly with
// fuse.NewServer. Unimplemented operations fall back to
// fuse.NewDefaultRawFileSystem's ENOSYS behaviour; this overlay is
// read-only, so every mutating call is one of those.
type FuseServer struct {
	fuse.RawFileSystem
	overlay *Overlay
}

// NewFuseServer wraps overlay for mounting.
func NewFuseServer(overlay *Overlay) *FuseServer {
	return &FuseServer{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		overlay:       overlay,
	}
}

func fillAttr(out *fuse.Attr, ino uint64, attr InodeAttr, kind InodeKind) {
	out.Ino = ino
	out.Mode = KindToUnix(kind) | permMask(attr.Perm)
	out.Nlink = attr.Nlink
	out.Uid = attr.Uid
	out.Gid = attr.Gid
	out.Rdev = uint32(attr.Rdev)
	out.Atime = uint64(attr.Atime.Sec)
	out.Atimensec = uint32(attr.Atime.Nsec)
	out.Mtime = uint64(attr.Mtime.Sec)
	out.Mtimensec = uint32(attr.Mtime.Nsec)
	out.Ctime = uint64(attr.Ctime.Sec)
	out.Ctimensec = uint32(attr.Ctime.Nsec)
}

const attrTimeout = time.Second

// Lookup implements fuse.RawFileSystem.
func (s *FuseServer) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	child, ok := s.overlay.Lookup(header.NodeId, name)
	if !ok {
		return fuse.ENOENT
	}
	attr, err := s.overlay.GetAttr(child)
	if err != nil {
		return fuse.ENOENT
	}
	kind, err := s.overlay.GetKind(child)
	if err != nil {
		return fuse.ENOENT
	}
	out.NodeId = child
	out.SetEntryTimeout(attrTimeout)
	out.SetAttrTimeout(attrTimeout)
	fillAttr(&out.Attr, child, attr, kind)
	return fuse.OK
}

// GetAttr implements fuse.RawFileSystem.
func (s *FuseServer) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	attr, err := s.overlay.GetAttr(input.NodeId)
	if err != nil {
		return fuse.ENOENT
	}
	kind, err := s.overlay.GetKind(input.NodeId)
	if err != nil {
		return fuse.ENOENT
	}
	out.SetTimeout(attrTimeout)
	fillAttr(&out.Attr, input.NodeId, attr, kind)
	return fuse.OK
}

// Open implements fuse.RawFileSystem; the overlay is read-only and
// content is served straight from its Handles, so there is no
// per-handle state to allocate.
func (s *FuseServer) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	out.OpenFlags = fuse.FOPEN_KEEP_CACHE
	return fuse.OK
}

// OpenDir implements fuse.RawFileSystem.
func (s *FuseServer) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	if _, err := s.overlay.GetKind(input.NodeId); err != nil {
		return fuse.ENOENT
	}
	out.OpenFlags = fuse.FOPEN_KEEP_CACHE
	return fuse.OK
}

// ReadDir implements fuse.RawFileSystem, resuming from input.Offset into
// the overlay's deterministically ordered merged listing.
func (s *FuseServer) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	entries, err := s.overlay.Readdir(input.NodeId, int(input.Offset))
	if err != nil {
		return fuse.ENOENT
	}
	for _, e := range entries {
		de := fuse.DirEntry{Ino: e.Child, Name: e.Name, Mode: KindToUnix(e.Kind)}
		if !out.AddDirEntry(de) {
			break
		}
	}
	return fuse.OK
}

// Read implements fuse.RawFileSystem.
func (s *FuseServer) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	size := uint64(len(buf))
	data, err := s.overlay.Read(input.NodeId, input.Offset, &size)
	if err != nil {
		return nil, fuse.ENOENT
	}
	return fuse.ReadResultData(data), fuse.OK
}

// Readlink implements fuse.RawFileSystem.
func (s *FuseServer) Readlink(cancel <-chan struct{}, header *fuse.InHeader) (out []byte, code fuse.Status) {
	target, err := s.overlay.Readlink(header.NodeId)
	if err != nil {
		return nil, fuse.ENOENT
	}
	return []byte(target), fuse.OK
}

// GetXAttr implements fuse.RawFileSystem.
func (s *FuseServer) GetXAttr(cancel <-chan struct{}, header *fuse.InHeader, attr string, dest []byte) (uint32, fuse.Status) {
	val, ok, err := s.overlay.GetXattr(header.NodeId, attr)
	if err != nil {
		return 0, fuse.ENOENT
	}
	if !ok {
		return 0, fuse.Status(syscall.ENODATA)
	}
	if len(dest) < len(val) {
		return uint32(len(val)), fuse.ERANGE
	}
	return uint32(copy(dest, val)), fuse.OK
}

// ListXAttr implements fuse.RawFileSystem.
func (s *FuseServer) ListXAttr(cancel <-chan struct{}, header *fuse.InHeader, dest []byte) (uint32, fuse.Status) {
	names, err := s.overlay.ListXattr(header.NodeId)
	if err != nil {
		return 0, fuse.ENOENT
	}
	var buf []byte
	for _, n := range names {
		buf = append(buf, []byte(n)...)
		buf = append(buf, 0)
	}
	if len(dest) < len(buf) {
		return uint32(len(buf)), fuse.ERANGE
	}
	return uint32(copy(dest, buf)), fuse.OK
}
