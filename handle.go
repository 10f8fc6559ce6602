package parcel

import (
	"fmt"
	"os"
)

// Handle pairs a Container with the backing store it was loaded from or
// will be flushed to. It is the surface hosts (archive tools, the
// overlay engine) are expected to use instead of touching a Container
// directly, since most I/O-bearing operations need both.
//
// A Handle is not safe for concurrent use; callers that share one
// across goroutines must serialise access themselves.
type Handle struct {
	container *Container
	store     BackingStore
	closer    func() error
}

// NewHandle creates a Handle around a freshly created, empty Container
// with no backing store assigned yet (state Fresh).
func NewHandle() *Handle {
	return &Handle{container: New()}
}

// Open opens the file at path, wraps it in a buffered BackingStore, and
// loads a Container from it.
func Open(path string) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("parcel: opening %s: %w", path, err)
	}
	store := NewBufferedStore(f)
	c, err := Load(store)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Handle{container: c, store: store, closer: f.Close}, nil
}

// Create creates (or truncates) the file at path and returns a Handle
// around a fresh, empty Container with that file set as its backing
// store, ready for Store.
func Create(path string) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("parcel: creating %s: %w", path, err)
	}
	return &Handle{container: New(), store: NewBufferedStore(f), closer: f.Close}, nil
}

// SetFile assigns store as the handle's backing store, replacing any
// previous one, without loading from it. Used to attach a backing store
// to a Container built in memory via New.
func (h *Handle) SetFile(store BackingStore) {
	h.store = store
}

// Container returns the handle's underlying Container for operations
// that don't need a backing store.
func (h *Handle) Container() *Container { return h.container }

// Store flushes the handle's container to its backing store. Calling
// Store with no backing store assigned is a programmer error (fatal).
func (h *Handle) Store() error {
	if h.store == nil {
		panic("parcel: Store called on a handle with no backing store")
	}
	return h.container.Store(h.store)
}

// Close flushes nothing; it only releases the underlying file, if the
// handle owns one. Callers must Store explicitly before Close if they
// want pending mutations persisted.
func (h *Handle) Close() error {
	if h.closer != nil {
		return h.closer()
	}
	return nil
}

// Read reads up to size bytes (all remaining bytes if size is nil) from
// ino's content, starting at offset.
func (h *Handle) Read(ino uint64, offset uint64, size *uint64) ([]byte, error) {
	return h.container.Read(h.store, ino, offset, size)
}

// Write writes buf to ino's content at offset, failing with
// ErrNeedExpansion if it would exceed the reserved capacity.
func (h *Handle) Write(ino uint64, offset uint64, buf []byte) error {
	return h.container.Write(h.store, ino, offset, buf)
}

// ExpandWrite writes buf to ino's content at offset, first resizing the
// reserved capacity to the write's end if that end lies past the
// current size.
func (h *Handle) ExpandWrite(ino uint64, offset uint64, buf []byte) error {
	return h.container.ExpandWrite(h.store, ino, offset, buf)
}

// RealocReserved resizes ino's reserved payload capacity.
func (h *Handle) RealocReserved(ino uint64, newCapacity uint64) error {
	return h.container.RealocReserved(h.store, ino, newCapacity)
}

// AddFile allocates a new RegularFile inode from source, queuing its
// payload for the next Store.
func (h *Handle) AddFile(source FileSource, attr InodeAttr, xattrs *OrderedMap[[]byte]) (uint64, error) {
	return h.container.AddFile(source, attr, xattrs)
}

// AddDirectory allocates a new, empty Directory inode.
func (h *Handle) AddDirectory(attr InodeAttr, xattrs *OrderedMap[[]byte]) uint64 {
	return h.container.AddDirectory(attr, xattrs)
}

// AddSymlink allocates a new Symlink inode.
func (h *Handle) AddSymlink(target string, attr InodeAttr, xattrs *OrderedMap[[]byte]) uint64 {
	return h.container.AddSymlink(target, attr, xattrs)
}

// AddChar allocates a new CharDevice inode.
func (h *Handle) AddChar(attr InodeAttr, xattrs *OrderedMap[[]byte]) uint64 {
	return h.container.AddChar(attr, xattrs)
}

// AddHardlink bumps the link count of the inode at existingPath so a
// second name can be linked to it, returning its id.
func (h *Handle) AddHardlink(existingPath string) (uint64, error) {
	return h.container.AddHardlink(existingPath)
}

// InsertDirent links name to child under parent.
func (h *Handle) InsertDirent(parent uint64, name string, child uint64, kind InodeKind) {
	h.container.InsertDirent(parent, name, child, kind)
}

// InsertWhiteout masks name under parent for lower overlay layers.
func (h *Handle) InsertWhiteout(parent uint64, name string) {
	h.container.InsertWhiteout(parent, name)
}

// Delete removes ino's inode and content table entries.
func (h *Handle) Delete(ino uint64) error {
	return h.container.Delete(ino)
}

// Select resolves an absolute or rooted path to an inode id.
func (h *Handle) Select(path string) (uint64, bool) {
	return h.container.Select(path)
}

// Lookup returns the child inode under parent named name.
func (h *Handle) Lookup(parent uint64, name string) (uint64, bool) {
	return h.container.Lookup(parent, name)
}

// LookupRaw returns the raw directory entry for name under parent,
// including whiteout entries.
func (h *Handle) LookupRaw(parent uint64, name string) (child uint64, kind InodeKind, ok bool) {
	return h.container.LookupRaw(parent, name)
}

// Readdir returns a directory's raw entry list, including whiteouts.
func (h *Handle) Readdir(ino uint64) ([]NamedDirEntry, error) {
	return h.container.Readdir(ino)
}

// Readlink returns a symlink's target.
func (h *Handle) Readlink(ino uint64) (string, error) {
	return h.container.Readlink(ino)
}

// GetAttr returns ino's attributes.
func (h *Handle) GetAttr(ino uint64) (InodeAttr, error) {
	return h.container.GetAttr(ino)
}

// GetAttrMut returns a pointer to ino's attributes for in-place mutation.
func (h *Handle) GetAttrMut(ino uint64) (*InodeAttr, error) {
	return h.container.GetAttrMut(ino)
}

// GetKind returns ino's kind.
func (h *Handle) GetKind(ino uint64) (InodeKind, error) {
	return h.container.GetKind(ino)
}

// GetXattrs returns ino's extended attribute set.
func (h *Handle) GetXattrs(ino uint64) (*OrderedMap[[]byte], error) {
	return h.container.GetXattrs(ino)
}

// Exists reports whether ino names a live inode.
func (h *Handle) Exists(ino uint64) bool {
	return h.container.Exists(ino)
}

// Metadata returns the package-level metadata embedded in the header.
func (h *Handle) Metadata() Metadata {
	return h.container.Metadata()
}

// RootInode returns the handle's root inode id.
func (h *Handle) RootInode() uint64 {
	return h.container.rootInode
}
