package parcel

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSource supplies the bytes for a newly added regular file: either
// literal bytes held in memory, or the path to a host file to stream
// from at Store time.
type FileSource interface{ fileSource() }

// BytesSource is a FileSource backed by an in-memory byte slice.
type BytesSource []byte

func (BytesSource) fileSource() {}

// PathSource is a FileSource that streams its payload from a host file
// at Store time rather than holding it in memory until then.
type PathSource string

func (PathSource) fileSource() {}

type pendingPayload struct {
	source FileSource
	size   uint64
}

// Container is the in-memory representation of one parcel: its inode
// table, content table, and the bookkeeping needed to mutate it and
// flush those mutations back to a backing store.
//
// Reads and writes are rejected unless the container is OnDisk; a
// mutating call that queues a new payload moves the container to
// Unflushed until the next successful Store. The zero value is not
// usable; construct with New or Load.
type Container struct {
	rootInode uint64
	metadata  Metadata

	inodes  map[uint64]*Inode
	content map[uint64]InodeContent

	nextInode  uint64
	nextOffset uint64

	hasFileOffset bool
	fileOffset    uint64

	toAdd map[uint64]*pendingPayload

	onDisk bool
}

// New creates an empty parcel: a single root directory inode (id 1,
// perm 0o755, empty children), not yet associated with a backing store.
func New() *Container {
	c := &Container{
		inodes:    make(map[uint64]*Inode),
		content:   make(map[uint64]InodeContent),
		nextInode: 2,
		toAdd:     make(map[uint64]*pendingPayload),
		rootInode: 1,
	}
	c.inodes[1] = NewInode(Directory, 0, RootInodeAttr())
	c.content[1] = DirectoryContent{Entries: NewOrderedMap[DirEntry]()}
	return c
}

// mustOnDisk panics (a fatal condition per the format's error design,
// distinct from an ordinary returned error) if the container's
// in-memory state is not known consistent with a backing store.
func (c *Container) mustOnDisk() {
	if !c.onDisk {
		panic("parcel: operation requires the container to be on-disk")
	}
}

// Load reads a parcel's header from the start of r. The magic is
// verified, the header is scanned for its terminator, its version is
// probed (and rejected on mismatch) before the full structure is
// decoded, and the derived allocator state (next_inode, next_offset,
// file_offset) is recomputed from the loaded tables.
func Load(r BackingStore) (*Container, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("parcel: seeking to start: %w", err)
	}
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("parcel: reading magic: %w", err)
	}
	if gotMagic != magic {
		panic("parcel: unrecognised file magic")
	}

	headerBuf, err := scanHeader(r)
	if err != nil {
		return nil, err
	}

	version, err := decodeVersionProbe(headerBuf)
	if err != nil {
		return nil, err
	}
	if version != currentVersion {
		return nil, &VersionMismatchError{Expected: currentVersion, Found: version}
	}

	var hdr onDiskHeader
	if err := yaml.Unmarshal(headerBuf, &hdr); err != nil {
		return nil, fmt.Errorf("parcel: decoding header: %w", err)
	}

	fileOffset, err := r.StreamPosition()
	if err != nil {
		return nil, fmt.Errorf("parcel: locating payload region: %w", err)
	}

	c := &Container{
		rootInode:     hdr.RootInode,
		metadata:      hdr.Metadata,
		inodes:        make(map[uint64]*Inode),
		content:       make(map[uint64]InodeContent),
		toAdd:         make(map[uint64]*pendingPayload),
		hasFileOffset: true,
		fileOffset:    uint64(fileOffset),
		onDisk:        true,
	}

	var maxInode uint64
	if hdr.Inodes != nil {
		hdr.Inodes.Range(func(key string, inode *Inode) bool {
			id, perr := parseIDKey(key)
			if perr != nil {
				err = fmt.Errorf("parcel: invalid inode id %q: %w", key, perr)
				return false
			}
			c.inodes[id] = inode
			if id > maxInode {
				maxInode = id
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	var maxOffset uint64
	if hdr.Content != nil {
		hdr.Content.Range(func(key string, tc taggedContent) bool {
			id, perr := parseIDKey(key)
			if perr != nil {
				err = fmt.Errorf("parcel: invalid content id %q: %w", key, perr)
				return false
			}
			c.content[id] = tc.content
			if rf, ok := tc.content.(RegularFileContent); ok {
				if end := rf.Offset + rf.Capacity; end > maxOffset {
					maxOffset = end
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	c.nextInode = maxInode + 1
	c.nextOffset = maxOffset

	return c, nil
}

// scanHeader accumulates bytes from r until the terminator "\n...\n" is
// seen, then returns the header bytes with that terminator removed (the
// trailing space padding, if any, is left in place — the YAML decoder
// tolerates it as document-level whitespace).
func scanHeader(r BackingStore) ([]byte, error) {
	var buf []byte
	term := []byte(terminator)
	for {
		chunk, err := r.FillBuf()
		if err != nil {
			return nil, fmt.Errorf("parcel: reading header: %w", err)
		}
		if len(chunk) == 0 {
			return nil, fmt.Errorf("parcel: header truncated before terminator")
		}
		// Consume one byte at a time so the terminator search can stop
		// exactly at the boundary without over-reading into the payload
		// region.
		buf = append(buf, chunk[0])
		r.Consume(1)
		if len(buf) >= len(term) && string(buf[len(buf)-len(term):]) == terminator {
			return buf[:len(buf)-len(term)], nil
		}
	}
}

// Store serialises the header and flushes any queued payloads to w,
// growing the header region in place with 1.2x amortised padding when
// the new header no longer fits in the previously reserved space.
func (c *Container) Store(w BackingStore) error {
	buf, err := c.encodeHeader()
	if err != nil {
		return err
	}
	needed := uint64(len(buf) + 4 + len(terminator))

	switch {
	case !c.hasFileOffset:
		if err := c.writeHeader(w, buf, needed); err != nil {
			return err
		}
		c.fileOffset = needed
		c.hasFileOffset = true

	case needed == c.fileOffset:
		if err := c.writeHeader(w, buf, needed); err != nil {
			return err
		}

	case needed > c.fileOffset:
		newOffset := needed
		if grown := (c.fileOffset*12 + 9) / 10; grown > newOffset {
			newOffset = grown
		}
		if _, err := w.Seek(int64(c.fileOffset), io.SeekStart); err != nil {
			return fmt.Errorf("parcel: seeking to payload region: %w", err)
		}
		payload, err := io.ReadAll(w)
		if err != nil {
			return fmt.Errorf("parcel: reading payload region: %w", err)
		}
		padded := padHeader(buf, newOffset-4-uint64(len(terminator)))
		if err := c.writeHeader(w, padded, newOffset); err != nil {
			return err
		}
		if _, err := w.Seek(int64(newOffset), io.SeekStart); err != nil {
			return fmt.Errorf("parcel: seeking to new payload region: %w", err)
		}
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("parcel: rewriting payload region: %w", err)
		}
		c.fileOffset = newOffset

	default: // needed < c.fileOffset
		padded := padHeader(buf, c.fileOffset-4-uint64(len(terminator)))
		if err := c.writeHeader(w, padded, c.fileOffset); err != nil {
			return err
		}
	}

	for id, pending := range c.toAdd {
		content, ok := c.content[id]
		if !ok {
			return fmt.Errorf("parcel: queued payload for missing inode %d", id)
		}
		rf, ok := content.(RegularFileContent)
		if !ok {
			return fmt.Errorf("parcel: queued payload for non-file inode %d", id)
		}
		if err := c.writePayload(w, rf.Offset, pending); err != nil {
			return fmt.Errorf("parcel: writing payload for inode %d: %w", id, err)
		}
	}
	c.toAdd = make(map[uint64]*pendingPayload)
	c.onDisk = true
	return w.Flush()
}

// writeHeader writes the magic, header bytes, and terminator at the
// start of the store, asserting the total bytes written matches the
// expected framed length.
func (c *Container) writeHeader(w BackingStore, buf []byte, expected uint64) error {
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("parcel: seeking to header: %w", err)
	}
	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("parcel: writing magic: %w", err)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("parcel: writing header: %w", err)
	}
	if _, err := w.Write([]byte(terminator)); err != nil {
		return fmt.Errorf("parcel: writing header terminator: %w", err)
	}
	got := uint64(4 + len(buf) + len(terminator))
	if got != expected {
		return fmt.Errorf("parcel: internal error: header framing mismatch (wrote %d, expected %d)", got, expected)
	}
	return nil
}

// padHeader appends ASCII space padding to buf until it is exactly
// target bytes long. buf is assumed never to exceed target.
func padHeader(buf []byte, target uint64) []byte {
	if uint64(len(buf)) >= target {
		return buf
	}
	padded := make([]byte, target)
	copy(padded, buf)
	for i := len(buf); i < len(padded); i++ {
		padded[i] = ' '
	}
	return padded
}

func (c *Container) writePayload(w BackingStore, slotOffset uint64, pending *pendingPayload) error {
	if _, err := w.Seek(int64(c.fileOffset+slotOffset), io.SeekStart); err != nil {
		return err
	}
	var n int
	var err error
	switch src := pending.source.(type) {
	case BytesSource:
		n, err = w.Write(src)
	case PathSource:
		f, ferr := os.Open(string(src))
		if ferr != nil {
			return ferr
		}
		defer f.Close()
		var written int64
		written, err = io.Copy(w, f)
		n = int(written)
	default:
		return fmt.Errorf("parcel: unknown file source type %T", pending.source)
	}
	if err != nil {
		return err
	}
	if uint64(n) != pending.size {
		return fmt.Errorf("parcel: short payload write: wrote %d, expected %d", n, pending.size)
	}
	return nil
}

// encodeHeader serialises the container's current logical state (not
// including queued-but-unwritten payload bytes) into header bytes ready
// to be framed with magic and terminator.
func (c *Container) encodeHeader() ([]byte, error) {
	inodeIDs := make([]uint64, 0, len(c.inodes))
	for id := range c.inodes {
		inodeIDs = append(inodeIDs, id)
	}
	sort.Slice(inodeIDs, func(i, j int) bool { return inodeIDs[i] < inodeIDs[j] })

	inodes := NewOrderedMap[*Inode]()
	for _, id := range inodeIDs {
		inodes.Set(idKey(id), c.inodes[id])
	}

	contentIDs := make([]uint64, 0, len(c.content))
	for id := range c.content {
		contentIDs = append(contentIDs, id)
	}
	sort.Slice(contentIDs, func(i, j int) bool { return contentIDs[i] < contentIDs[j] })

	content := NewOrderedMap[taggedContent]()
	for _, id := range contentIDs {
		content.Set(idKey(id), taggedContent{content: c.content[id]})
	}

	hdr := onDiskHeader{
		Version:   currentVersion,
		RootInode: c.rootInode,
		Metadata:  c.metadata,
		Inodes:    inodes,
		Content:   content,
	}
	return yaml.Marshal(&hdr)
}

// NextInode returns the lowest unused inode id, i.e. the id the next
// Add* call will allocate.
func (c *Container) NextInode() uint64 { return c.nextInode }

// NextOffset returns the first free byte past all reserved payload
// slots in the payload region.
func (c *Container) NextOffset() uint64 { return c.nextOffset }

// Metadata returns the package-level metadata embedded in the header.
func (c *Container) Metadata() Metadata { return c.metadata }

// SetMetadata replaces the package-level metadata.
func (c *Container) SetMetadata(m Metadata) { c.metadata = m }

// Exists reports whether ino names a live inode.
func (c *Container) Exists(ino uint64) bool {
	_, ok := c.inodes[ino]
	return ok
}

// GetAttr returns a copy of ino's attributes.
func (c *Container) GetAttr(ino uint64) (InodeAttr, error) {
	inode, ok := c.inodes[ino]
	if !ok {
		return InodeAttr{}, ErrEnoent
	}
	return inode.Attr, nil
}

// GetAttrMut returns a pointer to ino's attributes for in-place
// mutation by the caller.
func (c *Container) GetAttrMut(ino uint64) (*InodeAttr, error) {
	inode, ok := c.inodes[ino]
	if !ok {
		return nil, ErrEnoent
	}
	return &inode.Attr, nil
}

// GetKind returns ino's kind.
func (c *Container) GetKind(ino uint64) (InodeKind, error) {
	inode, ok := c.inodes[ino]
	if !ok {
		return 0, ErrEnoent
	}
	return inode.Kind, nil
}

// GetXattrs returns ino's extended attribute set.
func (c *Container) GetXattrs(ino uint64) (*OrderedMap[[]byte], error) {
	inode, ok := c.inodes[ino]
	if !ok {
		return nil, ErrEnoent
	}
	return inode.Xattrs, nil
}

func (c *Container) allocInode() uint64 {
	for {
		if _, taken := c.inodes[c.nextInode]; !taken {
			id := c.nextInode
			c.nextInode++
			return id
		}
		c.nextInode++
	}
}

func xattrsOrEmpty(xattrs *OrderedMap[[]byte]) *OrderedMap[[]byte] {
	if xattrs == nil {
		return NewOrderedMap[[]byte]()
	}
	return xattrs
}

// AddDirectory allocates a new, empty Directory inode with no parent
// set (the caller links it into the tree with InsertDirent). Returns
// the new inode id.
func (c *Container) AddDirectory(attr InodeAttr, xattrs *OrderedMap[[]byte]) uint64 {
	id := c.allocInode()
	inode := NewInode(Directory, 0, attr)
	inode.Xattrs = xattrsOrEmpty(xattrs)
	c.inodes[id] = inode
	c.content[id] = DirectoryContent{Entries: NewOrderedMap[DirEntry]()}
	return id
}

// AddSymlink allocates a new Symlink inode pointing at target.
func (c *Container) AddSymlink(target string, attr InodeAttr, xattrs *OrderedMap[[]byte]) uint64 {
	id := c.allocInode()
	inode := NewInode(Symlink, 0, attr)
	inode.Xattrs = xattrsOrEmpty(xattrs)
	c.inodes[id] = inode
	c.content[id] = SymlinkContent{Target: target}
	return id
}

// AddChar allocates a new CharDevice inode. The device number is taken
// from attr.Rdev and recorded in the content table as well.
func (c *Container) AddChar(attr InodeAttr, xattrs *OrderedMap[[]byte]) uint64 {
	id := c.allocInode()
	inode := NewInode(CharDevice, 0, attr)
	inode.Xattrs = xattrsOrEmpty(xattrs)
	c.inodes[id] = inode
	c.content[id] = CharDeviceContent{Rdev: attr.Rdev}
	return id
}

// AddHardlink registers an additional name for the inode already
// reachable at existingPath: unlike the other Add* calls it does not
// allocate a new inode, it only bumps the link count and returns the
// existing id. Callers still need InsertDirent to link the new name in.
func (c *Container) AddHardlink(existingPath string) (uint64, error) {
	ino, ok := c.Select(existingPath)
	if !ok {
		return 0, ErrEnoent
	}
	c.inodes[ino].Attr.Nlink++
	return ino, nil
}

// AddFile allocates a new RegularFile inode and queues its payload for
// the next Store call. The payload's size is determined immediately (by
// len(source) or by stat'ing the host path) so the slot can be reserved
// up front; capacity starts out equal to size.
func (c *Container) AddFile(source FileSource, attr InodeAttr, xattrs *OrderedMap[[]byte]) (uint64, error) {
	size, err := fileSourceSize(source)
	if err != nil {
		return 0, err
	}

	id := c.allocInode()
	inode := NewInode(RegularFile, 0, attr)
	inode.Xattrs = xattrsOrEmpty(xattrs)
	c.inodes[id] = inode

	offset := c.nextOffset
	c.content[id] = RegularFileContent{FileReference: FileReference{
		Offset:   offset,
		Size:     size,
		Capacity: size,
	}}
	c.nextOffset += size
	c.toAdd[id] = &pendingPayload{source: source, size: size}
	c.onDisk = false

	return id, nil
}

func fileSourceSize(source FileSource) (uint64, error) {
	switch src := source.(type) {
	case BytesSource:
		return uint64(len(src)), nil
	case PathSource:
		info, err := os.Stat(string(src))
		if err != nil {
			return 0, err
		}
		return uint64(info.Size()), nil
	default:
		return 0, fmt.Errorf("parcel: unknown file source type %T", source)
	}
}

// InsertDirent links name to child under parent, recording kind
// alongside it and updating the child's parent field. parent must be a
// Directory inode; calling this on any other kind panics.
func (c *Container) InsertDirent(parent uint64, name string, child uint64, kind InodeKind) {
	dir, ok := c.content[parent].(DirectoryContent)
	if !ok {
		panic("parcel: insert_dirent called on a non-directory parent")
	}
	dir.Entries.Set(name, DirEntry{Child: child, Kind: kind})
	if inode, ok := c.inodes[child]; ok {
		inode.Parent = parent
	}
}

// InsertWhiteout inserts a whiteout entry (child id 0) under parent,
// masking any entry of the same name in a lower overlay layer.
func (c *Container) InsertWhiteout(parent uint64, name string) {
	dir, ok := c.content[parent].(DirectoryContent)
	if !ok {
		panic("parcel: insert_whiteout called on a non-directory parent")
	}
	dir.Entries.Set(name, DirEntry{Child: 0, Kind: Whiteout})
}

// Lookup returns the child inode under parent named name, ignoring
// whiteout entries.
func (c *Container) Lookup(parent uint64, name string) (uint64, bool) {
	dir, ok := c.content[parent].(DirectoryContent)
	if !ok {
		return 0, false
	}
	entry, ok := dir.Entries.Get(name)
	if !ok || entry.Kind == Whiteout {
		return 0, false
	}
	return entry.Child, true
}

// LookupRaw returns the raw directory entry for name under parent,
// including whiteout entries (kind Whiteout, child 0). Ordinary callers
// should use Lookup, which filters whiteouts; LookupRaw exists for the
// overlay, which must be able to see a whiteout to know a name is
// masked rather than merely absent.
func (c *Container) LookupRaw(parent uint64, name string) (child uint64, kind InodeKind, ok bool) {
	dir, isDir := c.content[parent].(DirectoryContent)
	if !isDir {
		return 0, 0, false
	}
	entry, found := dir.Entries.Get(name)
	if !found {
		return 0, 0, false
	}
	return entry.Child, entry.Kind, true
}

// Readdir returns a directory's raw entry list, including whiteouts.
// The returned slice shares no state with the container's internal map.
func (c *Container) Readdir(ino uint64) ([]NamedDirEntry, error) {
	dir, ok := c.content[ino].(DirectoryContent)
	if !ok {
		return nil, ErrNotDirectory
	}
	entries := make([]NamedDirEntry, 0, dir.Entries.Len())
	dir.Entries.Range(func(name string, e DirEntry) bool {
		entries = append(entries, NamedDirEntry{Name: name, DirEntry: e})
		return true
	})
	return entries, nil
}

// NamedDirEntry pairs a directory entry with the name it is stored
// under; Readdir and the overlay's merged listing both deal in these.
type NamedDirEntry struct {
	Name string
	DirEntry
}

// Readlink returns a symlink's target.
func (c *Container) Readlink(ino uint64) (string, error) {
	content, ok := c.content[ino]
	if !ok {
		return "", ErrEnoent
	}
	sym, ok := content.(SymlinkContent)
	if !ok {
		return "", ErrNotFile
	}
	return sym.Target, nil
}

// Select resolves path by lexical cleaning (collapsing ".", "..", and
// duplicate separators) and walking the directory tree from the root.
// It returns false if any path component is missing.
func (c *Container) Select(p string) (uint64, bool) {
	clean := path.Clean("/" + p)
	if clean == "/" {
		return c.rootInode, true
	}
	cur := c.rootInode
	for _, part := range strings.Split(strings.TrimPrefix(clean, "/"), "/") {
		child, ok := c.Lookup(cur, part)
		if !ok {
			return 0, false
		}
		cur = child
	}
	return cur, true
}

// Delete removes both the inode and content table entries for ino. It
// does not touch any directory that references ino as a child; callers
// are responsible for that.
func (c *Container) Delete(ino uint64) error {
	if _, ok := c.inodes[ino]; !ok {
		return ErrEnoent
	}
	delete(c.inodes, ino)
	delete(c.content, ino)
	delete(c.toAdd, ino)
	return nil
}

// Read returns up to size bytes (or the whole remaining payload if size
// is nil) from ino's file content, starting at offset. Offsets past the
// end of the payload clamp to end-of-file and return zero bytes.
func (c *Container) Read(r BackingStore, ino uint64, offset uint64, size *uint64) ([]byte, error) {
	c.mustOnDisk()
	rf, ok := c.content[ino].(RegularFileContent)
	if !ok {
		return nil, ErrNotFile
	}
	if offset > rf.Size {
		offset = rf.Size
	}
	want := rf.Size - offset
	if size != nil && *size < want {
		want = *size
	}
	if want == 0 {
		return []byte{}, nil
	}
	if _, err := r.Seek(int64(c.fileOffset+rf.Offset+offset), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, want)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Write writes buf to ino's file content at offset. It fails with
// ErrNeedExpansion rather than growing the slot; callers that want
// growth should call ExpandWrite or RealocReserved first.
func (c *Container) Write(w BackingStore, ino uint64, offset uint64, buf []byte) error {
	c.mustOnDisk()
	rf, ok := c.content[ino].(RegularFileContent)
	if !ok {
		return ErrNotFile
	}
	if offset+uint64(len(buf)) > rf.Capacity {
		return ErrNeedExpansion
	}
	if _, err := w.Seek(int64(c.fileOffset+rf.Offset+offset), io.SeekStart); err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	if newSize := offset + uint64(len(buf)); newSize > rf.Size {
		rf.Size = newSize
	}
	c.content[ino] = rf
	return nil
}

// ExpandWrite writes buf at offset after first resizing ino's reserved
// capacity (via RealocReserved) to exactly offset+len(buf) whenever that
// end lies past the file's current size. The resize can shrink a slot
// whose capacity already exceeded that end.
func (c *Container) ExpandWrite(w BackingStore, ino uint64, offset uint64, buf []byte) error {
	rf, ok := c.content[ino].(RegularFileContent)
	if !ok {
		return ErrNotFile
	}
	need := offset + uint64(len(buf))
	if need > rf.Size {
		if err := c.RealocReserved(w, ino, need); err != nil {
			return err
		}
	}
	return c.Write(w, ino, offset, buf)
}

// RealocReserved resizes ino's reserved payload capacity to newCapacity.
// Growing the topmost slot in the allocator extends it in place;
// growing any other slot relocates its bytes to the watermark. Shrinking
// never moves data and never retreats the watermark.
func (c *Container) RealocReserved(w BackingStore, ino uint64, newCapacity uint64) error {
	c.mustOnDisk()
	rf, ok := c.content[ino].(RegularFileContent)
	if !ok {
		return ErrNotFile
	}

	switch {
	case newCapacity == rf.Capacity:
		return nil

	case newCapacity > rf.Capacity:
		if rf.Offset+rf.Capacity == c.nextOffset {
			pad := newCapacity - rf.Capacity
			if _, err := w.Seek(int64(c.fileOffset+rf.Offset+rf.Capacity), io.SeekStart); err != nil {
				return err
			}
			if _, err := w.Write(spaces(pad)); err != nil {
				return err
			}
			rf.Capacity = newCapacity
			c.nextOffset += pad
		} else {
			old := rf
			buf, err := c.Read(w, ino, 0, &old.Size)
			if err != nil {
				return err
			}
			rf.Offset = c.nextOffset
			rf.Capacity = newCapacity
			c.nextOffset += newCapacity
			if _, err := w.Seek(int64(c.fileOffset+rf.Offset), io.SeekStart); err != nil {
				return err
			}
			if _, err := w.Write(buf); err != nil {
				return err
			}
			if _, err := w.Write(spaces(rf.Capacity - rf.Size)); err != nil {
				return err
			}
		}

	default: // newCapacity < rf.Capacity
		rf.Capacity = newCapacity
		if rf.Size > rf.Capacity {
			rf.Size = rf.Capacity
		}
	}

	c.content[ino] = rf
	return nil
}

func spaces(n uint64) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return b
}
