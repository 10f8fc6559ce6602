package parcel

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestReadNotFile(t *testing.T) {
	store := newMemStore()
	c := New()
	if err := c.Store(store); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := c.Read(store, 1, 0, nil); !errors.Is(err, ErrNotFile) {
		t.Fatalf("Read(root) err = %v, want ErrNotFile", err)
	}
}

func TestWriteNeedExpansion(t *testing.T) {
	store := newMemStore()
	c := New()
	ino, err := c.AddFile(BytesSource("foo"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := c.Store(store); err != nil {
		t.Fatalf("Store: %v", err)
	}
	err = c.Write(store, ino, 0, []byte("too long for capacity"))
	if !errors.Is(err, ErrNeedExpansion) {
		t.Fatalf("Write err = %v, want ErrNeedExpansion", err)
	}
}

func TestExpandWrite(t *testing.T) {
	store := newMemStore()
	c := New()
	ino, err := c.AddFile(BytesSource("foo"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := c.Store(store); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.ExpandWrite(store, ino, 10, []byte("tail")); err != nil {
		t.Fatalf("ExpandWrite: %v", err)
	}
	data, err := c.Read(store, ino, 10, u64(4))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "tail" {
		t.Fatalf("Read = %q, want tail", data)
	}
}

func TestAddHardlinkBumpsNlink(t *testing.T) {
	c := New()
	ino, err := c.AddFile(BytesSource("foo"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	c.InsertDirent(1, "foo", ino, RegularFile)

	linked, err := c.AddHardlink("/foo")
	if err != nil {
		t.Fatalf("AddHardlink: %v", err)
	}
	if linked != ino {
		t.Fatalf("AddHardlink = %d, want existing inode %d", linked, ino)
	}
	c.InsertDirent(1, "bar", linked, RegularFile)

	attr, err := c.GetAttr(ino)
	if err != nil {
		t.Fatalf("GetAttr: %v", err)
	}
	if attr.Nlink != 2 {
		t.Fatalf("Nlink = %d, want 2", attr.Nlink)
	}
	got, ok := c.Select("/bar")
	if !ok || got != ino {
		t.Fatalf("Select(/bar) = %d,%v want %d,true", got, ok, ino)
	}
}

func TestAddHardlinkMissingPath(t *testing.T) {
	c := New()
	if _, err := c.AddHardlink("/nope"); !errors.Is(err, ErrEnoent) {
		t.Fatalf("AddHardlink(/nope) err = %v, want ErrEnoent", err)
	}
}

func TestCharDeviceRoundTrip(t *testing.T) {
	store := newMemStore()
	c := New()
	attr := DefaultInodeAttr()
	attr.Rdev = 0x0103
	ino := c.AddChar(attr, nil)
	c.InsertDirent(1, "null", ino, CharDevice)
	if err := c.Store(store); err != nil {
		t.Fatalf("Store: %v", err)
	}

	loaded, err := Load(store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	kind, err := loaded.GetKind(ino)
	if err != nil || kind != CharDevice {
		t.Fatalf("GetKind = %v, %v, want CharDevice", kind, err)
	}
	content, ok := loaded.content[ino].(CharDeviceContent)
	if !ok || content.Rdev != 0x0103 {
		t.Fatalf("char content = %+v, want rdev 0x0103", loaded.content[ino])
	}
	got, err := loaded.GetAttr(ino)
	if err != nil || got.Rdev != 0x0103 {
		t.Fatalf("attr rdev = %d, %v, want 0x0103", got.Rdev, err)
	}
}

func TestDeleteMissing(t *testing.T) {
	c := New()
	if err := c.Delete(999); !errors.Is(err, ErrEnoent) {
		t.Fatalf("Delete(999) err = %v, want ErrEnoent", err)
	}
}

func TestDeleteRemovesBothTables(t *testing.T) {
	c := New()
	ino, err := c.AddFile(BytesSource("foo"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := c.Delete(ino); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if c.Exists(ino) {
		t.Fatalf("inode %d still exists after delete", ino)
	}
	if _, ok := c.content[ino]; ok {
		t.Fatalf("content %d still exists after delete", ino)
	}
}

func TestLookupMissing(t *testing.T) {
	c := New()
	if _, ok := c.Lookup(1, "nope"); ok {
		t.Fatalf("Lookup(1,nope) unexpectedly succeeded")
	}
}

func TestLookupIgnoresWhiteout(t *testing.T) {
	c := New()
	c.InsertWhiteout(1, "gone")
	if _, ok := c.Lookup(1, "gone"); ok {
		t.Fatalf("Lookup returned a whiteout entry")
	}
	entries, err := c.Readdir(1)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != Whiteout {
		t.Fatalf("Readdir = %+v, want one whiteout entry", entries)
	}
}

func TestSelectIdempotentUnderCleaning(t *testing.T) {
	c := New()
	ino := c.AddDirectory(DefaultInodeAttr(), nil)
	c.InsertDirent(1, "a", ino, Directory)

	a, ok1 := c.Select("/a")
	b, ok2 := c.Select("/x/../a/")
	if !ok1 || !ok2 || a != b {
		t.Fatalf("Select not idempotent under cleaning: %d,%v vs %d,%v", a, ok1, b, ok2)
	}
}

func TestVersionMismatch(t *testing.T) {
	store := newMemStore()

	hdr := onDiskHeader{
		Version:   currentVersion + 1,
		RootInode: 1,
		Metadata:  Metadata{Version: "0"},
		Inodes:    NewOrderedMap[*Inode](),
		Content:   NewOrderedMap[taggedContent](),
	}
	hdr.Inodes.Set(idKey(1), NewInode(Directory, 0, RootInodeAttr()))
	hdr.Content.Set(idKey(1), taggedContent{content: DirectoryContent{Entries: NewOrderedMap[DirEntry]()}})

	buf, err := yaml.Marshal(&hdr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	store.Write(magic[:])
	store.Write(buf)
	store.Write([]byte(terminator))
	store.Seek(0, 0)

	_, err = Load(store)
	var verr *VersionMismatchError
	if !errors.As(err, &verr) {
		t.Fatalf("Load err = %v, want *VersionMismatchError", err)
	}
	if verr.Expected != currentVersion || verr.Found != currentVersion+1 {
		t.Fatalf("VersionMismatchError = %+v", verr)
	}
}

func TestNoVersionField(t *testing.T) {
	store := newMemStore()
	store.Write(magic[:])
	store.Write([]byte("root_inode: 1\n"))
	store.Write([]byte(terminator))
	store.Seek(0, 0)

	_, err := Load(store)
	if !errors.Is(err, ErrNoVersion) {
		t.Fatalf("Load err = %v, want ErrNoVersion", err)
	}
}

func TestVersionWrongType(t *testing.T) {
	store := newMemStore()
	store.Write(magic[:])
	store.Write([]byte("version: \"not-a-number\"\n"))
	store.Write([]byte(terminator))
	store.Seek(0, 0)

	_, err := Load(store)
	if !errors.Is(err, ErrVersionType) {
		t.Fatalf("Load err = %v, want ErrVersionType", err)
	}
}

func TestInsertDirentPanicsOnNonDirectory(t *testing.T) {
	c := New()
	ino, err := c.AddFile(BytesSource("foo"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic inserting dirent under a non-directory parent")
		}
	}()
	c.InsertDirent(ino, "x", ino, RegularFile)
}

func TestReadRequiresOnDisk(t *testing.T) {
	c := New()
	ino, err := c.AddFile(BytesSource("foo"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic reading a not-on-disk container")
		}
	}()
	_, _ = c.Read(newMemStore(), ino, 0, nil)
}
