package parcel

import "testing"

func newLayer(t *testing.T) *Handle {
	t.Helper()
	h := NewHandle()
	h.SetFile(newMemStore())
	return h
}

func storeLayer(t *testing.T, h *Handle) {
	t.Helper()
	if err := h.Store(); err != nil {
		t.Fatalf("Store: %v", err)
	}
}

// Scenario 6: overlay precedence with an opaque directory.
func TestOverlayPrecedenceWithOpaque(t *testing.T) {
	l0 := newLayer(t)
	aDir0 := l0.AddDirectory(DefaultInodeAttr(), nil)
	l0.InsertDirent(l0.RootInode(), "a", aDir0, Directory)
	bFile0, err := l0.AddFile(BytesSource("from-l0"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile l0: %v", err)
	}
	l0.InsertDirent(aDir0, "b", bFile0, RegularFile)
	xattrs, err := l0.GetXattrs(aDir0)
	if err != nil {
		t.Fatalf("GetXattrs: %v", err)
	}
	xattrs.Set(opaqueXattr, []byte{})
	storeLayer(t, l0)

	l1 := newLayer(t)
	aDir1 := l1.AddDirectory(DefaultInodeAttr(), nil)
	l1.InsertDirent(l1.RootInode(), "a", aDir1, Directory)
	bFile1, err := l1.AddFile(BytesSource("from-l1"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile l1: %v", err)
	}
	l1.InsertDirent(aDir1, "b", bFile1, RegularFile)
	cFile1, err := l1.AddFile(BytesSource("only-l1"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile l1 c: %v", err)
	}
	l1.InsertDirent(aDir1, "c", cFile1, RegularFile)
	storeLayer(t, l1)

	overlay := NewOverlay([]*Handle{l0, l1})

	virtualA, ok := overlay.Lookup(1, "a")
	if !ok {
		t.Fatalf("Lookup(1,a) failed")
	}

	entries, err := overlay.Readdir(virtualA, 0)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["b"] || !names["."] || !names[".."] {
		t.Fatalf("Readdir missing expected names: %+v", entries)
	}
	if names["c"] {
		t.Fatalf("opaque directory leaked lower layer's entry 'c': %+v", entries)
	}

	virtualB, ok := overlay.Lookup(virtualA, "b")
	if !ok {
		t.Fatalf("Lookup(a,b) failed")
	}
	data, err := overlay.Read(virtualB, 0, nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "from-l0" {
		t.Fatalf("Read = %q, want from-l0 (topmost layer should win)", data)
	}
}

func TestOverlayMergeWithoutOpaque(t *testing.T) {
	l0 := newLayer(t)
	fooL0, err := l0.AddFile(BytesSource("l0-foo"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	l0.InsertDirent(l0.RootInode(), "foo", fooL0, RegularFile)
	storeLayer(t, l0)

	l1 := newLayer(t)
	barL1, err := l1.AddFile(BytesSource("l1-bar"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	l1.InsertDirent(l1.RootInode(), "bar", barL1, RegularFile)
	storeLayer(t, l1)

	overlay := NewOverlay([]*Handle{l0, l1})
	entries, err := overlay.Readdir(1, 0)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["foo"] || !names["bar"] {
		t.Fatalf("merged listing missing entries: %+v", entries)
	}
}

func TestOverlayLookupMissingReturnsNotOK(t *testing.T) {
	l0 := newLayer(t)
	storeLayer(t, l0)
	overlay := NewOverlay([]*Handle{l0})
	if _, ok := overlay.Lookup(1, "nope"); ok {
		t.Fatalf("Lookup unexpectedly succeeded")
	}
}

func TestOverlayWhiteoutMasksLowerLayer(t *testing.T) {
	l0 := newLayer(t)
	l0.InsertWhiteout(l0.RootInode(), "masked")
	storeLayer(t, l0)

	l1 := newLayer(t)
	hiddenIno, err := l1.AddFile(BytesSource("hidden"), DefaultInodeAttr(), nil)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	l1.InsertDirent(l1.RootInode(), "masked", hiddenIno, RegularFile)
	storeLayer(t, l1)

	overlay := NewOverlay([]*Handle{l0, l1})
	entries, err := overlay.Readdir(1, 0)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name == "masked" {
			t.Fatalf("whiteout-masked entry leaked through: %+v", e)
		}
	}

	if _, ok := overlay.Lookup(1, "masked"); ok {
		t.Fatalf("Lookup resolved a whiteout-masked name through to the lower layer")
	}
}
