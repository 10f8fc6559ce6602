package parcel

import (
	"sort"
	"sync"
)

// opaqueXattr is the extended attribute a directory carries to stop
// overlay merge from descending into lower layers beneath it.
const opaqueXattr = "trusted.overlay.opaque"

// layerHit names one physical inode within one stacked layer.
type layerHit struct {
	Layer    int
	Physical uint64
}

// Overlay presents several Handles, stacked in precedence order (index
// 0 highest priority), as one read-only merged tree. It issues its own
// virtual inode numbers, distinct from any layer's physical inode
// numbers, and remaps between the two on every lookup.
//
// All of an Overlay's maps are shared mutable state guarded by mu; if
// exposed to a multi-threaded FUSE host, every call into a layer Handle
// happens with the lock held, never reentrantly, matching the
// single-threaded-per-container contract each Handle relies on.
type Overlay struct {
	mu sync.Mutex

	layers []*Handle

	forward     map[uint64][]layerHit
	reverse     map[layerHit]uint64
	parents     map[uint64]uint64
	nextVirtual uint64
}

// NewOverlay stacks layers in the given order (first element highest
// precedence) and seeds virtual inode 1 as every layer's root.
func NewOverlay(layers []*Handle) *Overlay {
	o := &Overlay{
		layers:      layers,
		forward:     make(map[uint64][]layerHit),
		reverse:     make(map[layerHit]uint64),
		parents:     make(map[uint64]uint64),
		nextVirtual: 2,
	}
	root := make([]layerHit, len(layers))
	for i, h := range layers {
		hit := layerHit{Layer: i, Physical: h.RootInode()}
		root[i] = hit
		o.reverse[hit] = 1
	}
	o.forward[1] = root
	o.parents[1] = 1
	return o
}

// remap returns the virtual inode for name under parentVirtual,
// allocating a fresh one the first time this (parent, name) pair is
// seen. Layers that don't contain parentVirtual at all are silently
// skipped.
//
// The topmost layer (in precedence order) that has ANY raw entry named
// name — live or whiteout — decides the outcome: if that topmost hit is
// a whiteout, name is masked entirely and remap reports not found, even
// though a lower layer might otherwise have resolved it. Only when the
// topmost hit is live does remap collect the list of layers that
// resolve name, for getattr/read/readdir's first-hit and merge
// semantics; collection stops at the first lower layer whose entry for
// name is a whiteout.
func (o *Overlay) remap(parentVirtual uint64, name string) (uint64, bool) {
	parentHits, ok := o.forward[parentVirtual]
	if !ok {
		return 0, false
	}

	var hits []layerHit
	for _, ph := range parentHits {
		child, kind, found := o.layers[ph.Layer].LookupRaw(ph.Physical, name)
		if !found {
			continue
		}
		if kind == Whiteout {
			if len(hits) == 0 {
				return 0, false
			}
			break
		}
		hits = append(hits, layerHit{Layer: ph.Layer, Physical: child})
	}
	if len(hits) == 0 {
		return 0, false
	}

	if v, ok := o.reverse[hits[0]]; ok {
		return v, true
	}

	v := o.nextVirtual
	o.nextVirtual++
	o.forward[v] = hits
	for _, h := range hits {
		if _, taken := o.reverse[h]; !taken {
			o.reverse[h] = v
		}
	}
	o.parents[v] = parentVirtual
	return v, true
}

// Lookup resolves name under the virtual directory parent, returning
// its virtual inode. This is the host-facing entry point corresponding
// to a FUSE lookup() call.
func (o *Overlay) Lookup(parent uint64, name string) (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remap(parent, name)
}

func (o *Overlay) firstHit(virtual uint64) (layerHit, bool) {
	hits, ok := o.forward[virtual]
	if !ok || len(hits) == 0 {
		return layerHit{}, false
	}
	return hits[0], true
}

// GetAttr returns the attributes of the topmost layer that has virtual.
func (o *Overlay) GetAttr(virtual uint64) (InodeAttr, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	hit, ok := o.firstHit(virtual)
	if !ok {
		return InodeAttr{}, ErrEnoent
	}
	return o.layers[hit.Layer].GetAttr(hit.Physical)
}

// GetKind returns the kind reported by the topmost layer that has virtual.
func (o *Overlay) GetKind(virtual uint64) (InodeKind, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	hit, ok := o.firstHit(virtual)
	if !ok {
		return 0, ErrEnoent
	}
	return o.layers[hit.Layer].GetKind(hit.Physical)
}

// Read reads from the topmost layer that has virtual.
func (o *Overlay) Read(virtual uint64, offset uint64, size *uint64) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	hit, ok := o.firstHit(virtual)
	if !ok {
		return nil, ErrEnoent
	}
	return o.layers[hit.Layer].Read(hit.Physical, offset, size)
}

// Readlink reads a symlink target from the topmost layer that has virtual.
func (o *Overlay) Readlink(virtual uint64) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	hit, ok := o.firstHit(virtual)
	if !ok {
		return "", ErrEnoent
	}
	return o.layers[hit.Layer].Readlink(hit.Physical)
}

// GetXattr returns one extended attribute value from the topmost layer
// that has virtual, reporting ok=false if the name is unset (the host
// adapter is expected to map that to its protocol's no-data code).
func (o *Overlay) GetXattr(virtual uint64, name string) ([]byte, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	hit, ok := o.firstHit(virtual)
	if !ok {
		return nil, false, ErrEnoent
	}
	xattrs, err := o.layers[hit.Layer].GetXattrs(hit.Physical)
	if err != nil {
		return nil, false, err
	}
	val, ok := xattrs.Get(name)
	return val, ok, nil
}

// ListXattr returns the extended attribute names set on the topmost
// layer that has virtual.
func (o *Overlay) ListXattr(virtual uint64) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	hit, ok := o.firstHit(virtual)
	if !ok {
		return nil, ErrEnoent
	}
	xattrs, err := o.layers[hit.Layer].GetXattrs(hit.Physical)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, xattrs.Len())
	xattrs.Range(func(k string, _ []byte) bool {
		names = append(names, k)
		return true
	})
	return names, nil
}

// OverlayDirEntry is one entry in a merged directory listing.
type OverlayDirEntry struct {
	Name  string
	Child uint64
	Kind  InodeKind
}

// Readdir merges the directory entries of every layer that has virtual,
// earlier layers winning on name collisions, stopping at the first
// layer (in precedence order) that carries the opaque xattr. "." and
// ".." are synthesised from virtual itself and from the parents table.
// offset skips that many entries into the deterministically (name-)
// ordered merged list, supporting resumable readdir.
func (o *Overlay) Readdir(virtual uint64, offset int) ([]OverlayDirEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	hits, ok := o.forward[virtual]
	if !ok {
		return nil, ErrEnoent
	}

	type merged struct {
		hit  layerHit
		kind InodeKind
	}
	byName := make(map[string]merged)
	var order []string

	for _, hit := range hits {
		layer := o.layers[hit.Layer]
		entries, err := layer.Readdir(hit.Physical)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if _, seen := byName[e.Name]; seen {
				continue
			}
			byName[e.Name] = merged{hit: layerHit{Layer: hit.Layer, Physical: e.Child}, kind: e.Kind}
			order = append(order, e.Name)
		}

		xattrs, err := layer.GetXattrs(hit.Physical)
		if err == nil && xattrs.Has(opaqueXattr) {
			break
		}
	}

	order = append(order, ".", "..")
	byName["."] = merged{hit: hits[0], kind: Directory}
	if parent, ok := o.parents[virtual]; ok {
		if parentHits, ok := o.forward[parent]; ok && len(parentHits) > 0 {
			byName[".."] = merged{hit: parentHits[0], kind: Directory}
		}
	}

	sort.Strings(order)

	result := make([]OverlayDirEntry, 0, len(order))
	for _, name := range order {
		m := byName[name]
		if m.kind == Whiteout {
			continue
		}
		var childVirtual uint64
		switch name {
		case ".":
			childVirtual = virtual
		case "..":
			childVirtual = o.parents[virtual]
		default:
			v, ok := o.remap(virtual, name)
			if !ok {
				continue
			}
			childVirtual = v
			o.parents[childVirtual] = virtual
		}
		result = append(result, OverlayDirEntry{Name: name, Child: childVirtual, Kind: m.kind})
	}

	if offset >= len(result) {
		return nil, nil
	}
	return result[offset:], nil
}
