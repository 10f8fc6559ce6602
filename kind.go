package parcel

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// InodeKind tags the type of object an inode (or a directory entry)
// represents. A Whiteout never names a live inode: it only ever appears
// as the kind of a directory entry whose child id is 0, masking an
// entry of the same name in a lower overlay layer.
type InodeKind int

const (
	Directory InodeKind = iota
	RegularFile
	Symlink
	CharDevice
	Whiteout
)

func (k InodeKind) String() string {
	switch k {
	case Directory:
		return "Directory"
	case RegularFile:
		return "RegularFile"
	case Symlink:
		return "Symlink"
	case CharDevice:
		return "CharDevice"
	case Whiteout:
		return "Whiteout"
	default:
		return fmt.Sprintf("InodeKind(%d)", int(k))
	}
}

// MarshalYAML renders the kind using its name, matching the tagged-union
// shape the on-disk format uses for inode content.
func (k InodeKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// UnmarshalYAML parses a kind from its on-disk name.
func (k *InodeKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "Directory":
		*k = Directory
	case "RegularFile":
		*k = RegularFile
	case "Symlink":
		*k = Symlink
	case "CharDevice":
		*k = CharDevice
	case "Whiteout":
		*k = Whiteout
	default:
		return fmt.Errorf("parcel: unknown inode kind %q", s)
	}
	return nil
}
