package parcel

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// magic is the fixed four-byte prefix every parcel file starts with.
var magic = [4]byte{0x34, 0x31, 0x33, 0x0a}

// terminator marks the end of the header region: a line consisting of
// exactly "...\n", itself preceded by a newline so the full marker
// scanned for is "\n...\n".
const terminator = "\n...\n"

// onDiskHeader mirrors the top-level fields of a parcel's header, as
// described by the format: a version integer, the root inode id, the
// embedded metadata record, the inode table, and the content table.
// Inodes and contents are both keyed by a decimal string rendering of
// the u64 inode id. yaml.v3 emits such a key as a quoted string scalar
// ("1"), and parseIDKey turns it back into the id, giving stable
// round-trip without requiring the codec to support non-string map keys
// natively.
type onDiskHeader struct {
	Version   uint32                    `yaml:"version"`
	RootInode uint64                    `yaml:"root_inode"`
	Metadata  Metadata                  `yaml:"metadata"`
	Inodes    *OrderedMap[*Inode]       `yaml:"inodes"`
	Content   *OrderedMap[taggedContent] `yaml:"content"`
}

// taggedContent wraps an InodeContent for encoding as the externally
// tagged single-key mapping the format uses: {KindName: kind-specific-fields}.
type taggedContent struct {
	content InodeContent
}

func (t taggedContent) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.content.contentKind().String()}
	valNode := &yaml.Node{}

	var inner any
	switch c := t.content.(type) {
	case DirectoryContent:
		inner = c.Entries
	case RegularFileContent:
		inner = c.FileReference
	case SymlinkContent:
		inner = c.Target
	case CharDeviceContent:
		// Encoded as the bare device-id integer, not a nested mapping.
		inner = c.Rdev
	default:
		return nil, fmt.Errorf("parcel: unknown content type %T", t.content)
	}
	if err := valNode.Encode(inner); err != nil {
		return nil, err
	}
	node.Content = []*yaml.Node{keyNode, valNode}
	return node, nil
}

func (t *taggedContent) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("parcel: malformed tagged content node")
	}
	var kindName string
	if err := node.Content[0].Decode(&kindName); err != nil {
		return err
	}
	switch kindName {
	case "Directory":
		entries := NewOrderedMap[DirEntry]()
		if err := node.Content[1].Decode(entries); err != nil {
			return err
		}
		t.content = DirectoryContent{Entries: entries}
	case "RegularFile":
		var ref FileReference
		if err := node.Content[1].Decode(&ref); err != nil {
			return err
		}
		t.content = RegularFileContent{FileReference: ref}
	case "Symlink":
		var target string
		if err := node.Content[1].Decode(&target); err != nil {
			return err
		}
		t.content = SymlinkContent{Target: target}
	case "CharDevice":
		var rdev uint64
		if err := node.Content[1].Decode(&rdev); err != nil {
			return err
		}
		t.content = CharDeviceContent{Rdev: rdev}
	default:
		return fmt.Errorf("parcel: unknown content kind %q", kindName)
	}
	return nil
}

// versionProbe is decoded first, before the full header, so that a
// version mismatch can be reported without requiring the rest of the
// document to match this implementation's schema.
type versionProbe struct {
	Version yaml.Node `yaml:"version"`
}

// decodeVersionProbe extracts the raw `version` field from a header
// document, distinguishing "absent" (ErrNoVersion) from "present but not
// an integer" (ErrVersionType).
func decodeVersionProbe(buf []byte) (uint32, error) {
	var probe versionProbe
	if err := yaml.Unmarshal(buf, &probe); err != nil {
		return 0, err
	}
	if probe.Version.Kind == 0 {
		return 0, ErrNoVersion
	}
	if probe.Version.Tag != "!!int" {
		return 0, ErrVersionType
	}
	v, err := strconv.ParseUint(probe.Version.Value, 10, 32)
	if err != nil {
		return 0, ErrVersionType
	}
	return uint32(v), nil
}

func idKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseIDKey(key string) (uint64, error) {
	return strconv.ParseUint(key, 10, 64)
}
