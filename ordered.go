package parcel

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// OrderedMap is a string-keyed associative container that remembers
// insertion order. The header uses it for directory content and for
// xattr sets: both are specified as "ordered" mappings so that a
// serialised parcel is byte-for-byte deterministic regardless of the
// Go runtime's native map iteration order.
//
// Re-setting an existing key updates its value in place without moving
// it to the end, matching the behaviour of an insertion-ordered dict.
type OrderedMap[V any] struct {
	entries []orderedEntry[V]
	index   map[string]int
}

type orderedEntry[V any] struct {
	Key   string
	Value V
}

// NewOrderedMap returns an empty ordered map ready for use.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{index: make(map[string]int)}
}

// Set inserts or updates key. New keys are appended to the end; existing
// keys keep their original position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = value
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, orderedEntry[V]{Key: key, Value: value})
}

// Get returns the value for key, if present.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	var zero V
	if m == nil || m.index == nil {
		return zero, false
	}
	i, ok := m.index[key]
	if !ok {
		return zero, false
	}
	return m.entries[i].Value, true
}

// Has reports whether key is present.
func (m *OrderedMap[V]) Has(key string) bool {
	if m == nil || m.index == nil {
		return false
	}
	_, ok := m.index[key]
	return ok
}

// Delete removes key, reports whether it was present.
func (m *OrderedMap[V]) Delete(key string) bool {
	if m == nil || m.index == nil {
		return false
	}
	i, ok := m.index[key]
	if !ok {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, key)
	for k, v := range m.index {
		if v > i {
			m.index[k] = v - 1
		}
	}
	return true
}

// Len reports the number of entries.
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Range calls fn for every entry in insertion order, stopping early if fn
// returns false.
func (m *OrderedMap[V]) Range(fn func(key string, value V) bool) {
	if m == nil {
		return
	}
	for _, e := range m.entries {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}

// Clone returns a deep-enough copy: a new backing slice/index with the
// same key order and values.
func (m *OrderedMap[V]) Clone() *OrderedMap[V] {
	n := NewOrderedMap[V]()
	if m == nil {
		return n
	}
	m.Range(func(k string, v V) bool {
		n.Set(k, v)
		return true
	})
	return n
}

// MarshalYAML renders the map as a YAML mapping with keys in insertion
// order, so that two loads of the same logical content produce the same
// bytes on disk.
func (m *OrderedMap[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if m == nil {
		return node, nil
	}
	for _, e := range m.entries {
		keyNode := keyToNode(e.Key)
		valNode := &yaml.Node{}
		if err := valNode.Encode(e.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// keyToNode encodes a map key as a plain string scalar, falling back to
// a base64 !!binary scalar when the key holds bytes that are not valid
// UTF-8 (xattr names are raw bytes and may hold any byte sequence).
func keyToNode(key string) *yaml.Node {
	if !utf8.ValidString(key) {
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!binary",
			Value: base64.StdEncoding.EncodeToString([]byte(key)),
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

// keyFromNode reverses keyToNode.
func keyFromNode(node *yaml.Node) (string, error) {
	if node.Tag == "!!binary" {
		raw, err := base64.StdEncoding.DecodeString(node.Value)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	var key string
	if err := node.Decode(&key); err != nil {
		return "", err
	}
	return key, nil
}

// UnmarshalYAML parses a YAML mapping, preserving the order keys appear
// in the document.
func (m *OrderedMap[V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("parcel: expected a mapping, got node kind %d", node.Kind)
	}
	m.entries = nil
	m.index = make(map[string]int)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, err := keyFromNode(node.Content[i])
		if err != nil {
			return err
		}
		var value V
		if err := node.Content[i+1].Decode(&value); err != nil {
			return err
		}
		m.Set(key, value)
	}
	return nil
}
