package parcel

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)

	var got []string
	m.Range(func(k string, v int) bool {
		got = append(got, k)
		return true
	})
	want := []string{"z", "a", "m"}
	for i, k := range want {
		if got[i] != k {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestOrderedMapUpdateKeepsPosition(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 99)

	var got []string
	m.Range(func(k string, v int) bool {
		got = append(got, k)
		return true
	})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("order after update = %v, want [a b]", got)
	}
	v, _ := m.Get("a")
	if v != 99 {
		t.Fatalf("Get(a) = %d, want 99", v)
	}
}

func TestOrderedMapYAMLRoundTrip(t *testing.T) {
	m := NewOrderedMap[[]byte]()
	m.Set("user.one", []byte("hello"))
	m.Set("trusted.overlay.opaque", []byte{})
	m.Set("user.bin", []byte{0x00, 0xff, 0x10})

	buf, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	out := NewOrderedMap[[]byte]()
	if err := yaml.Unmarshal(buf, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if out.Len() != m.Len() {
		t.Fatalf("Len after round trip = %d, want %d", out.Len(), m.Len())
	}
	var order []string
	out.Range(func(k string, v []byte) bool {
		order = append(order, k)
		return true
	})
	want := []string{"user.one", "trusted.overlay.opaque", "user.bin"}
	for i, k := range want {
		if order[i] != k {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	v, _ := out.Get("user.bin")
	if len(v) != 3 || v[1] != 0xff {
		t.Fatalf("binary xattr value corrupted: %v", v)
	}
}

func TestOrderedMapNonUTF8KeyRoundTrip(t *testing.T) {
	rawName := string([]byte{'u', 0x80, 0xfe, 'x'})
	m := NewOrderedMap[[]byte]()
	m.Set("user.plain", []byte("a"))
	m.Set(rawName, []byte("b"))

	buf, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	out := NewOrderedMap[[]byte]()
	if err := yaml.Unmarshal(buf, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	v, ok := out.Get(rawName)
	if !ok {
		t.Fatalf("non-UTF-8 key lost in round trip; document was %q", buf)
	}
	if string(v) != "b" {
		t.Fatalf("non-UTF-8 key value = %q, want b", v)
	}
	var order []string
	out.Range(func(k string, _ []byte) bool {
		order = append(order, k)
		return true
	})
	if len(order) != 2 || order[0] != "user.plain" || order[1] != rawName {
		t.Fatalf("order after round trip = %q", order)
	}
}

func TestInodeKindYAMLRoundTrip(t *testing.T) {
	for _, k := range []InodeKind{Directory, RegularFile, Symlink, CharDevice, Whiteout} {
		buf, err := yaml.Marshal(k)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", k, err)
		}
		var got InodeKind
		if err := yaml.Unmarshal(buf, &got); err != nil {
			t.Fatalf("Unmarshal(%v): %v", k, err)
		}
		if got != k {
			t.Fatalf("round trip %v -> %v", k, got)
		}
	}
}
