package parcel

import (
	"errors"
	"io"
)

// memStore is a minimal io.ReadWriteSeeker over an in-memory byte slice,
// used to exercise Container/Handle logic against BufferedStore without
// touching a real file.
type memStore struct {
	data []byte
	pos  int64
}

func newMemStore() *BufferedStore {
	return NewBufferedStore(&memStore{})
}

func (m *memStore) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.data)) + offset
	default:
		return 0, errors.New("memstore: invalid whence")
	}
	if target < 0 {
		return 0, errors.New("memstore: negative position")
	}
	m.pos = target
	return target, nil
}

func (m *memStore) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memStore) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	n := copy(m.data[m.pos:end], p)
	m.pos = end
	return n, nil
}
