package insights

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"google.golang.org/api/iterator"
)

// fakeObjectStore is an in-memory ObjectStore. Objects are listed in insertion
// order, mirroring a lexically-arranged bucket listing closely enough for the
// scanner's ordering contract.
type fakeObjectStore struct {
	mu      sync.Mutex
	names   []string
	objects map[string][]byte
	// listErr, when set, is returned by the iterator before any object.
	listErr error
	// readErrs names objects whose NewReader call fails.
	readErrs map[string]error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:  make(map[string][]byte),
		readErrs: make(map[string]error),
	}
}

func (f *fakeObjectStore) put(name string, lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	f.objects[name] = []byte(strings.Join(lines, "\n") + "\n")
}

func (f *fakeObjectStore) Objects(_ context.Context, prefix string) ObjectIterator {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []string
	for _, name := range f.names {
		if strings.HasPrefix(name, prefix) {
			matched = append(matched, name)
		}
	}
	return &fakeIterator{names: matched, err: f.listErr}
}

func (f *fakeObjectStore) NewReader(_ context.Context, object string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.readErrs[object]; ok {
		return nil, err
	}
	data, ok := f.objects[object]
	if !ok {
		return nil, fmt.Errorf("object %q not found", object)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeIterator struct {
	names []string
	pos   int
	err   error
}

func (it *fakeIterator) Next() (string, error) {
	if it.err != nil {
		return "", it.err
	}
	if it.pos >= len(it.names) {
		return "", iterator.Done
	}
	name := it.names[it.pos]
	it.pos++
	return name, nil
}

// captureSink records every batch passed to InsertBatch.
type captureSink struct {
	mu      sync.Mutex
	batches [][]*HourlyAggregate
	err     error
}

func (s *captureSink) InsertBatch(_ context.Context, items []*HourlyAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, items)
	return s.err
}

func (s *captureSink) Close() error { return nil }
