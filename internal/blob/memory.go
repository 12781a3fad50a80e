package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type memoryObject struct {
	info Info
	data []byte
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	objs map[string]memoryObject
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objs: make(map[string]memoryObject)}
}

// Driver returns the backend identifier.
func (s *MemoryStore) Driver() Driver { return DriverMemory }

// Put stores or replaces the object under key.
func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	if key == "" {
		return Info{}, fmt.Errorf("blob: empty key")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}

	s.mu.Lock()
	s.objs[key] = memoryObject{info: info, data: data}
	s.mu.Unlock()

	return info, nil
}

// Get returns a copy of the stored object.
func (s *MemoryStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)

	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the object, reporting whether it existed.
func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objs[key]; !ok {
		return false, nil
	}
	delete(s.objs, key)
	return true, nil
}

// Keys lists stored keys; handy in tests.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objs))
	for key := range s.objs {
		keys = append(keys, key)
	}
	return keys
}

func cloneMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
