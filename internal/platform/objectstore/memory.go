package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"roster/internal/sentinel"
)

// MemoryStore holds objects in memory for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemory constructs an empty in-memory object store.
func NewMemory() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(_ context.Context, bucket, key, contentType string, body io.Reader) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("bucket and key are required: %w", sentinel.ErrInvalidInput)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = memoryObject{data: data, contentType: contentType}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, bucket, key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, key, sentinel.ErrNotFound)
	}
	return &Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (s *MemoryStore) Remove(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[bucket+"/"+key]; !ok {
		return fmt.Errorf("object %s/%s: %w", bucket, key, sentinel.ErrNotFound)
	}
	delete(s.objects, bucket+"/"+key)
	return nil
}

// Len reports the number of stored objects. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
