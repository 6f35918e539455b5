// Package preview keeps transient preview resources for queued files.
package preview

import (
	"sync"

	"github.com/google/uuid"
)

// Resource is a single preview payload.
type Resource struct {
	Data        []byte
	ContentType string
}

// Store hands out handles to preview resources and releases them on request.
// Every acquired handle must be released by its owner.
type Store struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{resources: make(map[string]Resource)}
}

// Acquire registers a preview resource and returns its handle.
func (s *Store) Acquire(data []byte, contentType string) string {
	handle := "preview:" + uuid.NewString()

	s.mu.Lock()
	s.resources[handle] = Resource{Data: data, ContentType: contentType}
	s.mu.Unlock()

	return handle
}

// Get returns the resource behind a handle.
func (s *Store) Get(handle string) (Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[handle]
	return r, ok
}

// Release frees the resource behind a handle. Unknown handles are ignored.
func (s *Store) Release(handle string) {
	s.mu.Lock()
	delete(s.resources, handle)
	s.mu.Unlock()
}

// Len returns the number of live resources.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.resources)
}
