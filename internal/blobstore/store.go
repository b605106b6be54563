// Package blobstore keeps temporary in-memory objects addressed by
// "blob:" handles, the server-side analogue of browser object URLs.
package blobstore

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Scheme prefixes every handle issued by a Store.
const Scheme = "blob:"

// Object is a stored temporary payload.
type Object struct {
	Data        []byte
	ContentType string
}

// Store is a registry of temporary objects. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// New creates an empty store.
func New() *Store {
	return &Store{objects: make(map[string]Object)}
}

// IsHandle reports whether url is a temporary handle.
func IsHandle(url string) bool {
	return strings.HasPrefix(url, Scheme)
}

// Create registers data and returns its handle.
func (s *Store) Create(data []byte, contentType string) string {
	handle := Scheme + uuid.NewString()
	s.mu.Lock()
	s.objects[handle] = Object{Data: data, ContentType: contentType}
	s.mu.Unlock()
	return handle
}

// Get returns the object behind handle.
func (s *Store) Get(handle string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[handle]
	return obj, ok
}

// Open returns a reader over the object behind handle.
func (s *Store) Open(handle string) (io.ReadCloser, error) {
	obj, ok := s.Get(handle)
	if !ok {
		return nil, fmt.Errorf("blobstore: unknown handle %s", handle)
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

// Revoke releases handle. It reports whether the handle was live.
func (s *Store) Revoke(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[handle]; !ok {
		return false
	}
	delete(s.objects, handle)
	return true
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
