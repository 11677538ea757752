// Package storage keeps finalized recordings in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore stores media and hands out durable references to it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	URL(ctx context.Context, key string) (string, error)
}

// RecordingKey is the object key of a session's recording.
func RecordingKey(userID, sessionID, contentType string) string {
	ext := "bin"
	switch {
	case strings.Contains(contentType, "webm"):
		ext = "webm"
	case strings.Contains(contentType, "ogg"):
		ext = "ogg"
	case strings.Contains(contentType, "wav"):
		ext = "wav"
	case strings.Contains(contentType, "mpeg"):
		ext = "mp3"
	}
	return fmt.Sprintf("recordings/%s/%s.%s", userID, sessionID, ext)
}

// MemoryStore keeps objects in process. Put can be made to fail for tests of retry paths.
type MemoryStore struct {
	mu       sync.Mutex
	objects  map[string]memoryObject
	failures int
}

type memoryObject struct {
	data        []byte
	contentType string
	storedAt    time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// FailNext makes the next n Put calls return an error.
func (s *MemoryStore) FailNext(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return "", errors.New("object store unavailable")
	}
	s.mu.Unlock()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read object body: %w", err)
	}
	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, contentType: contentType, storedAt: time.Now()}
	s.mu.Unlock()
	return "memory://" + key, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStore) URL(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return "", ErrObjectNotFound
	}
	return "memory://" + key, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
