package memory

import (
	"context"
	"strings"
	"sync"
)

// ArtifactStore keeps uploaded proofs in memory and hands out URLs under baseURL.
type ArtifactStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]StoredArtifact
}

// StoredArtifact is a payload kept by ArtifactStore.
type StoredArtifact struct {
	ContentType string
	Data        []byte
}

func NewArtifactStore(baseURL string) *ArtifactStore {
	return &ArtifactStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]StoredArtifact),
	}
}

func (s *ArtifactStore) Put(_ context.Context, path, contentType string, data []byte) (string, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	s.mu.Lock()
	s.objects[path] = StoredArtifact{ContentType: contentType, Data: buf}
	s.mu.Unlock()
	return s.URL(path), nil
}

// Get returns the artifact stored at path.
func (s *ArtifactStore) Get(path string) (StoredArtifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return obj, ok
}

// URL is the public reference for path.
func (s *ArtifactStore) URL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}
