package memory

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Blobs is an in-memory document store.
type Blobs struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewBlobs(baseURL string) *Blobs {
	return &Blobs{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

func (b *Blobs) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return b.baseURL + "/" + key, nil
}

func (b *Blobs) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.objects, k)
	}
	return nil
}

// Get returns the stored bytes for key.
func (b *Blobs) Get(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	return data, ok
}

func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
