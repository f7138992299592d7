package artifact

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hearthline/chartpress/internal/config"
	"github.com/hearthline/chartpress/internal/domain"
)

// Memory holds artifacts in a map, for tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]domain.Artifact
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]domain.Artifact)}
}

func (s *Memory) Driver() string { return config.DriverMemory }

func (s *Memory) Put(_ context.Context, a domain.Artifact) error {
	if a.Key == "" {
		return fmt.Errorf("empty artifact key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	body := make([]byte, len(a.Body))
	copy(body, a.Body)
	a.Body = body
	s.blobs[a.Key] = a
	return nil
}

func (s *Memory) Get(_ context.Context, key string) (domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.blobs[key]
	if !ok {
		return domain.Artifact{}, fmt.Errorf("artifact %s: %w", key, ErrNotFound)
	}
	return a, nil
}

func (s *Memory) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
