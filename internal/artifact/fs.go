package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hearthline/chartpress/internal/config"
	"github.com/hearthline/chartpress/internal/domain"
)

// Filesystem writes artifacts under a root directory. Writes go to a temp
// file and rename into place, so readers never see a partial artifact.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "outputs"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("artifact root: %w", err)
	}
	return &Filesystem{root: root}, nil
}

func (s *Filesystem) Driver() string { return config.DriverFS }

func (s *Filesystem) Put(_ context.Context, a domain.Artifact) error {
	path, err := s.path(a.Key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("artifact %s: %w", a.Key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("artifact %s: %w", a.Key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(a.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact %s: %w", a.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact %s: %w", a.Key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("artifact %s: %w", a.Key, err)
	}
	return nil
}

func (s *Filesystem) Get(_ context.Context, key string) (domain.Artifact, error) {
	path, err := s.path(key)
	if err != nil {
		return domain.Artifact{}, err
	}
	body, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.Artifact{}, fmt.Errorf("artifact %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("artifact %s: %w", key, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("artifact %s: %w", key, err)
	}
	return domain.Artifact{
		Key:         key,
		ContentType: contentTypeForKey(key),
		Body:        body,
		RenderedAt:  info.ModTime(),
	}, nil
}

func (s *Filesystem) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// path rejects keys that would escape the root.
func (s *Filesystem) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty artifact key")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("artifact key %q escapes the store root", key)
	}
	return filepath.Join(s.root, clean), nil
}

func contentTypeForKey(key string) string {
	switch filepath.Ext(key) {
	case ".svg":
		return "image/svg+xml"
	case ".html":
		return "text/html; charset=utf-8"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
