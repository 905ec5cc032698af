package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ErrNotFound is returned by a Source that has no content for a path.
var ErrNotFound = errors.New("asset not found")

// Source reads raw asset content. Paths are slash separated and relative.
type Source interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// Lister is implemented by sources that can enumerate a folder.
type Lister interface {
	List(ctx context.Context, dir string) ([]string, error)
}

// FileSource reads assets below Root on the local filesystem.
type FileSource struct {
	Root string
}

func (s FileSource) resolve(p string) (string, error) {
	// Rooting the path first keeps ".." from climbing above Root.
	clean := path.Clean("/" + p)[1:]
	if clean == "" {
		return "", fmt.Errorf("asset path %q: %w", p, fs.ErrInvalid)
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

func (s FileSource) Read(_ context.Context, p string) ([]byte, error) {
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", p, err)
	}
	return data, nil
}

// List returns every regular file below dir, sorted, as slash paths
// relative to Root.
func (s FileSource) List(ctx context.Context, dir string) ([]string, error) {
	root := s.Root
	if dir != "" && dir != "." {
		full, err := s.resolve(dir)
		if err != nil {
			return nil, err
		}
		root = full
	}
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list assets %s: %w", dir, err)
	}
	return out, nil
}
