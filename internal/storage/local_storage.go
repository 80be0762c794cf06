package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type localSource struct {
	dir string
}

// NewLocalSource reads artifacts from a directory on disk.
func NewLocalSource(dir string) ArtifactSource {
	return &localSource{dir: dir}
}

func (s *localSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
		}
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

func (s *localSource) Describe() string {
	return "local:" + s.dir
}
