package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxArtifactSize bounds how much of a single artifact is read into memory.
const maxArtifactSize = 512 << 20

// ErrArtifactNotFound indicates the named artifact does not exist in the source.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactSource fetches pre-fit model artifacts by name.
type ArtifactSource interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	Describe() string
}

// objectKey joins a configured prefix and an artifact name into a storage key.
func objectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func validateName(name string) error {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxArtifactSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("artifact exceeds %d bytes", maxArtifactSize)
	}
	return data, nil
}
