package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultPublicPrefix is the URL prefix the HTTP server serves Disk under.
const DefaultPublicPrefix = "/uploads"

// Disk stores blobs as files in a directory served statically.
type Disk struct {
	dir    string
	prefix string
}

// NewDisk creates dir if needed.
func NewDisk(dir, publicPrefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if publicPrefix == "" {
		publicPrefix = DefaultPublicPrefix
	}
	return &Disk{dir: dir, prefix: strings.TrimSuffix(publicPrefix, "/")}, nil
}

func (d *Disk) Dir() string { return d.dir }

func (d *Disk) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(d.dir, key), nil
}

// Put writes to a temp file and renames it so readers never see a partial
// image.
func (d *Disk) Put(_ context.Context, key string, data []byte, _ string) error {
	dst, err := d.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Delete removes key. Deleting a missing blob is not an error.
func (d *Disk) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Disk) URL(_ context.Context, key string) (string, error) {
	if _, err := d.path(key); err != nil {
		return "", err
	}
	return path.Join(d.prefix, key), nil
}
