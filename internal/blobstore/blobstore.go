// Package blobstore keeps product images on local disk or in S3.
package blobstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"github.com/h2non/filetype/types"
)

// SignedURLExpiry is how long presigned retrieval links stay valid.
const SignedURLExpiry = 3600

var ErrUnsupportedType = errors.New("unsupported image format")

// Store is a keyed blob store for images.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns a link clients can fetch key from.
	URL(ctx context.Context, key string) (string, error)
}

// Staged is an image accepted for upload but not yet written.
type Staged struct {
	Key         string
	ContentType string
	Data        []byte
}

var allowed = map[types.Type]bool{
	matchers.TypeJpeg: true,
	matchers.TypePng:  true,
	matchers.TypeWebp: true,
}

// Stage sniffs data and picks a fresh key with the matching extension.
// Nothing is written.
func Stage(data []byte) (*Staged, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, err
	}
	if kind == filetype.Unknown || !allowed[kind] {
		return nil, ErrUnsupportedType
	}
	return &Staged{
		Key:         uuid.NewString() + "." + kind.Extension,
		ContentType: kind.MIME.Value,
		Data:        data,
	}, nil
}
