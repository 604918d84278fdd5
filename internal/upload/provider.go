package upload

import (
	"context"
	"io"
)

// Object is one file to store remotely.
type Object struct {
	Reader      io.Reader
	Size        int64 // -1 when unknown
	Key         string
	ContentType string
}

// Provider stores objects in a remote location.
type Provider interface {
	// Upload stores obj under obj.Key, relative to any configured prefix.
	Upload(ctx context.Context, obj Object) error

	// Configure validates config and connects to the backend.
	Configure(ctx context.Context, config map[string]any) error

	Name() string
}
