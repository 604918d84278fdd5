package upload

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// ProviderFactory is a function that creates a new provider instance
type ProviderFactory func() Provider

// Registry holds all available upload providers
var Registry = make(map[string]ProviderFactory)

// RegisterProvider registers a new upload provider
func RegisterProvider(name string, factory ProviderFactory) {
	Registry[name] = factory
}

// NewProvider creates a new provider instance by name
func NewProvider(name string) (Provider, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown upload provider: %s", name)
	}
	return factory(), nil
}

func init() {
	RegisterProvider("minio", func() Provider {
		return NewMinioProvider()
	})
}

// Setup creates the named provider and configures it. An empty name means
// uploads are disabled and returns a nil provider.
func Setup(ctx context.Context, name string, config map[string]any) (Provider, error) {
	if name == "" {
		return nil, nil
	}
	provider, err := NewProvider(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload provider: %w", err)
	}
	if err := provider.Configure(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to configure upload provider: %w", err)
	}
	return provider, nil
}

// ContentType guesses a MIME type from the file extension.
func ContentType(path string) string {
	switch filepath.Ext(path) {
	case ".png":
		return "image/png"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// UploadFile uploads one local file under key.
func UploadFile(ctx context.Context, provider Provider, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s for upload: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	return provider.Upload(ctx, Object{
		Reader:      f,
		Size:        info.Size(),
		Key:         key,
		ContentType: ContentType(localPath),
	})
}

// UploadFiles uploads every local path to its key and returns the failures
// by local path. It keeps going after a failure.
func UploadFiles(ctx context.Context, provider Provider, files map[string]string, logger *zap.Logger) map[string]error {
	if logger == nil {
		logger = zap.NewNop()
	}
	failures := make(map[string]error)
	if provider == nil {
		return failures
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, localPath := range paths {
		key := files[localPath]
		if err := UploadFile(ctx, provider, localPath, key); err != nil {
			logger.Error("upload failed", zap.String("path", localPath), zap.Error(err))
			failures[localPath] = err
			continue
		}
		logger.Info("uploaded", zap.String("path", localPath), zap.String("key", key))
	}
	return failures
}
