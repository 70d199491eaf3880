package media

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Source when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Source fetches raw objects (manifests) from remote storage by key.
type Source interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, key string) ([]byte, error)

// Fetch calls f(ctx, key).
func (f SourceFunc) Fetch(ctx context.Context, key string) ([]byte, error) {
	return f(ctx, key)
}

// BrandManifestKey is the object key of a brand's media manifest.
func BrandManifestKey(brand string) string {
	return "brands/" + brand + "/manifest.json"
}

// ProductManifestKey is the object key of a product's media manifest.
func ProductManifestKey(product string) string {
	return "products/" + product + "/manifest.json"
}
