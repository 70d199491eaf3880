package media

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/metrics"
)

// listingImageName is the base name (without extension) of a product's
// preferred thumbnail.
const listingImageName = "listing_image"

// Resolver turns manifests into ordered media lists.
//
// Resolution never fails from the caller's point of view: any fetch or parse
// problem yields an empty list, so one broken brand cannot break the feed.
type Resolver struct {
	source  Source
	baseURL string
}

// NewResolver creates a Resolver reading manifests from source. Media URLs are
// built as {baseURL}/{brands|products}/{id}/{name}.
func NewResolver(source Source, baseURL string) *Resolver {
	return &Resolver{source: source, baseURL: strings.TrimRight(baseURL, "/")}
}

// ResolveBrandMedia returns the media of a brand with the first video first.
func (r *Resolver) ResolveBrandMedia(ctx context.Context, brand string) []Item {
	return r.resolve(ctx, "brands", brand, BrandManifestKey(brand))
}

// ResolveProductMedia returns the media of a product with the first video first.
func (r *Resolver) ResolveProductMedia(ctx context.Context, product string) []Item {
	return r.resolve(ctx, "products", product, ProductManifestKey(product))
}

// ResolveThumbnail returns one image URL for a product: the listing image when
// the manifest has one, otherwise the first supported image.
func (r *Resolver) ResolveThumbnail(ctx context.Context, product string) (string, bool) {
	names, ok := r.fetchNames(ctx, "products", product, ProductManifestKey(product))
	if !ok {
		return "", false
	}

	first := ""
	for _, name := range names {
		kind, supported := Classify(name)
		if !supported || kind != KindImage {
			continue
		}
		base := strings.TrimSuffix(path.Base(name), path.Ext(name))
		if strings.EqualFold(base, listingImageName) {
			return r.url("products", product, name), true
		}
		if first == "" {
			first = name
		}
	}
	if first == "" {
		return "", false
	}
	return r.url("products", product, first), true
}

func (r *Resolver) resolve(ctx context.Context, scope, id, key string) []Item {
	names, ok := r.fetchNames(ctx, scope, id, key)
	if !ok {
		return []Item{}
	}

	items := make([]Item, 0, len(names))
	for _, name := range names {
		kind, supported := Classify(name)
		if !supported {
			continue
		}
		items = append(items, Item{Kind: kind, URL: r.url(scope, id, name), Name: name})
	}
	return PromoteFirstVideo(items)
}

func (r *Resolver) fetchNames(ctx context.Context, scope, id, key string) ([]string, bool) {
	data, err := r.source.Fetch(ctx, key)
	if err != nil {
		reason := "fetch"
		if errors.Is(err, ErrNotFound) {
			reason = "not_found"
		}
		metrics.ManifestFailures.WithLabelValues(scope, reason).Inc()
		log.Warn().Err(err).Str("scope", scope).Str("id", id).Msg("Manifest unavailable, treating as no media")
		return nil, false
	}
	names, err := ParseManifest(data)
	if err != nil {
		metrics.ManifestFailures.WithLabelValues(scope, "malformed").Inc()
		log.Warn().Err(err).Str("scope", scope).Str("id", id).Msg("Manifest malformed, treating as no media")
		return nil, false
	}
	return names, true
}

func (r *Resolver) url(scope, id, name string) string {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	return r.baseURL + "/" + scope + "/" + id + "/" + strings.TrimLeft(name, "/")
}
