// Package store persists what outlives a single feed session: the brand
// catalog, each user's saved brands and liked products, and engagement scores
// when cross-session ranking is enabled.
//
// DynamoDB uses a single-table design. The catalog lives under PK=CATALOG
// with one BRAND#{id} item per brand. Everything about a user lives under
// PK=USER#{userId}, with sort keys SAVE#{brand}, LIKE#{product} and
// SCORE#{brand}. Score records carry an expiresAt TTL attribute.
package store

import (
	"context"
	"time"

	"github.com/fpang/brand-feed/internal/engagement"
)

// ScoreTTL is how long persisted engagement scores are kept.
const ScoreTTL = 30 * 24 * time.Hour

// CatalogStore lists the brands that can appear in the feed.
type CatalogStore interface {
	// Catalog returns brand IDs in catalog order.
	Catalog(ctx context.Context) ([]string, error)
}

// FeedStore is the full persistence surface used by the API. Methods are safe
// for concurrent use. Save and like writes are idempotent upserts or deletes.
type FeedStore interface {
	CatalogStore

	PutCatalog(ctx context.Context, brands []string) error

	SaveBrand(ctx context.Context, userID, brand string) error
	UnsaveBrand(ctx context.Context, userID, brand string) error
	SavedBrands(ctx context.Context, userID string) ([]string, error)

	LikeProduct(ctx context.Context, userID, product string) error
	UnlikeProduct(ctx context.Context, userID, product string) error
	LikedProducts(ctx context.Context, userID string) ([]string, error)

	// LoadScores returns persisted scores; an unknown user yields an empty map.
	LoadScores(ctx context.Context, userID string) (map[string]engagement.Score, error)
	PutScores(ctx context.Context, userID string, scores map[string]engagement.Score) error
}
