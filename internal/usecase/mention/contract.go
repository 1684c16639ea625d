package mention

import (
	"context"

	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// Catalog supplies entity records and the version counter bumped on every write.
type Catalog interface {
	List(ctx context.Context, campaign string) ([]domentity.Record, error)
	Version(ctx context.Context, campaign string) (int64, error)
}

// TextCache stores annotated text. Misses and failures look the same to the caller.
type TextCache interface {
	Get(ctx context.Context, parts ...string) (string, bool)
	Put(ctx context.Context, value string, parts ...string)
}
