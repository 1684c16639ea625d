package catalog

import (
	"context"

	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// Repository defines the storage contract for the entity catalog.
// Every write bumps the campaign's catalog version.
type Repository interface {
	Upsert(ctx context.Context, campaign string, rec domentity.Record) (created bool, err error)
	BatchUpsert(ctx context.Context, campaign string, recs []domentity.Record) error
	Get(ctx context.Context, campaign, id string) (domentity.Record, error)
	List(ctx context.Context, campaign string) ([]domentity.Record, error)
	Delete(ctx context.Context, campaign, id string) error
	Version(ctx context.Context, campaign string) (int64, error)
}
