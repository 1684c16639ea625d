// Package entity persists campaign entity catalogs.
package entity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/lorelink/internal/db"
	"github.com/kailas-cloud/lorelink/internal/domain"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// store is the consumer interface for entity hashes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
}

// Repo implements usecase/catalog.Repository on Redis/Valkey hashes.
type Repo struct {
	store  store
	prefix string
}

// New creates an entity repository.
func New(s store) *Repo {
	return &Repo{store: s, prefix: domain.KeyPrefix}
}

// WithKeyPrefix overrides the storage key prefix.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// Upsert creates or updates an entity and bumps the catalog version. Returns true if created.
func (r *Repo) Upsert(ctx context.Context, campaign string, rec domentity.Record) (bool, error) {
	key := r.entityKey(campaign, rec.ID())
	fields, err := buildHashFields(rec)
	if err != nil {
		return false, err
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	if err := r.bumpVersion(ctx, campaign); err != nil {
		return false, err
	}
	return !exists, nil
}

// BatchUpsert stores all records in one pipeline and bumps the version once.
func (r *Repo) BatchUpsert(ctx context.Context, campaign string, recs []domentity.Record) error {
	if len(recs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(recs))
	for _, rec := range recs {
		fields, err := buildHashFields(rec)
		if err != nil {
			return fmt.Errorf("entity %s: %w", rec.ID(), err)
		}
		items = append(items, db.HashSetItem{Key: r.entityKey(campaign, rec.ID()), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset batch %s: %w", campaign, err)
	}
	return r.bumpVersion(ctx, campaign)
}

// Get returns an entity by ID.
func (r *Repo) Get(ctx context.Context, campaign, id string) (domentity.Record, error) {
	key := r.entityKey(campaign, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domentity.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domentity.Record{}, domain.ErrNotFound
	}
	return parseHashFields(m), nil
}

// List returns every entity of a campaign ordered by ID.
func (r *Repo) List(ctx context.Context, campaign string) ([]domentity.Record, error) {
	prefix := r.entityPrefix(campaign)
	keys, err := r.store.Scan(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", campaign, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", campaign, err)
	}

	out := make([]domentity.Record, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		if m[fieldID] == "" {
			m[fieldID] = strings.TrimPrefix(keys[i], prefix)
		}
		out = append(out, parseHashFields(m))
	}
	return out, nil
}

// Delete removes an entity and bumps the catalog version.
func (r *Repo) Delete(ctx context.Context, campaign, id string) error {
	key := r.entityKey(campaign, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return r.bumpVersion(ctx, campaign)
}

// Version returns the campaign's catalog version; 0 for a campaign never written.
func (r *Repo) Version(ctx context.Context, campaign string) (int64, error) {
	key := r.versionKey(campaign)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version %q: %w", raw, err)
	}
	return v, nil
}

func (r *Repo) bumpVersion(ctx context.Context, campaign string) error {
	key := r.versionKey(campaign)
	if _, err := r.store.IncrBy(ctx, key, 1); err != nil {
		return fmt.Errorf("incrby %s: %w", key, err)
	}
	return nil
}

func (r *Repo) entityPrefix(campaign string) string {
	return r.prefix + "campaign:" + campaign + ":entity:"
}

func (r *Repo) entityKey(campaign, id string) string {
	return r.entityPrefix(campaign) + id
}

func (r *Repo) versionKey(campaign string) string {
	return r.prefix + "campaign:" + campaign + ":version"
}
