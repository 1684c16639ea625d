package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/lorelink/internal/domain"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// SQLRepo implements usecase/catalog.Repository on the embedded SQLite database.
type SQLRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQL creates a repository over a migrated database (see db/sqlite.Open).
func NewSQL(db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db, now: time.Now}
}

const upsertEntitySQL = `INSERT INTO entities
	(campaign, id, name, type, icon_url, description, attributes_json, updated_utc)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(campaign, id) DO UPDATE SET
		name = excluded.name,
		type = excluded.type,
		icon_url = excluded.icon_url,
		description = excluded.description,
		attributes_json = excluded.attributes_json,
		updated_utc = excluded.updated_utc`

const bumpVersionSQL = `INSERT INTO catalog_versions (campaign, version) VALUES (?, 1)
	ON CONFLICT(campaign) DO UPDATE SET version = version + 1`

// Upsert creates or updates an entity and bumps the catalog version. Returns true if created.
func (r *SQLRepo) Upsert(ctx context.Context, campaign string, rec domentity.Record) (bool, error) {
	var created bool
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM entities WHERE campaign = ? AND id = ?`, campaign, rec.ID(),
		).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
		case err != nil:
			return fmt.Errorf("check exists %s/%s: %w", campaign, rec.ID(), err)
		}

		if err := r.upsertRow(ctx, tx, campaign, rec); err != nil {
			return err
		}
		return bumpVersion(ctx, tx, campaign)
	})
	return created, err
}

// BatchUpsert stores all records in one transaction and bumps the version once.
func (r *SQLRepo) BatchUpsert(ctx context.Context, campaign string, recs []domentity.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			if err := r.upsertRow(ctx, tx, campaign, rec); err != nil {
				return err
			}
		}
		return bumpVersion(ctx, tx, campaign)
	})
}

// Get returns an entity by ID.
func (r *SQLRepo) Get(ctx context.Context, campaign, id string) (domentity.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, icon_url, description, attributes_json
		FROM entities WHERE campaign = ? AND id = ?`, campaign, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domentity.Record{}, domain.ErrNotFound
	}
	if err != nil {
		return domentity.Record{}, fmt.Errorf("get entity %s/%s: %w", campaign, id, err)
	}
	return rec, nil
}

// List returns every entity of a campaign ordered by ID.
func (r *SQLRepo) List(ctx context.Context, campaign string) ([]domentity.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, icon_url, description, attributes_json
		FROM entities WHERE campaign = ? ORDER BY id`, campaign)
	if err != nil {
		return nil, fmt.Errorf("list entities %s: %w", campaign, err)
	}
	defer rows.Close()

	var out []domentity.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities %s: %w", campaign, err)
	}
	return out, nil
}

// Delete removes an entity and bumps the catalog version.
func (r *SQLRepo) Delete(ctx context.Context, campaign, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE campaign = ? AND id = ?`, campaign, id)
		if err != nil {
			return fmt.Errorf("delete entity %s/%s: %w", campaign, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete entity %s/%s: %w", campaign, id, err)
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return bumpVersion(ctx, tx, campaign)
	})
}

// Version returns the campaign's catalog version; 0 for a campaign never written.
func (r *SQLRepo) Version(ctx context.Context, campaign string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM catalog_versions WHERE campaign = ?`, campaign,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get version %s: %w", campaign, err)
	}
	return v, nil
}

// Ping checks the database connection (health.Checker).
func (r *SQLRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func (r *SQLRepo) upsertRow(ctx context.Context, tx *sql.Tx, campaign string, rec domentity.Record) error {
	attrs, err := marshalAttributes(rec.Attributes())
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, upsertEntitySQL,
		campaign, rec.ID(), rec.Name(), string(rec.Type()), rec.IconURL(), rec.Description(), attrs,
		r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert entity %s/%s: %w", campaign, rec.ID(), err)
	}
	return nil
}

func (r *SQLRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx, campaign string) error {
	if _, err := tx.ExecContext(ctx, bumpVersionSQL, campaign); err != nil {
		return fmt.Errorf("bump version %s: %w", campaign, err)
	}
	return nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (domentity.Record, error) {
	var id, name, typ, icon, desc, attrsJSON string
	if err := scanner.Scan(&id, &name, &typ, &icon, &desc, &attrsJSON); err != nil {
		return domentity.Record{}, err
	}
	attrs, _ := unmarshalAttributes(attrsJSON)
	return domentity.Reconstruct(id, name, domentity.Type(typ), icon, desc, attrs), nil
}
