package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/lorelink/internal/db/sqlite"
	"github.com/kailas-cloud/lorelink/internal/domain"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

func newSQLRepo(t *testing.T) *SQLRepo {
	t.Helper()
	conn, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewSQL(conn)
}

func TestSQLRepo_UpsertGetList(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()
	rec := testRecord(t)

	created, err := repo.Upsert(ctx, "c1", rec)
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	created, err = repo.Upsert(ctx, "c1", rec)
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}

	got, err := repo.Get(ctx, "c1", "npc-aerith")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name() != "Aerith" || got.IconURL() != rec.IconURL() || got.Attributes()["race"].Unwrap() != "Cetra" {
		t.Errorf("unexpected record: %+v", got)
	}

	io, _ := domentity.New("loc-io", "Io", domentity.TypeLocation, "", "", nil)
	if _, err := repo.Upsert(ctx, "c1", io); err != nil {
		t.Fatalf("upsert io: %v", err)
	}
	if _, err := repo.Upsert(ctx, "other", io); err != nil {
		t.Fatalf("upsert other campaign: %v", err)
	}

	recs, err := repo.List(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].ID() != "loc-io" || recs[1].ID() != "npc-aerith" {
		t.Errorf("unexpected list: %+v", recs)
	}
}

func TestSQLRepo_VersionBumps(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()

	v, err := repo.Version(ctx, "c1")
	if err != nil || v != 0 {
		t.Fatalf("initial version = %d, %v", v, err)
	}

	rec := testRecord(t)
	_, _ = repo.Upsert(ctx, "c1", rec)
	_, _ = repo.Upsert(ctx, "c1", rec)
	if err := repo.Delete(ctx, "c1", rec.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	v, err = repo.Version(ctx, "c1")
	if err != nil || v != 3 {
		t.Fatalf("version = %d, %v; want 3", v, err)
	}
}

func TestSQLRepo_DeleteMissing(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()
	if err := repo.Delete(ctx, "c1", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if v, _ := repo.Version(ctx, "c1"); v != 0 {
		t.Errorf("failed delete bumped version to %d", v)
	}
}

func TestSQLRepo_GetMissing(t *testing.T) {
	repo := newSQLRepo(t)
	if _, err := repo.Get(context.Background(), "c1", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLRepo_BatchUpsert(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()
	a, _ := domentity.New("a", "Aerith", domentity.TypeNPC, "", "", nil)
	b, _ := domentity.New("b", "Barret", domentity.TypeCharacter, "", "", nil)

	if err := repo.BatchUpsert(ctx, "c1", []domentity.Record{a, b}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	recs, _ := repo.List(ctx, "c1")
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if v, _ := repo.Version(ctx, "c1"); v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
}

func TestSQLRepo_Ping(t *testing.T) {
	if err := newSQLRepo(t).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
