package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/lorelink/internal/db/sqlite"
	entityrepo "github.com/kailas-cloud/lorelink/internal/repository/entity"
	chiTransport "github.com/kailas-cloud/lorelink/internal/transport/chi"
	cataloguc "github.com/kailas-cloud/lorelink/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/lorelink/internal/usecase/health"
	mentionuc "github.com/kailas-cloud/lorelink/internal/usecase/mention"
	previewuc "github.com/kailas-cloud/lorelink/internal/usecase/preview"
)

const testKey = "secret-key"

// newTestServer runs the real HTTP handler over an in-memory sqlite catalog.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := entityrepo.NewSQL(db)
	mentions := mentionuc.New(repo, nil)
	server := chiTransport.NewServer(
		cataloguc.New(repo),
		mentions,
		previewuc.New(repo, mentions, nil),
		healthuc.New(repo, nil),
		nil,
	)

	r := chi.NewRouter()
	r.Use(chiTransport.BearerAuthMiddleware([]string{testKey}))
	chiTransport.Handler(server, chiTransport.Options{BaseRouter: r})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, append([]Option{WithAPIKey(testKey)}, opts...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://bad"} {
		if _, err := New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestClient_EntityLifecycle(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	aerith := Entity{
		ID:          "npc-aerith",
		Name:        "Aerith",
		Type:        "npc",
		Description: "A healer from Midgar.",
		Attributes:  map[string]AttributeValue{"role": Scalar("healer")},
	}

	created, err := c.UpsertEntity(ctx, "ashes", aerith)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Error("first upsert must create")
	}
	created, err = c.UpsertEntity(ctx, "ashes", aerith)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Error("second upsert must update")
	}

	got, err := c.GetEntity(ctx, "ashes", "npc-aerith")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Aerith" || got.Attributes["role"].Unwrap() != "healer" {
		t.Errorf("unexpected entity %+v", got)
	}

	if _, err := c.UpsertEntity(ctx, "ashes", Entity{ID: "loc-midgar", Name: "Midgar", Type: "location"}); err != nil {
		t.Fatalf("upsert location: %v", err)
	}
	list, err := c.ListEntities(ctx, "ashes", "location")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != "loc-midgar" {
		t.Errorf("type filter: got %+v", list.Items)
	}
	if list.Version < 3 {
		t.Errorf("version = %d, expected a bump per write", list.Version)
	}

	if err := c.DeleteEntity(ctx, "ashes", "loc-midgar"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = c.DeleteEntity(ctx, "ashes", "loc-midgar")
	if !errors.Is(err, ErrNotFound) || !IsNotFound(err) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected *APIError with 404, got %v", err)
	}
}

func TestClient_AnnotateIndexPreview(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	res, err := c.BatchUpsert(ctx, "ashes", []Entity{
		{ID: "npc-aerith", Name: "Aerith", Type: "npc", Description: "Aerith tends the garden in Midgar."},
		{ID: "loc-midgar", Name: "Midgar", Type: "location"},
		{ID: "bad id", Name: "Broken", Type: "npc"},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Succeeded != 2 || res.Failed != 1 {
		t.Fatalf("batch summary = %d/%d", res.Succeeded, res.Failed)
	}
	if res.Items[2].Error == nil || res.Items[2].Error.Code != "validation_failed" {
		t.Errorf("bad item = %+v", res.Items[2])
	}

	a, err := c.Annotate(ctx, "ashes", "Aerith waits in Midgar.", "")
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	want := "[Aerith](#entity/npc-aerith/npc) waits in [Midgar](#entity/loc-midgar/location)."
	if a.Text != want {
		t.Errorf("annotate = %q, want %q", a.Text, want)
	}

	idx, err := c.Index(ctx, "ashes")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(idx.SearchTokens) != 2 || len(idx.Duplicates) != 0 {
		t.Errorf("tokens = %+v", idx.SearchTokens)
	}
	if idx.ByID["npc-aerith"].Type != "npc" {
		t.Errorf("byId = %+v", idx.ByID)
	}

	p, err := c.Preview(ctx, "ashes", "npc", "npc-aerith")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	wantDesc := "Aerith tends the garden in [Midgar](#entity/loc-midgar/location)."
	if p.Name != "Aerith" || p.Description != wantDesc {
		t.Errorf("preview = %+v", p)
	}

	if _, err := c.Preview(ctx, "ashes", "location", "npc-aerith"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("wrong type: expected ErrTypeMismatch, got %v", err)
	}
	if _, err := c.Preview(ctx, "ashes", "npc", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: expected ErrNotFound, got %v", err)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	ts := newTestServer(t)
	c, err := New(ts.URL, WithAPIKey("wrong"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.ListEntities(context.Background(), "ashes", "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health is exempt from auth: %v", err)
	}
	if h.Status != "ok" || h.Checks["database"] != "ok" {
		t.Errorf("health = %+v", h)
	}
}

func TestClient_Headers(t *testing.T) {
	var gotAuth, gotUA, gotCT string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotCT = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"text":"ok","version":7}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, WithUserAgent("test-agent"))
	a, err := c.Annotate(context.Background(), "ashes", "hello", "npc-aerith")
	if err != nil {
		t.Fatal(err)
	}
	if a.Version != 7 {
		t.Errorf("version = %d", a.Version)
	}
	if gotAuth != "Bearer "+testKey || gotUA != "test-agent" || gotCT != "application/json" {
		t.Errorf("headers: auth=%q ua=%q ct=%q", gotAuth, gotUA, gotCT)
	}
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.GetEntity(context.Background(), "ashes", "npc-aerith")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream exploded" || apiErr.Unwrap() != nil {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_PathEscaping(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL+"/")
	_, _ = c.GetEntity(context.Background(), "ashes", "a/b")
	if gotPath != "/campaigns/ashes/entities/a%2Fb" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestClient_Prometheus(t *testing.T) {
	ts := newTestServer(t)
	reg := prometheus.NewRegistry()
	c := newTestClient(t, ts.URL, WithPrometheus(reg))
	ctx := context.Background()

	_, _ = c.ListEntities(ctx, "ashes", "")
	_, _ = c.GetEntity(ctx, "ashes", "ghost")

	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("list_entities", "ok")); got != 1 {
		t.Errorf("list_entities ok = %v", got)
	}
	if got := testutil.ToFloat64(c.obs.metrics.operations.WithLabelValues("get_entity", "error")); got != 1 {
		t.Errorf("get_entity error = %v", got)
	}

	// A second client on the same registry reuses the collectors.
	if _, err := New(ts.URL, WithPrometheus(reg)); err != nil {
		t.Errorf("second registration: %v", err)
	}
}
