package mention

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/lorelink/internal/domain"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
	dommention "github.com/kailas-cloud/lorelink/internal/domain/mention"
	"github.com/kailas-cloud/lorelink/internal/metrics"
)

// --- Mocks ---

type mockCatalog struct {
	mu         sync.Mutex
	records    []domentity.Record
	version    int64
	listCalls  int
	listErr    error
	versionErr error
}

func (m *mockCatalog) List(_ context.Context, _ string) ([]domentity.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.records, m.listErr
}

func (m *mockCatalog) Version(_ context.Context, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version, m.versionErr
}

func (m *mockCatalog) set(version int64, recs ...domentity.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
	m.records = recs
}

func (m *mockCatalog) lists() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

type mockCache struct {
	data map[string]string
	gets int
	puts int
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string]string)} }

func (m *mockCache) Get(_ context.Context, parts ...string) (string, bool) {
	m.gets++
	v, ok := m.data[strings.Join(parts, "\x00")]
	return v, ok
}

func (m *mockCache) Put(_ context.Context, value string, parts ...string) {
	m.puts++
	m.data[strings.Join(parts, "\x00")] = value
}

func npc(id, name string) domentity.Record {
	return domentity.Reconstruct(id, name, domentity.TypeNPC, "", "", nil)
}

// --- Tests ---

func TestAnnotate_Basic(t *testing.T) {
	cat := &mockCatalog{}
	cat.set(3, npc("npc-aerith", "Aerith"))
	svc := New(cat, zap.NewNop())

	res, err := svc.Annotate(context.Background(), Request{Campaign: "c1", Text: "I met Aerith today."})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "I met [Aerith](#entity/npc-aerith/npc) today." {
		t.Errorf("got %q", res.Text)
	}
	if res.Version != 3 {
		t.Errorf("version = %d", res.Version)
	}
}

func TestAnnotate_SelfAndEngine(t *testing.T) {
	cat := &mockCatalog{}
	cat.set(1, npc("npc-aerith", "Aerith"), npc("npc-barret", "Barret"))
	svc := New(cat, zap.NewNop()).WithEngine(dommention.EngineAutomaton)

	res, err := svc.Annotate(context.Background(), Request{
		Campaign: "c1",
		Text:     "Aerith and Barret",
		SelfID:   "npc-aerith",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "Aerith and [Barret](#entity/npc-barret/npc)" {
		t.Errorf("got %q", res.Text)
	}
}

func TestAnnotate_Validation(t *testing.T) {
	cat := &mockCatalog{}
	svc := New(cat, zap.NewNop()).WithMaxTextBytes(8)

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"too large", Request{Campaign: "c1", Text: "123456789"}, domain.ErrInvalidEntity},
		{"bad self id", Request{Campaign: "c1", Text: "x", SelfID: "a b"}, domain.ErrInvalidID},
		{"bad engine", Request{Campaign: "c1", Text: "x", Engine: "trie"}, domain.ErrInvalidEntity},
		{"bad campaign", Request{Campaign: "", Text: "x"}, domain.ErrInvalidID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Annotate(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestIndex_RebuildsOnlyOnVersionChange(t *testing.T) {
	cat := &mockCatalog{}
	cat.set(1, npc("a", "Aerith"))
	svc := New(cat, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Index(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := svc.Index(ctx, "c1")
	if first != second || cat.lists() != 1 {
		t.Fatalf("expected cached index, lists = %d", cat.lists())
	}

	cat.set(2, npc("a", "Aerith"), npc("b", "Barret"))
	third, _ := svc.Index(ctx, "c1")
	if third == first || third.Version() != 2 || third.Len() != 2 {
		t.Errorf("expected rebuilt index, got version %d len %d", third.Version(), third.Len())
	}
	if cat.lists() != 2 {
		t.Errorf("lists = %d", cat.lists())
	}
}

func TestIndex_ConcurrentCallersBuildOnce(t *testing.T) {
	cat := &mockCatalog{}
	cat.set(5, npc("a", "Aerith"))
	svc := New(cat, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Index(context.Background(), "c1"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if cat.lists() != 1 {
		t.Errorf("lists = %d, want 1", cat.lists())
	}
}

func TestIndex_Invalidate(t *testing.T) {
	cat := &mockCatalog{}
	cat.set(1, npc("a", "Aerith"))
	svc := New(cat, zap.NewNop())

	_, _ = svc.Index(context.Background(), "c1")
	svc.Invalidate("c1")
	_, _ = svc.Index(context.Background(), "c1")
	if cat.lists() != 2 {
		t.Errorf("lists = %d", cat.lists())
	}
}

func TestIndex_CatalogErrors(t *testing.T) {
	boom := errors.New("boom")

	cat := &mockCatalog{versionErr: boom}
	if _, err := New(cat, nil).Index(context.Background(), "c1"); !errors.Is(err, boom) {
		t.Errorf("version err = %v", err)
	}

	before := testutil.ToFloat64(metrics.IndexBuildsTotal.WithLabelValues("error"))
	cat = &mockCatalog{listErr: boom}
	if _, err := New(cat, nil).Index(context.Background(), "c1"); !errors.Is(err, boom) {
		t.Errorf("list err = %v", err)
	}
	if after := testutil.ToFloat64(metrics.IndexBuildsTotal.WithLabelValues("error")); after != before+1 {
		t.Errorf("error builds = %v, want %v", after, before+1)
	}
}

func TestIndex_LogsDuplicates(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cat := &mockCatalog{}
	cat.set(1, npc("a", "Aerith"), npc("b", "aerith"))
	svc := New(cat, zap.New(core))

	if _, err := svc.Index(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterField(zap.String("term", "aerith")).All()
	if len(entries) != 1 {
		t.Fatalf("got %d duplicate warnings", len(entries))
	}

	// Cached index does not warn again.
	_, _ = svc.Index(context.Background(), "c1")
	if logs.Len() != 1 {
		t.Errorf("warnings = %d", logs.Len())
	}
}

func TestIndex_CountsSkipped(t *testing.T) {
	before := testutil.ToFloat64(metrics.IndexSkippedRecordsTotal)
	cat := &mockCatalog{}
	cat.set(1, npc("a", "Aerith"), npc("b", "X"), npc("", "Nameless"))
	if _, err := New(cat, nil).Index(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if after := testutil.ToFloat64(metrics.IndexSkippedRecordsTotal); after != before+2 {
		t.Errorf("skipped = %v, want %v", after, before+2)
	}
}

func TestAnnotate_Cache(t *testing.T) {
	cat := &mockCatalog{}
	cat.set(1, npc("a", "Aerith"))
	cache := newMockCache()
	svc := New(cat, zap.NewNop()).WithCache(cache)
	ctx := context.Background()
	req := Request{Campaign: "c1", Text: "Aerith"}

	first, _ := svc.Annotate(ctx, req)
	second, _ := svc.Annotate(ctx, req)
	if first != second || cache.puts != 1 || cache.gets != 2 {
		t.Errorf("puts = %d gets = %d", cache.puts, cache.gets)
	}

	// A catalog write changes the version and therefore the key.
	cat.set(2, npc("a", "Aerith Gainsborough"), npc("b", "Aerith"))
	third, _ := svc.Annotate(ctx, req)
	if third.Version != 2 || cache.puts != 2 {
		t.Errorf("version = %d puts = %d", third.Version, cache.puts)
	}
}

func TestAnnotate_CountsMentions(t *testing.T) {
	before := testutil.ToFloat64(metrics.AnnotateMentionsTotal)
	cat := &mockCatalog{}
	cat.set(1, npc("a", "Aerith"), npc("b", "Barret"))
	if _, err := New(cat, nil).Annotate(context.Background(), Request{Campaign: "c1", Text: "Aerith, Barret, Aerith"}); err != nil {
		t.Fatal(err)
	}
	if after := testutil.ToFloat64(metrics.AnnotateMentionsTotal); after != before+3 {
		t.Errorf("mentions = %v, want %v", after, before+3)
	}
}
