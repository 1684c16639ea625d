package mention

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
	dommention "github.com/kailas-cloud/lorelink/internal/domain/mention"
	"github.com/kailas-cloud/lorelink/internal/metrics"
)

// DefaultMaxTextBytes bounds the text accepted by Annotate.
const DefaultMaxTextBytes = 262144

// Request is one annotation call.
type Request struct {
	Campaign string
	Text     string
	// SelfID is the entity whose page displays the text; its own name is left unlinked.
	SelfID string
	// Engine overrides the service default when set.
	Engine dommention.Engine
}

// Result is the annotated text and the catalog version it was produced against.
type Result struct {
	Text    string
	Version int64
}

// Service keeps one entity index per campaign and annotates text against it.
// An index is rebuilt only when the catalog version moves.
type Service struct {
	catalog      Catalog
	cache        TextCache
	engine       dommention.Engine
	maxTextBytes int
	logger       *zap.Logger

	mu      sync.RWMutex
	indexes map[string]*dommention.Index

	buildMu sync.Mutex
	builds  map[string]*sync.Mutex
}

// New creates a mention service with the regexp engine and no annotation cache.
func New(catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:      catalog,
		engine:       dommention.EngineRegexp,
		maxTextBytes: DefaultMaxTextBytes,
		logger:       logger,
		indexes:      make(map[string]*dommention.Index),
		builds:       make(map[string]*sync.Mutex),
	}
}

// WithEngine sets the default scan engine. Unknown engines are ignored.
func (s *Service) WithEngine(e dommention.Engine) *Service {
	if e.IsValid() {
		s.engine = e
	}
	return s
}

// WithCache enables the annotation cache.
func (s *Service) WithCache(c TextCache) *Service {
	s.cache = c
	return s
}

// WithMaxTextBytes bounds accepted text size.
func (s *Service) WithMaxTextBytes(n int) *Service {
	if n > 0 {
		s.maxTextBytes = n
	}
	return s
}

// Index returns the campaign's current index, rebuilding it if the catalog changed.
func (s *Service) Index(ctx context.Context, campaign string) (*dommention.Index, error) {
	if err := domentity.ValidateID(campaign); err != nil {
		return nil, fmt.Errorf("campaign: %w: %w", domain.ErrInvalidID, err)
	}

	version, err := s.catalog.Version(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("get catalog version: %w", err)
	}
	if idx := s.cached(campaign); idx != nil && idx.Version() == version {
		return idx, nil
	}

	lock := s.buildLock(campaign)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have finished the rebuild while we waited.
	version, err = s.catalog.Version(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("get catalog version: %w", err)
	}
	if idx := s.cached(campaign); idx != nil && idx.Version() == version {
		return idx, nil
	}

	return s.rebuild(ctx, campaign, version)
}

// Annotate rewrites entity mentions in req.Text into references.
// Scanner failures fall back to the original text.
func (s *Service) Annotate(ctx context.Context, req Request) (Result, error) {
	if len(req.Text) > s.maxTextBytes {
		return Result{}, fmt.Errorf("text exceeds %d bytes: %w", s.maxTextBytes, domain.ErrInvalidEntity)
	}
	if req.SelfID != "" {
		if err := domentity.ValidateID(req.SelfID); err != nil {
			return Result{}, fmt.Errorf("self id: %w: %w", domain.ErrInvalidID, err)
		}
	}
	engine := s.engine
	if req.Engine != "" {
		if !req.Engine.IsValid() {
			return Result{}, fmt.Errorf("unknown engine %q: %w", req.Engine, domain.ErrInvalidEntity)
		}
		engine = req.Engine
	}

	idx, err := s.Index(ctx, req.Campaign)
	if err != nil {
		return Result{}, err
	}
	version := idx.Version()

	cacheKey := []string{req.Campaign, strconv.FormatInt(version, 10), string(engine), req.SelfID, req.Text}
	if s.cache != nil {
		if text, ok := s.cache.Get(ctx, cacheKey...); ok {
			return Result{Text: text, Version: version}, nil
		}
	}

	start := time.Now()
	res, err := dommention.Rewrite(req.Text, idx, dommention.WithEngine(engine), dommention.WithSelf(req.SelfID))
	metrics.AnnotateDuration.WithLabelValues(string(engine)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AnnotateFailOpenTotal.Inc()
		s.logger.Warn("Annotation failed, returning original text",
			zap.String("campaign", req.Campaign),
			zap.String("engine", string(engine)),
			zap.Int("text_bytes", len(req.Text)),
			zap.Error(err),
		)
		return Result{Text: req.Text, Version: version}, nil
	}
	metrics.AnnotateMentionsTotal.Add(float64(res.Mentions))

	if s.cache != nil {
		s.cache.Put(ctx, res.Text, cacheKey...)
	}
	return Result{Text: res.Text, Version: version}, nil
}

// Invalidate drops the cached index of a campaign.
func (s *Service) Invalidate(campaign string) {
	s.mu.Lock()
	delete(s.indexes, campaign)
	s.mu.Unlock()
}

func (s *Service) rebuild(ctx context.Context, campaign string, version int64) (*dommention.Index, error) {
	start := time.Now()
	records, err := s.catalog.List(ctx, campaign)
	if err != nil {
		metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	idx := dommention.Build(records, version)

	metrics.IndexBuildsTotal.WithLabelValues("ok").Inc()
	metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	if idx.Skipped() > 0 {
		metrics.IndexSkippedRecordsTotal.Add(float64(idx.Skipped()))
	}

	for _, d := range idx.Duplicates() {
		s.logger.Warn("Entity name shared by several entities, first one wins",
			zap.String("campaign", campaign),
			zap.String("term", d.Term),
			zap.Strings("entity_ids", d.EntityIDs),
		)
	}
	s.logger.Debug("Entity index rebuilt",
		zap.String("campaign", campaign),
		zap.Int64("version", version),
		zap.Int("tokens", idx.Len()),
		zap.Int("skipped", idx.Skipped()),
	)

	s.mu.Lock()
	s.indexes[campaign] = idx
	s.mu.Unlock()
	return idx, nil
}

func (s *Service) cached(campaign string) *dommention.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexes[campaign]
}

func (s *Service) buildLock(campaign string) *sync.Mutex {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	l, ok := s.builds[campaign]
	if !ok {
		l = &sync.Mutex{}
		s.builds[campaign] = l
	}
	return l
}
