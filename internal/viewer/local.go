package viewer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/lorelink/internal/db/sqlite"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
	dommention "github.com/kailas-cloud/lorelink/internal/domain/mention"
	entityrepo "github.com/kailas-cloud/lorelink/internal/repository/entity"
	cataloguc "github.com/kailas-cloud/lorelink/internal/usecase/catalog"
	mentionuc "github.com/kailas-cloud/lorelink/internal/usecase/mention"
	previewuc "github.com/kailas-cloud/lorelink/internal/usecase/preview"
)

// CatalogFile is the YAML layout of a local catalog.
type CatalogFile struct {
	Campaign string          `yaml:"campaign"`
	Entities []CatalogEntity `yaml:"entities"`
}

// CatalogEntity is one record of a CatalogFile. Attribute values may be
// strings, numbers, {value: ...} objects or lists of those.
type CatalogEntity struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	IconURL     string         `yaml:"icon_url"`
	Description string         `yaml:"description"`
	Attributes  map[string]any `yaml:"attributes"`
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (string, []domentity.Record, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var f CatalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if f.Campaign == "" {
		f.Campaign = "local"
	}
	if err := domentity.ValidateID(f.Campaign); err != nil {
		return "", nil, fmt.Errorf("campaign: %w", err)
	}

	recs := make([]domentity.Record, 0, len(f.Entities))
	for i, e := range f.Entities {
		attrs := make(map[string]domentity.AttributeValue, len(e.Attributes))
		for k, raw := range e.Attributes {
			v, err := domentity.ParseAttributeValue(raw)
			if err != nil {
				return "", nil, fmt.Errorf("entity %d (%s) attribute %q: %w", i, e.ID, k, err)
			}
			attrs[k] = v
		}
		rec, err := domentity.New(e.ID, e.Name, domentity.Type(e.Type), e.IconURL, e.Description, attrs)
		if err != nil {
			return "", nil, fmt.Errorf("entity %d (%s): %w", i, e.ID, err)
		}
		recs = append(recs, rec)
	}
	return f.Campaign, recs, nil
}

// LocalSource serves a catalog file through the same use cases as the
// server, over an in-memory sqlite database.
type LocalSource struct {
	campaign string
	db       *sql.DB
	catalog  *cataloguc.Service
	mentions *mentionuc.Service
	previews *previewuc.Service
}

// OpenLocal loads the catalog at path.
func OpenLocal(ctx context.Context, path string, logger *zap.Logger) (*LocalSource, error) {
	campaign, recs, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(":memory:")
	if err != nil {
		return nil, err
	}

	repo := entityrepo.NewSQL(db)
	s := &LocalSource{
		campaign: campaign,
		db:       db,
		catalog:  cataloguc.New(repo).WithMaxBatchSize(len(recs) + 1),
		mentions: mentionuc.New(repo, logger),
	}
	s.previews = previewuc.New(repo, s.mentions, logger)

	if len(recs) > 0 {
		items := make([]cataloguc.Item, len(recs))
		for i, r := range recs {
			items[i] = cataloguc.Item{ID: r.ID(), Record: r}
		}
		for _, res := range s.catalog.BatchUpsert(ctx, campaign, items) {
			if !res.OK() {
				_ = db.Close()
				return nil, fmt.Errorf("load %s: %w", res.EntityID(), res.Err())
			}
		}
	}
	return s, nil
}

// Close releases the database.
func (s *LocalSource) Close() error {
	return s.db.Close()
}

// Campaign returns the campaign named in the catalog file.
func (s *LocalSource) Campaign() string { return s.campaign }

// Duplicates lists names shared by more than one entity.
func (s *LocalSource) Duplicates(ctx context.Context) ([]dommention.Duplicate, error) {
	idx, err := s.mentions.Index(ctx, s.campaign)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx.Duplicates(), nil
}

// FirstEntityID returns the first entity id in catalog order, or "" if the catalog is empty.
func (s *LocalSource) FirstEntityID(ctx context.Context) (string, error) {
	recs, err := s.catalog.List(ctx, s.campaign, "")
	if err != nil {
		return "", fmt.Errorf("list entities: %w", err)
	}
	if len(recs) == 0 {
		return "", nil
	}
	return recs[0].ID(), nil
}

// Page implements Source.
func (s *LocalSource) Page(ctx context.Context, entityID string) (Page, error) {
	rec, err := s.catalog.Get(ctx, s.campaign, entityID)
	if err != nil {
		return Page{}, fmt.Errorf("get entity: %w", err)
	}
	p, err := s.previews.GetPreviewData(ctx, s.campaign, rec.ID(), rec.Type())
	if err != nil {
		return Page{}, fmt.Errorf("get page: %w", err)
	}
	return Page{ID: p.ID, Title: p.Name, Type: string(p.Type), Text: p.Description}, nil
}

// Preview implements Source.
func (s *LocalSource) Preview(ctx context.Context, entityType, entityID string) (Preview, error) {
	p, err := s.previews.GetPreviewData(ctx, s.campaign, entityID, domentity.Type(entityType))
	if err != nil {
		return Preview{}, fmt.Errorf("get preview: %w", err)
	}
	return Preview{
		ID:          p.ID,
		Name:        p.Name,
		Type:        string(p.Type),
		Description: p.Description,
		Summary:     p.Summary,
		Attributes:  p.Attributes,
		IconURL:     p.IconURL,
	}, nil
}

// Annotate implements Source.
func (s *LocalSource) Annotate(ctx context.Context, text string) (string, error) {
	res, err := s.mentions.Annotate(ctx, mentionuc.Request{Campaign: s.campaign, Text: text})
	if err != nil {
		return "", fmt.Errorf("annotate: %w", err)
	}
	return res.Text, nil
}
