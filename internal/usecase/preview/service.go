package preview

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain"
	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
	"github.com/kailas-cloud/lorelink/internal/usecase/mention"
)

// DefaultMaxDescriptionChars is the description length above which a summary is requested.
const DefaultMaxDescriptionChars = 600

// Preview is the data painted inside a preview surface.
type Preview struct {
	ID          string
	Name        string
	Type        domentity.Type
	Description string
	Summary     string
	Attributes  map[string]string
	IconURL     string
}

// Service assembles preview data for one entity.
type Service struct {
	entities   EntityReader
	annotator  Annotator
	summarizer domain.Summarizer
	maxChars   int
	logger     *zap.Logger
}

// New creates a preview service. annotator may be nil, in which case descriptions stay raw.
func New(entities EntityReader, annotator Annotator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		entities:  entities,
		annotator: annotator,
		maxChars:  DefaultMaxDescriptionChars,
		logger:    logger,
	}
}

// WithSummarizer enables summaries for descriptions longer than maxChars runes.
func (s *Service) WithSummarizer(sum domain.Summarizer, maxChars int) *Service {
	s.summarizer = sum
	if maxChars > 0 {
		s.maxChars = maxChars
	}
	return s
}

// GetPreviewData returns the preview for an entity. Identifiers are validated
// before storage is touched; an entity stored under another type is a mismatch.
func (s *Service) GetPreviewData(
	ctx context.Context, campaign, entityID string, entityType domentity.Type,
) (Preview, error) {
	if err := domentity.ValidateID(campaign); err != nil {
		return Preview{}, fmt.Errorf("campaign: %w: %w", domain.ErrInvalidID, err)
	}
	if err := domentity.ValidateID(entityID); err != nil {
		return Preview{}, fmt.Errorf("entity id: %w: %w", domain.ErrInvalidID, err)
	}
	if !entityType.IsValid() {
		return Preview{}, fmt.Errorf("entity type %q: %w", entityType, domain.ErrInvalidID)
	}

	rec, err := s.entities.Get(ctx, campaign, entityID)
	if err != nil {
		return Preview{}, fmt.Errorf("get entity: %w", err)
	}
	if rec.Type() != entityType {
		return Preview{}, domain.NewTypeMismatch(string(entityType), string(rec.Type()))
	}

	p := Preview{
		ID:          rec.ID(),
		Name:        rec.Name(),
		Type:        rec.Type(),
		Description: s.annotate(ctx, campaign, rec),
		Attributes:  domentity.UnwrapAll(rec.Attributes()),
		IconURL:     rec.IconURL(),
	}
	p.Summary = s.summarize(ctx, campaign, rec)
	return p, nil
}

func (s *Service) annotate(ctx context.Context, campaign string, rec domentity.Record) string {
	if s.annotator == nil || rec.Description() == "" {
		return rec.Description()
	}
	res, err := s.annotator.Annotate(ctx, mention.Request{
		Campaign: campaign,
		Text:     rec.Description(),
		SelfID:   rec.ID(),
	})
	if err != nil {
		s.logger.Warn("Failed to annotate preview description",
			zap.String("campaign", campaign),
			zap.String("entity_id", rec.ID()),
			zap.Error(err),
		)
		return rec.Description()
	}
	return res.Text
}

func (s *Service) summarize(ctx context.Context, campaign string, rec domentity.Record) string {
	if s.summarizer == nil || utf8.RuneCountInString(rec.Description()) <= s.maxChars {
		return ""
	}
	summary, err := s.summarizer.Summarize(ctx, rec.Description())
	if err != nil {
		s.logger.Warn("Summarizer failed, preview served without summary",
			zap.String("campaign", campaign),
			zap.String("entity_id", rec.ID()),
			zap.Error(err),
		)
		return ""
	}
	return summary
}
