package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/lorelink/pkg/client"
)

var errNoCampaign = errors.New("campaign is required")

// RemoteSource reads one campaign from a lorelink server.
type RemoteSource struct {
	client   *client.Client
	campaign string
}

// NewRemote creates a source over c.
func NewRemote(c *client.Client, campaign string) (*RemoteSource, error) {
	if campaign == "" {
		return nil, errNoCampaign
	}
	return &RemoteSource{client: c, campaign: campaign}, nil
}

// Page implements Source.
func (s *RemoteSource) Page(ctx context.Context, entityID string) (Page, error) {
	e, err := s.client.GetEntity(ctx, s.campaign, entityID)
	if err != nil {
		return Page{}, fmt.Errorf("get entity: %w", err)
	}
	p, err := s.client.Preview(ctx, s.campaign, e.Type, e.ID)
	if err != nil {
		return Page{}, fmt.Errorf("get page: %w", err)
	}
	return Page{ID: p.ID, Title: p.Name, Type: p.Type, Text: p.Description}, nil
}

// Preview implements Source.
func (s *RemoteSource) Preview(ctx context.Context, entityType, entityID string) (Preview, error) {
	p, err := s.client.Preview(ctx, s.campaign, entityType, entityID)
	if err != nil {
		return Preview{}, fmt.Errorf("get preview: %w", err)
	}
	return Preview(p), nil
}

// Annotate implements Source.
func (s *RemoteSource) Annotate(ctx context.Context, text string) (string, error) {
	a, err := s.client.Annotate(ctx, s.campaign, text, "")
	if err != nil {
		return "", fmt.Errorf("annotate: %w", err)
	}
	return a.Text, nil
}
