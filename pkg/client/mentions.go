package client

import (
	"context"
	"net/http"
	"time"
)

// Index returns the campaign's current entity index.
func (c *Client) Index(ctx context.Context, campaign string) (idx Index, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index", start, err) }()

	_, err = c.do(ctx, http.MethodGet, campaignPath(campaign, "index"), nil, &idx)
	return idx, err
}

// Annotate links entity mentions in text. selfID, when set, names the entity
// whose page shows the text; its own name stays unlinked.
func (c *Client) Annotate(ctx context.Context, campaign, text, selfID string) (a Annotation, err error) {
	start := time.Now()
	defer func() { c.obs.observe("annotate", start, err) }()

	body := struct {
		Text   string `json:"text"`
		SelfID string `json:"self_id,omitempty"`
	}{Text: text, SelfID: selfID}
	_, err = c.do(ctx, http.MethodPost, campaignPath(campaign, "annotate"), body, &a)
	return a, err
}

// Preview returns the preview data of an entity.
// An entity stored under another type is ErrTypeMismatch.
func (c *Client) Preview(ctx context.Context, campaign, entityType, entityID string) (p Preview, err error) {
	start := time.Now()
	defer func() { c.obs.observe("preview", start, err) }()

	_, err = c.do(ctx, http.MethodGet, campaignPath(campaign, "preview", entityType, entityID), nil, &p)
	return p, err
}
