package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// ListEntities returns the campaign catalog. entityType filters by type when non-empty.
func (c *Client) ListEntities(ctx context.Context, campaign, entityType string) (list EntityList, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list_entities", start, err) }()

	path := campaignPath(campaign, "entities")
	if entityType != "" {
		path += "?" + url.Values{"type": {entityType}}.Encode()
	}
	_, err = c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

// GetEntity returns one record.
func (c *Client) GetEntity(ctx context.Context, campaign, id string) (e Entity, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get_entity", start, err) }()

	_, err = c.do(ctx, http.MethodGet, campaignPath(campaign, "entities", id), nil, &e)
	return e, err
}

// UpsertEntity creates or replaces a record. Returns true if it was created.
func (c *Client) UpsertEntity(ctx context.Context, campaign string, e Entity) (created bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upsert_entity", start, err) }()

	status, err := c.do(ctx, http.MethodPut, campaignPath(campaign, "entities", e.ID), e, nil,
		http.StatusOK, http.StatusCreated)
	return status == http.StatusCreated, err
}

// DeleteEntity removes a record. Deleting a missing record is ErrNotFound.
func (c *Client) DeleteEntity(ctx context.Context, campaign, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_entity", start, err) }()

	_, err = c.do(ctx, http.MethodDelete, campaignPath(campaign, "entities", id), nil, nil, http.StatusNoContent)
	return err
}

// BatchUpsert creates or replaces many records. Item failures are reported per item.
func (c *Client) BatchUpsert(ctx context.Context, campaign string, items []Entity) (res BatchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("batch_upsert", start, err) }()

	body := struct {
		Items []Entity `json:"items"`
	}{Items: items}
	_, err = c.do(ctx, http.MethodPost, campaignPath(campaign, "entities", "batch"), body, &res)
	return res, err
}

// BatchDelete removes many records. Item failures are reported per item.
func (c *Client) BatchDelete(ctx context.Context, campaign string, ids []string) (res BatchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("batch_delete", start, err) }()

	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	_, err = c.do(ctx, http.MethodPost, campaignPath(campaign, "entities", "batch", "delete"), body, &res)
	return res, err
}
