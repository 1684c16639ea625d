// Package client is a Go client for the lorelink HTTP API.
//
//	c, _ := client.New("http://localhost:8080", client.WithAPIKey(key))
//	_, _ = c.UpsertEntity(ctx, "ashes", client.Entity{
//	    ID:   "npc-aerith",
//	    Name: "Aerith",
//	    Type: "npc",
//	})
//	text, _ := c.Annotate(ctx, "ashes", "Aerith waits by the gate.", "")
//	p, _ := c.Preview(ctx, "ashes", "npc", "npc-aerith")
//
// Errors returned for non-2xx responses are *APIError and match the
// package sentinels with errors.Is.
package client
