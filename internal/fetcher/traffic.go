package fetcher

import (
	"context"

	"github.com/Zachdehooge/grid-dashboard/internal/incident"
)

// FetchIncidents retrieves and ingests the incident feed. On a shape
// mismatch the (empty) list is returned together with the error.
func (c *Client) FetchIncidents(ctx context.Context, url string) ([]incident.Record, error) {
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, err
	}
	return incident.Decode(body)
}

// FetchCameras retrieves the camera feed used for nearest-camera lookup.
func (c *Client) FetchCameras(ctx context.Context, url string) ([]incident.POI, error) {
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, err
	}
	return incident.DecodePOIs(body)
}
