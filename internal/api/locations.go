package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/vbonduro/hondadog/internal/domain"
)

func (c *Client) ListLocations(ctx context.Context, skip, limit int) ([]*domain.Location, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var out []*domain.Location
	if err := c.getJSON(ctx, "list_locations", "locations/", q, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetLocation(ctx context.Context, id int64) (*domain.Location, error) {
	var out domain.Location
	if err := c.getJSON(ctx, "get_location", idPath("locations", id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLocationImage returns the URL of the location's photo.
func (c *Client) GetLocationImage(ctx context.Context, id int64) (string, error) {
	var out imageResponse
	if err := c.getJSON(ctx, "get_location_image", idPath("locations", id, "image"), nil, "", &out); err != nil {
		return "", err
	}
	return out.ImageURL, nil
}
