package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"anoo/models"
)

// ImageMetadata describes an image already uploaded to S3 via the external
// upload endpoint; the backend only learns the location and assigns an ID.
type ImageMetadata struct {
	URL          string `json:"imageUrl"`
	OriginalName string `json:"originalName,omitempty"`
	Size         int64  `json:"size,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
}

// ImageResult is the outcome of one metadata registration in a batch.
type ImageResult struct {
	ImageID int64
	Err     error
}

// RegisterImage registers an uploaded image with the backend and returns the
// assigned image ID.
func (c *Client) RegisterImage(ctx context.Context, meta ImageMetadata) (int64, error) {
	meta.URL = strings.TrimSpace(meta.URL)
	if meta.URL == "" {
		return 0, models.NewValidationError("imageUrl is required")
	}

	raw, err := c.post(ctx, "/api/images/metadata", meta)
	if err != nil {
		return 0, err
	}
	if isNull(raw) {
		return 0, fmt.Errorf("backend returned no image id")
	}

	var payload struct {
		ImageID int64 `json:"imageId"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("failed to decode image metadata response: %w", err)
	}
	if payload.ImageID <= 0 {
		return 0, fmt.Errorf("backend returned invalid image id %d", payload.ImageID)
	}
	return payload.ImageID, nil
}

// RegisterImages registers a batch concurrently. One failure does not abort
// the rest; each slot of the result carries its own outcome so the caller
// can drop just the failed image.
func (c *Client) RegisterImages(ctx context.Context, metas []ImageMetadata) []ImageResult {
	results := make([]ImageResult, len(metas))

	var wg sync.WaitGroup
	for i, meta := range metas {
		wg.Add(1)
		go func(i int, meta ImageMetadata) {
			defer wg.Done()
			id, err := c.RegisterImage(ctx, meta)
			results[i] = ImageResult{ImageID: id, Err: err}
		}(i, meta)
	}
	wg.Wait()

	return results
}
