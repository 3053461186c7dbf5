package client

import (
	"context"
	"encoding/json"
	"fmt"

	"anoo/models"
)

// LikePost registers the caller's like on a post and returns the updated
// count. Idempotency is the backend's concern.
func (c *Client) LikePost(ctx context.Context, postID int64) (*models.LikeResult, error) {
	if err := validateID("post", postID); err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, fmt.Sprintf("/api/posts/%d/likes", postID), nil)
	if err != nil {
		return nil, err
	}
	return decodeLikeResult(raw)
}

// UnlikePost removes the caller's like on a post.
func (c *Client) UnlikePost(ctx context.Context, postID int64) (*models.LikeResult, error) {
	if err := validateID("post", postID); err != nil {
		return nil, err
	}
	raw, err := c.del(ctx, fmt.Sprintf("/api/posts/%d/likes", postID))
	if err != nil {
		return nil, err
	}
	return decodeLikeResult(raw)
}

func decodeLikeResult(raw json.RawMessage) (*models.LikeResult, error) {
	if isNull(raw) {
		return nil, nil
	}
	var result models.LikeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode like result: %w", err)
	}
	return &result, nil
}
