package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"anoo/models"
)

const (
	titleMinLen   = 2
	titleMaxLen   = 26
	contentMinLen = 2
	contentMaxLen = 10000

	defaultPageLimit = 10
	maxPageLimit     = 50
)

// listPayload is the backend's cursor page shape shared by all list
// endpoints: {data:{items,count,hasNext,nextCursor}}.
type listPayload struct {
	Items      json.RawMessage `json:"items"`
	Count      int             `json:"count"`
	HasNext    bool            `json:"hasNext"`
	NextCursor *string         `json:"nextCursor"`
}

// GetPosts fetches one page of the public feed. The limit is clamped into
// [1,50]; zero or negative requests get the default page size. A null data
// payload yields an empty page, not an error.
func (c *Client) GetPosts(ctx context.Context, cursor string, limit int) (*models.PostPage, error) {
	return c.getPostPage(ctx, "/api/posts", cursor, limit)
}

// GetMyPosts fetches one page of the signed-in user's posts.
func (c *Client) GetMyPosts(ctx context.Context, cursor string, limit int) (*models.PostPage, error) {
	return c.getPostPage(ctx, "/api/posts/me", cursor, limit)
}

func (c *Client) getPostPage(ctx context.Context, path, cursor string, limit int) (*models.PostPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(ClampPageLimit(limit)))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	raw, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	page := &models.PostPage{Posts: []models.Post{}}
	if isNull(raw) {
		return page, nil
	}

	var payload listPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode post page: %w", err)
	}
	if len(payload.Items) > 0 {
		if err := json.Unmarshal(payload.Items, &page.Posts); err != nil {
			return nil, fmt.Errorf("failed to decode posts: %w", err)
		}
	}
	page.Count = payload.Count
	page.HasNext = payload.HasNext
	page.NextCursor = payload.NextCursor
	return page, nil
}

// GetPost fetches a single post. A null payload yields nil.
func (c *Client) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	if err := validateID("post", id); err != nil {
		return nil, err
	}

	raw, err := c.get(ctx, fmt.Sprintf("/api/posts/%d", id), nil)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var post models.Post
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, fmt.Errorf("failed to decode post: %w", err)
	}
	return &post, nil
}

// CreatePost validates and creates a post.
func (c *Client) CreatePost(ctx context.Context, input models.CreatePostInput) (*models.Post, error) {
	normalized, err := normalizePostInput(input)
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, "/api/posts", normalized)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var post models.Post
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, fmt.Errorf("failed to decode created post: %w", err)
	}
	return &post, nil
}

// UpdatePost validates and edits a post. The full field set is sent.
func (c *Client) UpdatePost(ctx context.Context, id int64, input models.UpdatePostInput) (*models.Post, error) {
	if err := validateID("post", id); err != nil {
		return nil, err
	}
	normalized, err := normalizePostInput(input)
	if err != nil {
		return nil, err
	}

	raw, err := c.patch(ctx, fmt.Sprintf("/api/posts/%d", id), normalized)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var post models.Post
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, fmt.Errorf("failed to decode updated post: %w", err)
	}
	return &post, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	if err := validateID("post", id); err != nil {
		return err
	}
	_, err := c.del(ctx, fmt.Sprintf("/api/posts/%d", id))
	return err
}

// MergePosts appends a page onto an existing feed slice, dropping posts whose
// ID is already present. Infinite scroll can re-deliver boundary items when
// posts are created between page fetches.
func MergePosts(existing []models.Post, page []models.Post) []models.Post {
	seen := make(map[int64]struct{}, len(existing))
	for _, p := range existing {
		seen[p.ID] = struct{}{}
	}
	merged := existing
	for _, p := range page {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}

// normalizePostInput trims, checks lengths and cleans the image ID list.
// Lengths are rune counts, not bytes; titles and bodies are mostly Hangul.
func normalizePostInput(input models.CreatePostInput) (models.CreatePostInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)

	if n := utf8.RuneCountInString(input.Title); n < titleMinLen || n > titleMaxLen {
		return input, models.NewValidationError(
			fmt.Sprintf("title must be %d-%d characters", titleMinLen, titleMaxLen))
	}
	if n := utf8.RuneCountInString(input.Content); n < contentMinLen || n > contentMaxLen {
		return input, models.NewValidationError(
			fmt.Sprintf("content must be %d-%d characters", contentMinLen, contentMaxLen))
	}

	input.ImageIDs = normalizeImageIDs(input.ImageIDs)
	if input.PrimaryImageIndex < 0 || input.PrimaryImageIndex >= len(input.ImageIDs) {
		input.PrimaryImageIndex = 0
	}
	return input, nil
}

// normalizeImageIDs drops non-positive IDs and duplicates, preserving order.
func normalizeImageIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ClampPageLimit normalizes a requested page size into the backend's
// accepted range: zero or negative requests get the default page size.
func ClampPageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func validateID(resource string, id int64) error {
	if id <= 0 {
		return models.NewValidationError(fmt.Sprintf("%s id must be a positive number", resource))
	}
	return nil
}
