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
	commentMinLen = 1
	commentMaxLen = 1000
)

// GetComments fetches one cursor page of a post's comments. Soft-deleted
// comments keep their slot; ApplyDeletedPlaceholders rewrites their content
// before the page leaves the gateway.
func (c *Client) GetComments(ctx context.Context, postID int64, cursor string, limit int) (*models.CommentPage, error) {
	if err := validateID("post", postID); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(ClampPageLimit(limit)))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	raw, err := c.get(ctx, fmt.Sprintf("/api/posts/%d/comments", postID), query)
	if err != nil {
		return nil, err
	}

	page := &models.CommentPage{Comments: []models.Comment{}}
	if isNull(raw) {
		return page, nil
	}

	var payload listPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode comment page: %w", err)
	}
	if len(payload.Items) > 0 {
		if err := json.Unmarshal(payload.Items, &page.Comments); err != nil {
			return nil, fmt.Errorf("failed to decode comments: %w", err)
		}
	}
	page.Count = payload.Count
	page.HasNext = payload.HasNext
	page.NextCursor = payload.NextCursor
	return page, nil
}

// CreateComment validates and creates a comment on a post.
func (c *Client) CreateComment(ctx context.Context, postID int64, content string) (*models.Comment, error) {
	if err := validateID("post", postID); err != nil {
		return nil, err
	}
	content, err := normalizeCommentContent(content)
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, fmt.Sprintf("/api/posts/%d/comments", postID),
		map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var comment models.Comment
	if err := json.Unmarshal(raw, &comment); err != nil {
		return nil, fmt.Errorf("failed to decode created comment: %w", err)
	}
	return &comment, nil
}

// UpdateComment validates and edits a comment.
func (c *Client) UpdateComment(ctx context.Context, postID, commentID int64, content string) (*models.Comment, error) {
	if err := validateID("post", postID); err != nil {
		return nil, err
	}
	if err := validateID("comment", commentID); err != nil {
		return nil, err
	}
	content, err := normalizeCommentContent(content)
	if err != nil {
		return nil, err
	}

	raw, err := c.patch(ctx, fmt.Sprintf("/api/posts/%d/comments/%d", postID, commentID),
		map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}

	var comment models.Comment
	if err := json.Unmarshal(raw, &comment); err != nil {
		return nil, fmt.Errorf("failed to decode updated comment: %w", err)
	}
	return &comment, nil
}

// DeleteComment soft-deletes a comment; the backend keeps it in the list
// flagged IsDeleted.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID int64) error {
	if err := validateID("post", postID); err != nil {
		return err
	}
	if err := validateID("comment", commentID); err != nil {
		return err
	}
	_, err := c.del(ctx, fmt.Sprintf("/api/posts/%d/comments/%d", postID, commentID))
	return err
}

// MergeComments appends a page onto an existing comment slice, dropping
// comments whose ID is already present.
func MergeComments(existing []models.Comment, page []models.Comment) []models.Comment {
	seen := make(map[int64]struct{}, len(existing))
	for _, cm := range existing {
		seen[cm.ID] = struct{}{}
	}
	merged := existing
	for _, cm := range page {
		if _, dup := seen[cm.ID]; dup {
			continue
		}
		seen[cm.ID] = struct{}{}
		merged = append(merged, cm)
	}
	return merged
}

// ApplyDeletedPlaceholders rewrites soft-deleted comments' content with the
// standard placeholder.
func ApplyDeletedPlaceholders(comments []models.Comment) []models.Comment {
	for i := range comments {
		if comments[i].IsDeleted {
			comments[i].Content = models.DeletedCommentPlaceholder
		}
	}
	return comments
}

func normalizeCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < commentMinLen || n > commentMaxLen {
		return "", models.NewValidationError(
			fmt.Sprintf("comment must be %d-%d characters", commentMinLen, commentMaxLen))
	}
	return content, nil
}
