package models

import "time"

// PostAuthor is the anonymized author block attached to posts and comments.
type PostAuthor struct {
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
}

// Post mirrors the backend post resource.
type Post struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Author       PostAuthor `json:"author"`
	Images       []string   `json:"images"`
	LikeCount    int        `json:"likeCount"`
	CommentCount int        `json:"commentCount"`
	ViewCount    int        `json:"viewCount"`
	IsLiked      bool       `json:"isLiked"`
	IsAuthor     bool       `json:"isAuthor"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// PostPage is one cursor page of posts.
type PostPage struct {
	Posts      []Post  `json:"posts"`
	Count      int     `json:"count"`
	HasNext    bool    `json:"hasNext"`
	NextCursor *string `json:"nextCursor"`
}

// CreatePostInput is the payload for creating a post.
type CreatePostInput struct {
	Title             string  `json:"title"`
	Content           string  `json:"content"`
	ImageIDs          []int64 `json:"imageIds,omitempty"`
	PrimaryImageIndex int     `json:"primaryImageIndex"`
}

// UpdatePostInput is the payload for editing a post. Semantics match
// CreatePostInput; all fields are sent in full, not patched.
type UpdatePostInput = CreatePostInput

// LikeResult is the backend response to a like/unlike call.
type LikeResult struct {
	LikeCount int  `json:"likeCount"`
	IsLiked   bool `json:"isLiked"`
}
