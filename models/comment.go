package models

import "time"

// DeletedCommentPlaceholder replaces the content of soft-deleted comments
// before they reach the client.
const DeletedCommentPlaceholder = "삭제된 댓글입니다."

// Comment mirrors the backend comment resource. Deleted comments stay in the
// list with IsDeleted set; their content is replaced gateway-side.
type Comment struct {
	ID        int64      `json:"id"`
	Author    PostAuthor `json:"author"`
	Content   string     `json:"content"`
	IsAuthor  bool       `json:"isAuthor"`
	IsDeleted bool       `json:"isDeleted"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CommentPage is one cursor page of comments.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	Count      int       `json:"count"`
	HasNext    bool      `json:"hasNext"`
	NextCursor *string   `json:"nextCursor"`
}
