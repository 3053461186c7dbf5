package server

import (
	"fmt"
	"time"

	"anoo/cache"
	"anoo/client"
	"anoo/middleware"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const feedCacheTTL = 30 * time.Second

// feedCacheKey clamps the limit the same way the API client does before it
// hits the wire, so equivalent requests share one cache entry.
func feedCacheKey(cursor string, limit int) string {
	return fmt.Sprintf("feed:%s:%d", cursor, client.ClampPageLimit(limit))
}

// GetPosts proxies one feed page. Anonymous requests are served cache-aside;
// signed-in requests bypass the cache because isLiked is per-user.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	cursor := c.Query("cursor")
	limit := c.QueryInt("limit", 0)
	ctx := session(c)

	if !client.HasSession(ctx) {
		var page models.PostPage
		err := cache.CacheAside(c.Context(), feedCacheKey(cursor, limit), &page, feedCacheTTL, func() error {
			p, err := s.api.GetPosts(ctx, cursor, limit)
			if err != nil {
				return err
			}
			page = *p
			return nil
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": page})
	}

	page, err := s.api.GetPosts(ctx, cursor, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": page})
}

// GetMyPosts proxies the signed-in user's post list.
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	page, err := s.api.GetMyPosts(session(c), c.Query("cursor"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": page})
}

// GetPost proxies a single post.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.api.GetPost(session(c), id)
	if err != nil {
		return respondError(c, err)
	}
	if post == nil {
		return respondError(c, models.NewNotFoundError("post", id))
	}
	return c.JSON(fiber.Map{"data": post})
}

// PostView is the post detail page's aggregate payload.
type PostView struct {
	Post     *models.Post        `json:"post"`
	Comments *models.CommentPage `json:"comments"`
}

// GetPostView fetches the post and its first comment page concurrently. The
// comment load degrades to an empty page on failure; the post load does not.
func (s *Server) GetPostView(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx := session(c)
	view := PostView{
		Comments: &models.CommentPage{Comments: []models.Comment{}},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		post, err := s.api.GetPost(client.WithSession(gctx, c.Get("Cookie")), id)
		if err != nil {
			return err
		}
		view.Post = post
		return nil
	})
	g.Go(func() error {
		page, err := s.api.GetComments(client.WithSession(gctx, c.Get("Cookie")), id, "", 0)
		if err != nil {
			// Degrade to the empty page already in place.
			middleware.Logger.Warn("comment load failed", "postID", id, "error", err.Error())
			return nil
		}
		page.Comments = client.ApplyDeletedPlaceholders(page.Comments)
		view.Comments = page
		return nil
	})
	if err := g.Wait(); err != nil {
		return respondError(c, err)
	}
	if view.Post == nil {
		return respondError(c, models.NewNotFoundError("post", id))
	}
	return c.JSON(fiber.Map{"data": view})
}

// CreatePost proxies post creation and clears the device's draft on success.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var input models.CreatePostInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.api.CreatePost(session(c), input)
	if err != nil {
		return respondError(c, err)
	}

	if did, ok := c.Locals(middleware.DeviceIDKey).(string); ok && did != "" {
		_ = s.drafts.Clear(c.Context(), did)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": post})
}

// UpdatePost proxies a post edit.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}

	var input models.UpdatePostInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.api.UpdatePost(session(c), id, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": post})
}

// DeletePost proxies a post deletion.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.api.DeletePost(session(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// LikePost proxies a like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}
	result, err := s.api.LikePost(session(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": result})
}

// UnlikePost proxies an unlike.
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}
	result, err := s.api.UnlikePost(session(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": result})
}

func postID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("post id must be a positive number")
	}
	return int64(id), nil
}
