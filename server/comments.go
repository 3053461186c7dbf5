package server

import (
	"anoo/client"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
)

// GetComments proxies one cursor page of a post's comments, with the
// soft-delete placeholder applied.
func (s *Server) GetComments(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.api.GetComments(session(c), id, c.Query("cursor"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	page.Comments = client.ApplyDeletedPlaceholders(page.Comments)
	return c.JSON(fiber.Map{"data": page})
}

// CreateComment proxies comment creation.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.api.CreateComment(session(c), id, body.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": comment})
}

// UpdateComment proxies a comment edit.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}
	commentID, err := commentIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.api.UpdateComment(session(c), id, commentID, body.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": comment})
}

// DeleteComment proxies a comment soft-delete.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return respondError(c, err)
	}
	commentID, err := commentIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := s.api.DeleteComment(session(c), id, commentID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}

func commentIDParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("commentId")
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("comment id must be a positive number")
	}
	return int64(id), nil
}
