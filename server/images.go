package server

import (
	"anoo/client"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
)

// RegisterImage proxies one image metadata registration.
func (s *Server) RegisterImage(c *fiber.Ctx) error {
	var meta client.ImageMetadata
	if err := c.BodyParser(&meta); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	id, err := s.api.RegisterImage(session(c), meta)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"imageId": id},
	})
}

// batchImageResult is one slot of a batch registration response. A failed
// slot carries its error; the write page drops just that image's preview.
type batchImageResult struct {
	ImageID int64  `json:"imageId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterImages registers several images' metadata concurrently. One
// failure never blocks the others.
func (s *Server) RegisterImages(c *fiber.Ctx) error {
	var body struct {
		Images []client.ImageMetadata `json:"images"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if len(body.Images) == 0 {
		return respondError(c, models.NewValidationError("images is required"))
	}
	if len(body.Images) > 10 {
		return respondError(c, models.NewValidationError("at most 10 images per batch"))
	}

	results := s.api.RegisterImages(session(c), body.Images)

	out := make([]batchImageResult, len(results))
	for i, r := range results {
		if r.Err != nil {
			out[i] = batchImageResult{Error: r.Err.Error()}
			continue
		}
		out[i] = batchImageResult{ImageID: r.ImageID}
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"results": out}})
}
