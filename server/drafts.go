package server

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"anoo/cache"
	"anoo/middleware"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
)

const draftTTL = 7 * 24 * time.Hour

// DraftStore holds one recoverable write-page draft per device. Keying by
// the device identity instead of per-tab browser storage means concurrent
// tabs share one draft instead of silently clobbering separate ones.
type DraftStore interface {
	Save(ctx context.Context, deviceID string, draft models.Draft) error
	Get(ctx context.Context, deviceID string) (*models.Draft, error)
	Clear(ctx context.Context, deviceID string) error
}

type redisDraftStore struct{}

func newRedisDraftStore() DraftStore {
	return redisDraftStore{}
}

func draftKey(deviceID string) string {
	return "draft:" + deviceID
}

func (redisDraftStore) Save(ctx context.Context, deviceID string, draft models.Draft) error {
	return cache.SetJSON(ctx, draftKey(deviceID), draft, draftTTL)
}

func (redisDraftStore) Get(ctx context.Context, deviceID string) (*models.Draft, error) {
	var draft models.Draft
	found, err := cache.GetJSON(ctx, draftKey(deviceID), &draft)
	if err != nil || !found {
		return nil, err
	}
	return &draft, nil
}

func (redisDraftStore) Clear(ctx context.Context, deviceID string) error {
	return cache.Delete(ctx, draftKey(deviceID))
}

// GetDraft returns the device's saved draft, null when none exists.
func (s *Server) GetDraft(c *fiber.Ctx) error {
	did := deviceID(c)
	if did == "" {
		return c.JSON(fiber.Map{"data": nil})
	}

	draft, err := s.drafts.Get(c.Context(), did)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"data": draft})
}

// SaveDraft stores the device's draft. Drafts may be shorter than the post
// minimums (they are unfinished by definition) but never longer than the
// maximums.
func (s *Server) SaveDraft(c *fiber.Ctx) error {
	did := deviceID(c)
	if did == "" {
		return respondError(c, models.NewValidationError("device identity unavailable"))
	}

	var body struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" && strings.TrimSpace(body.Content) == "" {
		return respondError(c, models.NewValidationError("draft is empty"))
	}
	if utf8.RuneCountInString(body.Title) > 26 {
		return respondError(c, models.NewValidationError("title must be at most 26 characters"))
	}
	if utf8.RuneCountInString(body.Content) > 10000 {
		return respondError(c, models.NewValidationError("content must be at most 10000 characters"))
	}

	draft := models.Draft{
		Title:   body.Title,
		Content: body.Content,
		SavedAt: time.Now().UTC(),
	}
	if err := s.drafts.Save(c.Context(), did, draft); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"data": draft})
}

// ClearDraft discards the device's draft.
func (s *Server) ClearDraft(c *fiber.Ctx) error {
	did := deviceID(c)
	if did == "" {
		return c.JSON(fiber.Map{"message": "Draft cleared"})
	}
	if err := s.drafts.Clear(c.Context(), did); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "Draft cleared"})
}

func deviceID(c *fiber.Ctx) string {
	if did, ok := c.Locals(middleware.DeviceIDKey).(string); ok {
		return did
	}
	return ""
}
