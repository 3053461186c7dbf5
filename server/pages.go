package server

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// pageRoutes maps clean URLs to static HTML files under PUBLIC_DIR/html.
// The pages themselves are external assets; the gateway only routes them.
var pageRoutes = map[string]string{
	"/":             "feed",
	"/login":        "login",
	"/signup":       "signup",
	"/feed":         "feed",
	"/profile":      "profile",
	"/profile/edit": "profile-edit",
	"/write":        "write",
	"/terms":        "terms",
	"/privacy":      "privacy",
	"/feedback":     "feedback",
	"/onboarding":   "onboarding",
}

func (s *Server) setupPageRoutes(app *fiber.App) {
	for path, page := range pageRoutes {
		app.Get(path, s.servePage(page))
	}
	// Post detail keeps the ID in the URL; the page reads it client-side.
	app.Get("/post/:id", s.servePage("post"))

	// Everything unmatched gets the 404 page without a redirect.
	app.Use(s.NotFound)
}

func (s *Server) servePage(page string) fiber.Handler {
	file := filepath.Join(s.config.PublicDir, "html", page+".html")
	return func(c *fiber.Ctx) error {
		if _, err := os.Stat(file); err != nil {
			return s.NotFound(c)
		}
		return c.SendFile(file)
	}
}

// NotFound serves the 404 page with a 404 status, falling back to JSON when
// the page asset is missing.
func (s *Server) NotFound(c *fiber.Ctx) error {
	file := filepath.Join(s.config.PublicDir, "html", "404.html")
	if _, err := os.Stat(file); err == nil {
		// Status goes last: SendFile resets it to the file-serving result.
		if err := c.SendFile(file); err == nil {
			c.Status(fiber.StatusNotFound)
			return nil
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Not found",
	})
}
