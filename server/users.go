package server

import (
	"anoo/client"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
)

// Signup proxies account creation, relaying the backend's session cookie.
func (s *Server) Signup(c *fiber.Ctx) error {
	var input client.SignupInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	var cookies []string
	ctx := client.CaptureSetCookies(session(c), &cookies)

	user, err := s.api.Signup(ctx, input)
	if err != nil {
		return respondError(c, err)
	}

	relaySetCookies(c, cookies)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": user})
}

// Login proxies authentication, relaying the backend's session cookie.
func (s *Server) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	var cookies []string
	ctx := client.CaptureSetCookies(session(c), &cookies)

	user, err := s.api.Login(ctx, body.Email, body.Password)
	if err != nil {
		return respondError(c, err)
	}

	relaySetCookies(c, cookies)
	return c.JSON(fiber.Map{"data": user})
}

// Logout proxies session invalidation, relaying the cookie clear.
func (s *Server) Logout(c *fiber.Ctx) error {
	var cookies []string
	ctx := client.CaptureSetCookies(session(c), &cookies)

	if err := s.api.Logout(ctx); err != nil {
		return respondError(c, err)
	}

	relaySetCookies(c, cookies)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GetCurrentUser proxies the signed-in account; signed-out callers get a
// null payload, not an error.
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.api.GetCurrentUser(session(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": user})
}

// UpdateProfile proxies nickname/profile image changes.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var body struct {
		Nickname        string `json:"nickname"`
		ProfileImageURL string `json:"profileImageUrl"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.api.UpdateProfile(session(c), body.Nickname, body.ProfileImageURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": user})
}

// ChangePassword proxies a password rotation.
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.api.ChangePassword(session(c), body.CurrentPassword, body.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// DeleteAccount proxies account removal.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.api.DeleteAccount(session(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted"})
}

// SubmitFeedback proxies feedback submission.
func (s *Server) SubmitFeedback(c *fiber.Ctx) error {
	var body struct {
		Content string `json:"content"`
		Email   string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	if err := s.api.SubmitFeedback(session(c), body.Content, body.Email); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Feedback received"})
}

func relaySetCookies(c *fiber.Ctx, cookies []string) {
	for _, cookie := range cookies {
		c.Response().Header.Add(fiber.HeaderSetCookie, cookie)
	}
}
