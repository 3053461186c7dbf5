package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"anoo/models"
)

const (
	nicknameMinLen = 2
	nicknameMaxLen = 10
	passwordMinLen = 8
	passwordMaxLen = 20
)

// SignupInput is the payload for account creation.
type SignupInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Signup creates an account. Session establishment happens via the backend's
// Set-Cookie, which the gateway relays to the browser.
func (c *Client) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Nickname = strings.TrimSpace(input.Nickname)
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if n := utf8.RuneCountInString(input.Nickname); n < nicknameMinLen || n > nicknameMaxLen {
		return nil, models.NewValidationError(
			fmt.Sprintf("nickname must be %d-%d characters", nicknameMinLen, nicknameMaxLen))
	}

	raw, err := c.post(ctx, "/api/auth/signup", input)
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// Login authenticates against the backend.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, models.NewValidationError("password is required")
	}

	raw, err := c.post(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// Logout invalidates the backend session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, "/api/auth/logout", nil)
	return err
}

func validateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return models.NewValidationError("a valid email is required")
	}
	return nil
}

func validatePassword(password string) error {
	if n := len(password); n < passwordMinLen || n > passwordMaxLen {
		return models.NewValidationError(
			fmt.Sprintf("password must be %d-%d characters", passwordMinLen, passwordMaxLen))
	}
	return nil
}

func decodeUser(raw json.RawMessage) (*models.User, error) {
	if isNull(raw) {
		return nil, nil
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}
