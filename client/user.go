package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"anoo/models"
)

// GetCurrentUser fetches the signed-in account. A 401 means "not signed in"
// and yields (nil, nil); pages render their signed-out state from that.
func (c *Client) GetCurrentUser(ctx context.Context) (*models.User, error) {
	raw, err := c.get(ctx, "/api/users/me", nil)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Status == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	return decodeUser(raw)
}

// UpdateProfile changes nickname and/or profile image.
func (c *Client) UpdateProfile(ctx context.Context, nickname, profileImageURL string) (*models.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname != "" {
		if n := utf8.RuneCountInString(nickname); n < nicknameMinLen || n > nicknameMaxLen {
			return nil, models.NewValidationError("nickname must be 2-10 characters")
		}
	}
	if nickname == "" && profileImageURL == "" {
		return nil, models.NewValidationError("nothing to update")
	}

	body := map[string]string{}
	if nickname != "" {
		body["nickname"] = nickname
	}
	if profileImageURL != "" {
		body["profileImageUrl"] = profileImageURL
	}

	raw, err := c.patch(ctx, "/api/users/me", body)
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// ChangePassword rotates the account password.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return models.NewValidationError("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	_, err := c.patch(ctx, "/api/users/me/password", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	})
	return err
}

// DeleteAccount removes the signed-in account.
func (c *Client) DeleteAccount(ctx context.Context) error {
	_, err := c.del(ctx, "/api/users/me")
	return err
}
