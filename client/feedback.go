package client

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"anoo/models"
)

const (
	feedbackMinLen = 1
	feedbackMaxLen = 1000
)

// SubmitFeedback sends user feedback to the backend. Email is optional and
// only used for follow-up.
func (c *Client) SubmitFeedback(ctx context.Context, content, email string) error {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < feedbackMinLen || n > feedbackMaxLen {
		return models.NewValidationError(
			fmt.Sprintf("feedback must be %d-%d characters", feedbackMinLen, feedbackMaxLen))
	}
	email = strings.TrimSpace(email)
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}

	body := map[string]string{"content": content}
	if email != "" {
		body["email"] = email
	}
	_, err := c.post(ctx, "/api/feedbacks", body)
	return err
}
