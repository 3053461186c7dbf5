// Package gemini wraps the two generative endpoints the AI profile-image
// feature depends on: a text model that writes the image prompt and an image
// model that renders it. Orchestration is strictly linear with no retries;
// each upstream failure maps to one gateway error code.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	promptModel = "gemini-2.0-flash"
	imageModel  = "gemini-2.0-flash-preview-image-generation"
)

// APIError is a non-2xx answer from the generative API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini returned status %d", e.Status)
	}
	return fmt.Sprintf("gemini returned status %d: %s", e.Status, e.Message)
}

// ErrEmptyResponse means the model answered but produced no usable part,
// typically a safety block.
var ErrEmptyResponse = fmt.Errorf("gemini returned no usable content")

// Client calls the generative API. The key is read once from configuration
// at startup and never reaches the browser.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New creates a generative API client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 60 * time.Second,
		}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// Configured reports whether an API key is present. The gateway boots
// without one; only the AI routes are disabled.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GeneratedImage is the rendered image returned inline by the image model.
type GeneratedImage struct {
	MimeType string
	Data     string // base64
}

// GeneratePrompt asks the text model to write an image prompt. The reference
// image, when present, is passed inline so the prompt describes the subject.
func (c *Client) GeneratePrompt(ctx context.Context, instruction, imageBase64, imageMime string) (string, error) {
	parts := []map[string]any{{"text": instruction}}
	if imageBase64 != "" {
		parts = append(parts, inlinePart(imageBase64, imageMime))
	}

	body := map[string]any{
		"contents": []map[string]any{{"parts": parts}},
	}

	raw, err := c.generateContent(ctx, promptModel, body)
	if err != nil {
		return "", err
	}

	var text string
	gjson.GetBytes(raw, "candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		if t := part.Get("text").String(); t != "" {
			text = t
			return false
		}
		return true
	})
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(text), nil
}

// GenerateImage asks the image model to render the prompt, conditioned on
// the reference image.
func (c *Client) GenerateImage(ctx context.Context, prompt, imageBase64, imageMime string) (*GeneratedImage, error) {
	parts := []map[string]any{{"text": prompt}}
	if imageBase64 != "" {
		parts = append(parts, inlinePart(imageBase64, imageMime))
	}

	body := map[string]any{
		"contents": []map[string]any{{"parts": parts}},
		"generationConfig": map[string]any{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	}

	raw, err := c.generateContent(ctx, imageModel, body)
	if err != nil {
		return nil, err
	}

	// The image arrives as one inline-data part among possible text parts.
	var img *GeneratedImage
	gjson.GetBytes(raw, "candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		data := part.Get("inlineData.data")
		if !data.Exists() {
			data = part.Get("inline_data.data")
		}
		if data.Exists() && data.String() != "" {
			mime := part.Get("inlineData.mimeType").String()
			if mime == "" {
				mime = part.Get("inline_data.mime_type").String()
			}
			if mime == "" {
				mime = "image/png"
			}
			img = &GeneratedImage{MimeType: mime, Data: data.String()}
			return false
		}
		return true
	})
	if img == nil {
		return nil, ErrEmptyResponse
	}
	return img, nil
}

func (c *Client) generateContent(ctx context.Context, model string, body map[string]any) ([]byte, error) {
	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini response read failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: gjson.GetBytes(raw, "error.message").String(),
		}
	}
	return raw, nil
}

func inlinePart(data, mime string) map[string]any {
	if mime == "" {
		mime = "image/jpeg"
	}
	return map[string]any{
		"inline_data": map[string]any{
			"mime_type": mime,
			"data":      data,
		},
	}
}
