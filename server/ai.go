package server

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"anoo/gemini"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
)

// Base64 payload cap, roughly a 5MB image after encoding overhead.
const maxImageBase64Len = 7 * 1024 * 1024

// User-facing AI error messages. Codes are stable; the pages re-map a few
// of these to friendlier inline text.
const (
	msgAPIKeyNotConfigured  = "AI 기능이 아직 설정되지 않았어요. 잠시 후 다시 시도해 주세요."
	msgProfileImageRequired = "프로필 사진을 등록해 주세요."
	msgImageTooLarge        = "이미지가 너무 커요. 7MB 이하의 이미지를 사용해 주세요."
	msgPromptFailed         = "프롬프트 생성에 실패했어요. 잠시 후 다시 시도해 주세요."
	msgImageFailed          = "이미지 생성에 실패했어요. 잠시 후 다시 시도해 주세요."
	msgLimitExceeded        = "오늘의 AI 생성 횟수를 모두 사용했어요. 내일 다시 시도해 주세요."
)

type generatePromptRequest struct {
	Description        string                `json:"description"`
	ProfileImageBase64 string                `json:"profileImageBase64"`
	ProfileImageMime   string                `json:"profileImageMimeType"`
	Options            *gemini.PromptOptions `json:"options"`
}

// GeneratePrompt builds the prompt instruction and asks the text model to
// write an image prompt. Strictly linear, no retries.
func (s *Server) GeneratePrompt(c *fiber.Ctx) error {
	if !s.gemini.Configured() {
		return respondError(c, models.NewCodedError(
			fiber.StatusInternalServerError, models.CodeAPIKeyNotConfigured, msgAPIKeyNotConfigured))
	}

	var req generatePromptRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if len(req.ProfileImageBase64) > maxImageBase64Len {
		return respondError(c, models.NewCodedError(
			fiber.StatusBadRequest, models.CodeImageTooLarge, msgImageTooLarge))
	}

	instruction := gemini.BuildPromptInstruction(gemini.PromptRequest{
		Description:       req.Description,
		HasReferenceImage: req.ProfileImageBase64 != "",
		Options:           req.Options,
	})

	prompt, err := s.gemini.GeneratePrompt(c.Context(), instruction, req.ProfileImageBase64, req.ProfileImageMime)
	if err != nil {
		return respondError(c, promptError(err))
	}

	s.quota.Record(deviceID(c), models.GenerationKindPrompt, hashPrompt(prompt))
	return c.JSON(fiber.Map{"prompt": prompt})
}

type generateImageRequest struct {
	Prompt             string                `json:"prompt"`
	Description        string                `json:"description"`
	ProfileImageBase64 string                `json:"profileImageBase64"`
	ProfileImageMime   string                `json:"profileImageMimeType"`
	Options            *gemini.PromptOptions `json:"options"`
}

// GenerateImage renders the profile image. When no prompt is supplied the
// two model calls run back to back: prompt first, then image. A quota slot
// is reserved up front and released if either upstream call fails.
func (s *Server) GenerateImage(c *fiber.Ctx) error {
	if !s.gemini.Configured() {
		return respondError(c, models.NewCodedError(
			fiber.StatusInternalServerError, models.CodeAPIKeyNotConfigured, msgAPIKeyNotConfigured))
	}

	var req generateImageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if req.ProfileImageBase64 == "" {
		return respondError(c, models.NewCodedError(
			fiber.StatusBadRequest, models.CodeProfileImageRequired, msgProfileImageRequired))
	}
	if len(req.ProfileImageBase64) > maxImageBase64Len {
		return respondError(c, models.NewCodedError(
			fiber.StatusBadRequest, models.CodeImageTooLarge, msgImageTooLarge))
	}

	did := deviceID(c)
	ok, err := s.quota.Reserve(c.Context(), did)
	if err == nil && !ok {
		return respondError(c, models.NewCodedError(
			fiber.StatusTooManyRequests, models.CodeLimitExceeded, msgLimitExceeded))
	}

	prompt := req.Prompt
	if prompt == "" {
		instruction := gemini.BuildPromptInstruction(gemini.PromptRequest{
			Description:       req.Description,
			HasReferenceImage: true,
			Options:           req.Options,
		})
		prompt, err = s.gemini.GeneratePrompt(c.Context(), instruction, req.ProfileImageBase64, req.ProfileImageMime)
		if err != nil {
			s.quota.Release(c.Context(), did)
			return respondError(c, promptError(err))
		}
	}

	img, err := s.gemini.GenerateImage(c.Context(), prompt, req.ProfileImageBase64, req.ProfileImageMime)
	if err != nil {
		s.quota.Release(c.Context(), did)
		return respondError(c, imageError(err))
	}

	s.quota.Record(did, models.GenerationKindImage, hashPrompt(prompt))
	return c.JSON(fiber.Map{
		"imageBase64": img.Data,
		"mimeType":    img.MimeType,
		"prompt":      prompt,
		"remaining":   s.quota.Remaining(c.Context(), did),
	})
}

// RemainingGenerations reports today's unused quota for the device.
func (s *Server) RemainingGenerations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"remaining": s.quota.Remaining(c.Context(), deviceID(c)),
		"limit":     s.quota.Limit(),
	})
}

func promptError(err error) error {
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) || errors.Is(err, gemini.ErrEmptyResponse) {
		return &models.AppError{
			Code:    models.CodePromptFailed,
			Status:  fiber.StatusBadGateway,
			Message: msgPromptFailed,
			Err:     err,
		}
	}
	return models.NewInternalError(err)
}

func imageError(err error) error {
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) || errors.Is(err, gemini.ErrEmptyResponse) {
		return &models.AppError{
			Code:    models.CodeImageFailed,
			Status:  fiber.StatusBadGateway,
			Message: msgImageFailed,
			Err:     err,
		}
	}
	return models.NewInternalError(err)
}

func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
