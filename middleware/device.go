package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DeviceIDKey is the locals key holding the anonymous device ID.
	DeviceIDKey = "deviceID"

	// DeviceCookieName is the cookie carrying the signed device token.
	DeviceCookieName = "anoo_device"

	deviceTokenIssuer   = "anoo"
	deviceTokenAudience = "anoo-web"
	deviceTokenLifetime = 365 * 24 * time.Hour
)

// DeviceToken ensures every request carries a stable anonymous device
// identity. The identity keys the draft store and the AI generation quota;
// it is unrelated to the backend's session auth, which the gateway forwards
// opaquely. An invalid or missing token is replaced, never rejected.
func DeviceToken(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := parseDeviceToken(c.Cookies(DeviceCookieName), secret); ok {
			c.Locals(DeviceIDKey, id)
			return c.Next()
		}

		id := uuid.NewString()
		token, err := signDeviceToken(id, secret)
		if err != nil {
			// Identity is best-effort; the request proceeds anonymous.
			return c.Next()
		}

		c.Cookie(&fiber.Cookie{
			Name:     DeviceCookieName,
			Value:    token,
			Expires:  time.Now().Add(deviceTokenLifetime),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Path:     "/",
		})
		c.Locals(DeviceIDKey, id)
		return c.Next()
	}
}

func signDeviceToken(id, secret string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": deviceTokenIssuer,
		"aud": deviceTokenAudience,
		"sub": id,
		"iat": now.Unix(),
		"exp": now.Add(deviceTokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseDeviceToken(tokenString, secret string) (string, bool) {
	if tokenString == "" {
		return "", false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != deviceTokenIssuer {
		return "", false
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != deviceTokenAudience {
		return "", false
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}
