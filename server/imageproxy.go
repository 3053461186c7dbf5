package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"anoo/cache"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
)

const (
	proxyMaxBytes      = 10 * 1024 * 1024
	proxyCacheMaxBytes = 1 * 1024 * 1024
	proxyCacheTTL      = 1 * time.Hour
)

var proxyHTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}

// ImageProxy streams an S3-hosted image through the gateway so the bucket
// never has to face browsers directly. Only allow-listed hostnames pass;
// small images are cached in Redis.
func (s *Server) ImageProxy(c *fiber.Ctx) error {
	rawURL := c.Query("url")
	if rawURL == "" {
		return respondError(c, models.NewValidationError("url is required"))
	}

	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Hostname() == "" {
		return respondError(c, models.NewValidationError("url must be an absolute http(s) URL"))
	}

	if !s.allowedProxyHost(target.Hostname()) {
		return respondError(c, models.NewCodedError(
			fiber.StatusForbidden, models.CodeHostNotAllowed, "host is not allowed"))
	}

	cacheKey := "imgproxy:" + rawURL
	if body, found, _ := cache.GetBytes(c.Context(), cacheKey); found {
		if ct, img, ok := strings.Cut(string(body), "\n"); ok {
			c.Set(fiber.HeaderContentType, ct)
			c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
			return c.Send([]byte(img))
		}
	}

	req, err := http.NewRequestWithContext(c.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	resp, err := proxyHTTPClient.Do(req)
	if err != nil {
		return respondError(c, models.NewUpstreamError(fiber.StatusBadGateway, "image fetch failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return respondError(c, models.NewUpstreamError(resp.StatusCode, "image fetch failed"))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return respondError(c, models.NewUpstreamError(fiber.StatusBadGateway, "upstream did not return an image"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, proxyMaxBytes+1))
	if err != nil {
		return respondError(c, models.NewUpstreamError(fiber.StatusBadGateway, "image read failed"))
	}
	if len(body) > proxyMaxBytes {
		return respondError(c, models.NewCodedError(
			fiber.StatusBadGateway, models.CodeImageTooLarge, "image exceeds proxy size limit"))
	}

	if len(body) <= proxyCacheMaxBytes {
		// Content type rides in front of the bytes so a cache hit can
		// restore the header without a second key.
		cached := append([]byte(contentType+"\n"), body...)
		_ = cache.SetBytes(c.Context(), cacheKey, cached, proxyCacheTTL)
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(body)
}

// allowedProxyHost accepts the standard S3 hostname shapes plus any hosts
// added through configuration.
func (s *Server) allowedProxyHost(host string) bool {
	host = strings.ToLower(host)

	if host == "s3.amazonaws.com" {
		return true
	}
	if strings.HasSuffix(host, ".amazonaws.com") {
		// bucket.s3.amazonaws.com, bucket.s3.REGION.amazonaws.com,
		// s3.REGION.amazonaws.com
		if strings.Contains(host, ".s3.") || strings.HasPrefix(host, "s3.") {
			return true
		}
	}

	for _, allowed := range s.config.ProxyAllowedHosts() {
		if host == allowed {
			return true
		}
	}
	return false
}
