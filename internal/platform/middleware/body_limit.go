package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimitConfig controls request body size limits.
type BodyLimitConfig struct {
	// DefaultLimit applies to most endpoints, e.g. "1M".
	DefaultLimit string
	// ImportLimit applies to bulk import endpoints, e.g. "16M".
	ImportLimit string
}

// DefaultBodyLimitConfig returns sensible body size limits.
func DefaultBodyLimitConfig() BodyLimitConfig {
	return BodyLimitConfig{
		DefaultLimit: "1M",
		ImportLimit:  "16M",
	}
}

// BodyLimit rejects requests whose declared Content-Length exceeds the
// limit for the request path. Bulk import endpoints get a larger limit
// since client CSV uploads can carry thousands of rows.
func BodyLimit(cfg BodyLimitConfig) echo.MiddlewareFunc {
	defaultLimit := parseLimit(cfg.DefaultLimit)
	importLimit := parseLimit(cfg.ImportLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limit := defaultLimit
			if strings.Contains(c.Path(), "/import") {
				limit = importLimit
			}

			if c.Request().ContentLength > limit {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
			}

			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, limit)
			return next(c)
		}
	}
}

// parseLimit converts strings like "1M", "512K", "2G" to bytes.
// Unparseable values fall back to 1MB.
func parseLimit(s string) int64 {
	const fallback = 1 << 20

	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return fallback
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1 << 10
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1 << 20
		s = s[:len(s)-1]
	case 'G':
		multiplier = 1 << 30
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n * multiplier
}
