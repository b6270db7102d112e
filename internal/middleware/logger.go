package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger logs one line per request. Server errors log at Error,
// client errors at Warn and the rest at Info.
func RequestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the status before it is read
				c.Error(err)
			}
			status := c.Response().Status
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			attrs := []any{
				"method", c.Request().Method,
				"path", c.Path(),
				"status", status,
				"duration", time.Since(start),
				"ip", c.RealIP(),
			}
			if uid := UserID(c); uid != "" {
				attrs = append(attrs, "user_id", uid)
			}
			if err != nil {
				attrs = append(attrs, "err", err)
			}
			log.Log(c.Request().Context(), level, "request", attrs...)
			return nil
		}
	}
}
