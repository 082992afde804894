package server

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/holon-run/prgen/pkg/log"
)

// LoggingMiddleware logs one structured line per request
func LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			fields := []any{
				"method", c.Request().Method,
				"uri", c.Request().URL.Path,
				"status", status,
				"latency", time.Since(start),
				"ip", c.RealIP(),
			}
			if err != nil {
				fields = append(fields, "error", err.Error())
			}

			switch {
			case status >= 500:
				log.Error("server error", fields...)
			case status >= 400:
				log.Warn("client error", fields...)
			default:
				log.Debug("request processed", fields...)
			}
			return err
		}
	}
}
