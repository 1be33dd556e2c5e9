package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/quillnotes/backend/pkg/logger"
)

func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		c.Locals("requestID", requestID)

		err := c.Next()

		statusCode := c.Response().StatusCode()
		details := map[string]interface{}{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     statusCode,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
			"request_id": requestID,
		}

		switch {
		case statusCode >= 500:
			logger.Error("http_request", err, details)
		case statusCode >= 400:
			logger.Warn("http_request", details)
		default:
			logger.Info("http_request", details)
		}

		return err
	}
}
