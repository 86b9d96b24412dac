package utils

import (
	"github.com/dms/backend/pkg/apperr"
	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Fail renders err through the normalized error taxonomy so only fixed
// messages cross the boundary.
func Fail(c *fiber.Ctx, err error) error {
	kind, message := apperr.Resolve(err)
	return Error(c, apperr.Status(kind), message)
}
