package middleware

import (
	"errors"

	"github.com/Alwanly/guang-panel/pkg/logger"
	"github.com/Alwanly/guang-panel/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors that escape a handler in the API envelope.
func ErrorHandler(log *logger.CanonicalLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		if code >= fiber.StatusInternalServerError {
			log.HTTPError(c.Method(), c.Path(), code, err)
		}

		res := wrapper.ResponseFailed(code, err.Error(), nil)
		return c.Status(res.Code).JSON(res)
	}
}
