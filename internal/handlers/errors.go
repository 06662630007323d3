package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"bakery/internal/errs"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError writes err as {"message", "error"} with the status of its kind.
// Store failures and unclassified errors are logged and answered with a generic text.
func respondError(c *fiber.Ctx, message string, err error) error {
	status := errs.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError && status != fiber.StatusServiceUnavailable {
		slog.ErrorContext(c.UserContext(), message, "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		slog.DebugContext(c.UserContext(), message, "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   errs.Message(err),
	})
}

func invalidBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// validationFailed answers a validator error the same way for every handler.
func validationFailed(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return invalidBody(c, err)
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
