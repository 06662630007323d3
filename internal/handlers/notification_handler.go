package handlers

import (
	"bakery/internal/middleware"
	"bakery/internal/services"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler serves a user's notification inbox.
type NotificationHandler struct {
	dispatcher *services.NotificationDispatcher
}

func NewNotificationHandler(dispatcher *services.NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// RegisterRoutes registers the inbox behind auth.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/notifications", auth, h.HandleInbox)
}

func (h *NotificationHandler) HandleInbox(c *fiber.Ctx) error {
	notifications, err := h.dispatcher.Inbox(c.UserContext(), middleware.CurrentRequester(c))
	if err != nil {
		return respondError(c, "Could not retrieve notifications", err)
	}
	return c.JSON(notifications)
}
