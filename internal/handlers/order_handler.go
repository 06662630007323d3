package handlers

import (
	"errors"
	"strconv"
	"strings"

	"bakery/internal/errs"
	"bakery/internal/middleware"
	"bakery/internal/models"
	"bakery/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes behind auth. Fixed paths come before
// /:id so they are not captured by it.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Post("/custom", h.HandleCreateCustomOrder)
	orderRoutes.Get("/my-orders", h.HandleMyOrders)

	bakerOnly := middleware.OnlyBakers()
	orderRoutes.Get("/baker-orders", bakerOnly, h.HandleBakerOrders)
	orderRoutes.Get("/baker/new", bakerOnly, h.HandleBakerNewOrders)
	orderRoutes.Get("/baker/completed", bakerOnly, h.HandleBakerCompletedOrders)

	orderRoutes.Put("/:id/status", bakerOnly, h.HandleUpdateOrderStatus)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Delete("/:id", bakerOnly, h.HandleDeleteOrder)
}

// createOrderRequest is the body of a cart checkout.
type createOrderRequest struct {
	Items          []services.CartItem   `json:"items"`
	DeliveryInfo   *models.DeliveryInfo  `json:"delivery_info" validate:"required"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method" validate:"omitempty,oneof=delivery pickup"`
	PaymentMethod  models.PaymentMethod  `json:"payment_method" validate:"omitempty,oneof=cash card transfer"`
}

type createCustomOrderRequest struct {
	Details        string                `json:"details" validate:"required"`
	DeliveryInfo   *models.DeliveryInfo  `json:"delivery_info" validate:"required"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method" validate:"omitempty,oneof=delivery pickup"`
	PaymentMethod  models.PaymentMethod  `json:"payment_method" validate:"omitempty,oneof=cash card transfer"`
}

// HandleCreateOrder splits a cart into one order per baker.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.service.CreateStandardOrders(c.UserContext(), middleware.CurrentRequester(c), services.StandardOrderInput{
		Items:          req.Items,
		DeliveryInfo:   req.DeliveryInfo,
		DeliveryMethod: req.DeliveryMethod,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		var partial *errs.PartialFailureError
		if errors.As(err, &partial) && result != nil {
			return c.Status(errs.HTTPStatus(partial.Err)).JSON(fiber.Map{
				"message":           "Order placement partially failed, some orders were created",
				"error":             errs.Message(partial.Err),
				"orders":            result.Orders,
				"notifications":     result.Notifications,
				"dispatch_failures": result.DispatchFailures,
			})
		}
		return respondError(c, "Could not create order", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":           "Orders created successfully",
		"orders":            result.Orders,
		"notifications":     result.Notifications,
		"dispatch_failures": result.DispatchFailures,
	})
}

// HandleCreateCustomOrder places a custom cake request with an available baker.
func (h *OrderHandler) HandleCreateCustomOrder(c *fiber.Ctx) error {
	var req createCustomOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.service.CreateCustomOrder(c.UserContext(), middleware.CurrentRequester(c), services.CustomOrderInput{
		Details:        req.Details,
		DeliveryInfo:   req.DeliveryInfo,
		DeliveryMethod: req.DeliveryMethod,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		return respondError(c, "Could not create custom order", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":           "Custom order created successfully",
		"order":             result.Orders[0],
		"dispatch_failures": result.DispatchFailures,
	})
}

// HandleMyOrders lists the requester's orders.
func (h *OrderHandler) HandleMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListCustomerOrders(c.UserContext(), middleware.CurrentRequester(c))
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) HandleBakerOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListVendorOrders(c.UserContext(), middleware.CurrentRequester(c))
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) HandleBakerNewOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListVendorNewOrders(c.UserContext(), middleware.CurrentRequester(c))
	if err != nil {
		return respondError(c, "Could not retrieve new orders", err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) HandleBakerCompletedOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListVendorCompletedOrders(c.UserContext(), middleware.CurrentRequester(c))
	if err != nil {
		return respondError(c, "Could not retrieve completed orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.CurrentRequester(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

type updateStatusRequest struct {
	Status  models.OrderStatus `json:"status" validate:"required"`
	Reason  string             `json:"reason" validate:"max=500"`
	Version int                `json:"version" validate:"gte=0"`
}

// HandleUpdateOrderStatus moves an order along its lifecycle. The expected
// version comes from the If-Match header or the body.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	expected := req.Version
	if tag := c.Get(fiber.HeaderIfMatch); tag != "" {
		v, err := strconv.Atoi(strings.Trim(strings.TrimPrefix(tag, "W/"), `"`))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "If-Match must carry the order version",
			})
		}
		expected = v
	}

	result, err := h.service.SetStatus(c.UserContext(), middleware.CurrentRequester(c), services.StatusUpdate{
		OrderID:         c.Params("id"),
		Status:          req.Status,
		Reason:          req.Reason,
		ExpectedVersion: expected,
	})
	if err != nil {
		return respondError(c, "Order status update failed", err)
	}

	c.Set(fiber.HeaderETag, strconv.Quote(strconv.Itoa(result.Order.Version)))
	return c.JSON(fiber.Map{
		"message":          "Order status updated successfully",
		"order":            result.Order,
		"notification":     result.Notification,
		"dispatch_failure": result.DispatchFailure,
	})
}

// HandleDeleteOrder removes an order.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if err := h.service.DeleteOrder(c.UserContext(), middleware.CurrentRequester(c), orderID); err != nil {
		return respondError(c, "Could not delete order", err)
	}
	return c.JSON(fiber.Map{
		"message": "Order " + orderID + " deleted successfully",
	})
}
