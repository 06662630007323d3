package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"bakery/internal/errs"
	"bakery/internal/metrics"
	"bakery/internal/models"
	"bakery/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService handles business logic related to orders: placement, the status
// lifecycle and requester-scoped reads.
type OrderService struct {
	orders     repositories.OrderRepository
	users      repositories.UserRepository
	catalog    Catalog
	router     VendorRouter
	dispatcher *NotificationDispatcher

	transitions             TransitionTable
	publisher               EventPublisher
	metrics                 *metrics.Metrics
	logger                  *slog.Logger
	customOrderPrice        decimal.Decimal
	deleteRequiresOwnership bool
	newOrderNumber          func() string
}

// OrderServiceOption customizes an OrderService.
type OrderServiceOption func(*OrderService)

func WithTransitions(t TransitionTable) OrderServiceOption {
	return func(s *OrderService) { s.transitions = t }
}

func WithEventPublisher(p EventPublisher) OrderServiceOption {
	return func(s *OrderService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) OrderServiceOption {
	return func(s *OrderService) { s.metrics = m }
}

func WithLogger(l *slog.Logger) OrderServiceOption {
	return func(s *OrderService) { s.logger = l }
}

// WithCustomOrderPrice sets the placeholder total of custom orders awaiting a quote.
func WithCustomOrderPrice(p decimal.Decimal) OrderServiceOption {
	return func(s *OrderService) { s.customOrderPrice = p }
}

// WithDeleteOwnership restricts deletion to the baker that owns the order.
func WithDeleteOwnership(required bool) OrderServiceOption {
	return func(s *OrderService) { s.deleteRequiresOwnership = required }
}

func WithOrderNumberGenerator(gen func() string) OrderServiceOption {
	return func(s *OrderService) { s.newOrderNumber = gen }
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orders repositories.OrderRepository,
	users repositories.UserRepository,
	catalog Catalog,
	router VendorRouter,
	dispatcher *NotificationDispatcher,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orders:           orders,
		users:            users,
		catalog:          catalog,
		router:           router,
		dispatcher:       dispatcher,
		transitions:      StrictTransitions(),
		logger:           slog.Default(),
		customOrderPrice: decimal.NewFromInt(50),
		newOrderNumber:   NewOrderNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "order_service")
	return s
}

// NewOrderNumber returns a short customer-facing order token such as BK-3F9A0C41D2E7.
func NewOrderNumber() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "BK-" + strings.ToUpper(id[:12])
}

// orderNumberAttempts bounds how often a colliding order number is redrawn.
const orderNumberAttempts = 5

// insert persists order, drawing a fresh order number whenever the store
// reports the current one as taken.
func (s *OrderService) insert(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		if err = s.orders.Create(ctx, order); !errors.Is(err, errs.ErrConflict) {
			return err
		}
		s.logger.WarnContext(ctx, "order number taken, drawing another",
			"order_number", order.OrderNumber, "attempt", attempt)
		order.OrderNumber = s.newOrderNumber()
	}
	return err
}

// StandardOrderInput is a cart checkout request.
type StandardOrderInput struct {
	Items          []CartItem            `json:"items"`
	DeliveryInfo   *models.DeliveryInfo  `json:"delivery_info"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	PaymentMethod  models.PaymentMethod  `json:"payment_method"`
}

// CustomOrderInput is a free-form custom cake request.
type CustomOrderInput struct {
	Details        string                `json:"details"`
	DeliveryInfo   *models.DeliveryInfo  `json:"delivery_info"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	PaymentMethod  models.PaymentMethod  `json:"payment_method"`
}

// CreateOrdersResult is what order placement persisted. DispatchFailures lists
// notifications that could not be stored; the orders stand regardless.
type CreateOrdersResult struct {
	Orders           []models.Order        `json:"orders"`
	Notifications    []models.Notification `json:"notifications"`
	DispatchFailures []DispatchFailure     `json:"dispatch_failures,omitempty"`
}

type fulfillment struct {
	method  models.DeliveryMethod
	payment models.PaymentMethod
	info    models.DeliveryInfo
}

func resolveFulfillment(method models.DeliveryMethod, payment models.PaymentMethod, info *models.DeliveryInfo) (fulfillment, error) {
	if method == "" {
		method = models.DeliveryMethodDelivery
	}
	if payment == "" {
		payment = models.PaymentMethodCash
	}
	switch method {
	case models.DeliveryMethodDelivery, models.DeliveryMethodPickup:
	default:
		return fulfillment{}, errs.InvalidInput("unsupported delivery method %q", method)
	}
	switch payment {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodTransfer:
	default:
		return fulfillment{}, errs.InvalidInput("unsupported payment method %q", payment)
	}
	if info == nil {
		return fulfillment{}, errs.InvalidInput("delivery info is required")
	}
	if strings.TrimSpace(info.Name) == "" || strings.TrimSpace(info.Phone) == "" {
		return fulfillment{}, errs.InvalidInput("delivery info needs a name and a phone")
	}

	f := fulfillment{method: method, payment: payment, info: *info}
	if method == models.DeliveryMethodPickup {
		f.info = info.ContactOnly()
	} else if strings.TrimSpace(info.Address) == "" {
		return fulfillment{}, errs.InvalidInput("delivery address is required for delivery orders")
	}
	return f, nil
}

func (s *OrderService) newOrder(req Requester, bakerID string, kind models.OrderType, f fulfillment) *models.Order {
	return &models.Order{
		ID:             uuid.New().String(),
		OrderNumber:    s.newOrderNumber(),
		OrderType:      kind,
		CustomerID:     req.ID,
		BakerID:        bakerID,
		DeliveryMethod: f.method,
		DeliveryInfo:   f.info,
		PaymentMethod:  f.payment,
		Status:         models.StatusPending,
		Version:        1,
	}
}

// CreateStandardOrders splits the cart by baker and persists one order per baker,
// each followed by its customer and baker notifications. Groups are processed in
// order; if persisting a group fails, the orders created so far are kept and a
// *errs.PartialFailureError is returned together with the partial result.
func (s *OrderService) CreateStandardOrders(ctx context.Context, req Requester, in StandardOrderInput) (*CreateOrdersResult, error) {
	if err := req.authenticated(); err != nil {
		return nil, err
	}
	f, err := resolveFulfillment(in.DeliveryMethod, in.PaymentMethod, in.DeliveryInfo)
	if err != nil {
		return nil, err
	}
	buckets, err := PartitionCart(ctx, s.catalog, in.Items)
	if err != nil {
		return nil, err
	}

	result := &CreateOrdersResult{}
	var created []string
	for _, bucket := range buckets {
		order := s.newOrder(req, bucket.BakerID, models.OrderTypeStandard, f)
		order.Items = bucket.Items
		order.TotalPrice = bucket.TotalPrice

		if err := s.insert(ctx, order); err != nil {
			s.logger.ErrorContext(ctx, "order creation failed",
				"customer_id", req.ID, "baker_id", bucket.BakerID, "created", len(created), "error", err)
			if len(created) == 0 {
				return nil, err
			}
			return result, &errs.PartialFailureError{Completed: created, Err: err}
		}
		created = append(created, order.ID)
		result.Orders = append(result.Orders, *order)
		s.metrics.OrderCreated(string(order.OrderType))
		s.logger.InfoContext(ctx, "order created",
			"order_id", order.ID, "order_number", order.OrderNumber, "baker_id", order.BakerID, "total", order.TotalPrice.String())

		s.announcePlaced(ctx, req, order, result)
	}
	return result, nil
}

// CreateCustomOrder routes a custom cake request to a baker chosen by the
// configured VendorRouter and persists it with the placeholder price.
func (s *OrderService) CreateCustomOrder(ctx context.Context, req Requester, in CustomOrderInput) (*CreateOrdersResult, error) {
	if err := req.authenticated(); err != nil {
		return nil, err
	}
	details := strings.TrimSpace(in.Details)
	if details == "" {
		return nil, errs.InvalidInput("incomplete custom order data, details are required")
	}
	f, err := resolveFulfillment(in.DeliveryMethod, in.PaymentMethod, in.DeliveryInfo)
	if err != nil {
		return nil, err
	}

	bakerID, err := s.router.SelectVendor(ctx)
	if err != nil {
		return nil, err
	}

	order := s.newOrder(req, bakerID, models.OrderTypeCustom, f)
	order.Details = details
	order.TotalPrice = s.customOrderPrice
	if err := s.insert(ctx, order); err != nil {
		return nil, err
	}
	s.metrics.OrderCreated(string(order.OrderType))
	s.logger.InfoContext(ctx, "custom order created",
		"order_id", order.ID, "order_number", order.OrderNumber, "baker_id", bakerID)

	result := &CreateOrdersResult{Orders: []models.Order{*order}}
	s.announcePlaced(ctx, req, order, result)
	return result, nil
}

// announcePlaced notifies customer and baker about a new order and publishes the
// creation event. Notification failures are collected in result.
func (s *OrderService) announcePlaced(ctx context.Context, req Requester, order *models.Order, result *CreateOrdersResult) {
	customerTpl, bakerTpl := TemplateOrderPlacedCustomer, TemplateOrderPlacedBaker
	if order.OrderType == models.OrderTypeCustom {
		customerTpl, bakerTpl = TemplateCustomOrderPlacedCustomer, TemplateCustomOrderPlacedBaker
	}
	args := TemplateArgs{OrderNumber: order.OrderNumber, CustomerName: req.Name}

	for _, d := range []Dispatch{
		{RecipientID: order.CustomerID, OrderID: order.ID, Type: models.NotificationOrderPlaced, Template: customerTpl, Args: args},
		{RecipientID: order.BakerID, OrderID: order.ID, Type: models.NotificationOrderPlaced, Template: bakerTpl, Args: args},
	} {
		n, err := s.dispatcher.Notify(ctx, d)
		if err != nil {
			result.DispatchFailures = append(result.DispatchFailures, failureOf(d, err))
			continue
		}
		result.Notifications = append(result.Notifications, *n)
	}

	publishEvent(ctx, s.publisher, s.logger, EventOrderCreated, newOrderEvent(order, ""))
}
