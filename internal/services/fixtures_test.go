package services_test

import (
	"context"
	"testing"
	"time"

	"bakery/internal/models"
	"bakery/internal/repositories"
	"bakery/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// bakeryFixture is an order service over in-memory repositories.
type bakeryFixture struct {
	users         *repositories.MockUserRepository
	products      *repositories.MockProductRepository
	orders        *repositories.MockOrderRepository
	notifications *repositories.MockNotificationRepository
	dispatcher    *services.NotificationDispatcher
	service       *services.OrderService
}

func newFixture(t *testing.T, opts ...services.OrderServiceOption) *bakeryFixture {
	t.Helper()
	f := &bakeryFixture{
		users:         repositories.NewMockUserRepository(),
		products:      repositories.NewMockProductRepository(),
		orders:        repositories.NewMockOrderRepository(),
		notifications: repositories.NewMockNotificationRepository(),
	}
	f.dispatcher = services.NewNotificationDispatcher(f.notifications, services.WithRetry(1, time.Millisecond))
	f.service = services.NewOrderService(
		f.orders,
		f.users,
		services.NewRepositoryCatalog(f.products),
		services.NewFirstAvailableRouter(f.users),
		f.dispatcher,
		opts...,
	)
	return f
}

func (f *bakeryFixture) addUser(t *testing.T, name string, role models.Role) services.Requester {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return services.Requester{ID: u.ID, Role: role, Name: name}
}

func (f *bakeryFixture) addProduct(t *testing.T, baker services.Requester, name string, price int64) string {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.NewFromInt(price), BakerID: baker.ID}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p.ID
}

// placeOrder creates a single-baker order and returns it.
func (f *bakeryFixture) placeOrder(t *testing.T, customer services.Requester, productID string) models.Order {
	t.Helper()
	res, err := f.service.CreateStandardOrders(context.Background(), customer, services.StandardOrderInput{
		Items:        []services.CartItem{{ProductID: productID, Quantity: 1}},
		DeliveryInfo: homeDelivery(),
	})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	return res.Orders[0]
}

func homeDelivery() *models.DeliveryInfo {
	return &models.DeliveryInfo{Name: "Anna", Phone: "+7 900 000-00-00", Address: "Lenina 1", City: "Kazan"}
}

// MockOrderRepository is a testify mock of repositories.OrderRepository used for
// failure injection.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, order *models.Order, expectedVersion int) error {
	args := m.Called(ctx, order, expectedVersion)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) CountOpenByBaker(ctx context.Context, bakerIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, bakerIDs)
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockNotificationRepository is a testify mock of repositories.NotificationRepository.
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]models.Notification, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListByOrder(ctx context.Context, orderID string) ([]models.Notification, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]models.Notification), args.Error(1)
}

// recordingPublisher collects published routing keys.
type recordingPublisher struct {
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ []byte) error {
	p.keys = append(p.keys, routingKey)
	return nil
}
