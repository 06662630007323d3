package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"bakery/internal/errs"
	"bakery/internal/handlers"
	"bakery/internal/middleware"
	"bakery/internal/models"
	"bakery/internal/repositories"
	"bakery/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp sets up a Fiber app for testing with a private in-memory SQLite
// database and all handlers and services wired.
func setupApp(t *testing.T, wrapOrders ...func(repositories.OrderRepository) repositories.OrderRepository) *fiber.App {
	t.Helper()

	// Configure Viper for testing
	v := viper.New()
	v.SetDefault("JWT_SECRET", "test_jwt_secret")
	v.AutomaticEnv()
	jwtSecret := v.GetString("JWT_SECRET")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repositories.OpenDB("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	// Initialize Repositories
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	var orderRepo repositories.OrderRepository = repositories.NewGORMOrderRepository(db)
	for _, wrap := range wrapOrders {
		orderRepo = wrap(orderRepo)
	}
	notificationRepo := repositories.NewGORMNotificationRepository(db)

	// Initialize Services
	catalog := services.NewRepositoryCatalog(productRepo)
	dispatcher := services.NewNotificationDispatcher(notificationRepo)
	orderService := services.NewOrderService(orderRepo, userRepo, catalog, services.NewFirstAvailableRouter(userRepo), dispatcher)
	productService := services.NewProductService(productRepo, catalog)
	authService := services.NewAuthService(userRepo, jwtSecret)

	app := fiber.New()
	auth := middleware.AuthRequired(authService)
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewProductHandler(productService).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(orderService).RegisterRoutes(apiV1, auth)
	handlers.NewNotificationHandler(dispatcher).RegisterRoutes(apiV1, auth)
	return app
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// call sends a JSON request and decodes the JSON response into out when out is non-nil.
func call(t *testing.T, app *fiber.App, method, path, token string, body any, out any, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// signUp registers a user and returns a fresh token for it.
func signUp(t *testing.T, app *fiber.App, name string, role models.Role) string {
	t.Helper()
	email := name + "@example.com"
	resp := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123", "role": string(role),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var loginResp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	resp = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "password123",
	}, &loginResp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, loginResp.Token)
	assert.Equal(t, role, loginResp.User.Role)
	return loginResp.Token
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	// Test Registration
	userToRegister := map[string]string{
		"name":     "Marta",
		"email":    "marta@example.com",
		"password": "password123",
		"role":     "baker",
	}
	var registerResp map[string]interface{}
	resp := call(t, app, http.MethodPost, "/api/v1/auth/register", "", userToRegister, &registerResp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User registered successfully", registerResp["message"])
	user := registerResp["user"].(map[string]interface{})
	assert.NotContains(t, user, "password")

	// Test Duplicate Registration (email)
	var dupResp map[string]interface{}
	resp = call(t, app, http.MethodPost, "/api/v1/auth/register", "", userToRegister, &dupResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email 'marta@example.com' already registered", dupResp["error"])

	// Test validation failure
	var invalidResp map[string]interface{}
	resp = call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ivan", "email": "not-an-email", "password": "123",
	}, &invalidResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", invalidResp["message"])
	assert.Contains(t, invalidResp["errors"], "Email")
	assert.Contains(t, invalidResp["errors"], "Password")

	// Test Login
	var loginResp map[string]interface{}
	resp = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "marta@example.com", "password": "password123",
	}, &loginResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, loginResp["token"])

	// Test wrong password
	resp = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "marta@example.com", "password": "wrongpassword",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProductEndpoints(t *testing.T) {
	app := setupApp(t)
	bakerToken := signUp(t, app, "marta", models.RoleBaker)
	rivalToken := signUp(t, app, "oleg", models.RoleBaker)
	customerToken := signUp(t, app, "anna", models.RoleCustomer)

	// --- Test POST /products (bakers only) ---
	newProduct := map[string]interface{}{
		"name":        "Rye loaf",
		"description": "Sourdough rye",
		"price":       "4.50",
	}
	resp := call(t, app, http.MethodPost, "/api/v1/products", customerToken, newProduct, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var createdProduct models.Product
	resp = call(t, app, http.MethodPost, "/api/v1/products", bakerToken, newProduct, &createdProduct)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, createdProduct.ID)
	assert.Equal(t, "Rye loaf", createdProduct.Name)
	assert.True(t, decimal.RequireFromString("4.50").Equal(createdProduct.Price))

	resp = call(t, app, http.MethodPost, "/api/v1/products", bakerToken, map[string]interface{}{"name": "Free bun", "price": "0"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// --- Test GET /products (public) ---
	var products []models.Product
	resp = call(t, app, http.MethodGet, "/api/v1/products", "", nil, &products)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, products, 1)

	var fetchedProduct models.Product
	resp = call(t, app, http.MethodGet, "/api/v1/products/"+createdProduct.ID, "", nil, &fetchedProduct)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, createdProduct.ID, fetchedProduct.ID)

	// --- Test PUT /products/:id (owner only) ---
	updatedProductData := map[string]interface{}{
		"name":  "Rye loaf XL",
		"price": "6.00",
	}
	resp = call(t, app, http.MethodPut, "/api/v1/products/"+createdProduct.ID, rivalToken, updatedProductData, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var updatedProduct models.Product
	resp = call(t, app, http.MethodPut, "/api/v1/products/"+createdProduct.ID, bakerToken, updatedProductData, &updatedProduct)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Rye loaf XL", updatedProduct.Name)

	// --- Test DELETE /products/:id ---
	var deleteResp map[string]string
	resp = call(t, app, http.MethodDelete, "/api/v1/products/"+createdProduct.ID, bakerToken, nil, &deleteResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, deleteResp["message"], "deleted successfully")

	// Verify deletion
	resp = call(t, app, http.MethodGet, "/api/v1/products/"+createdProduct.ID, "", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEndpointsWithoutAuth(t *testing.T) {
	app := setupApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/products"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders/my-orders"},
		{http.MethodGet, "/api/v1/notifications"},
	} {
		resp := call(t, app, tc.method, tc.path, "", map[string]string{}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.path)
	}

	resp := call(t, app, http.MethodGet, "/api/v1/orders/my-orders", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOrderLifecycleEndpoints(t *testing.T) {
	app := setupApp(t)
	bakerToken := signUp(t, app, "marta", models.RoleBaker)
	customerToken := signUp(t, app, "anna", models.RoleCustomer)

	var product models.Product
	resp := call(t, app, http.MethodPost, "/api/v1/products", bakerToken, map[string]interface{}{"name": "Croissant", "price": "2.50"}, &product)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// --- Checkout ---
	checkout := map[string]interface{}{
		"items":           []map[string]interface{}{{"product_id": product.ID, "quantity": 4}},
		"delivery_method": "delivery",
		"payment_method":  "card",
		"delivery_info":   map[string]string{"name": "Anna", "phone": "+7 900 000-00-00", "address": "Lenina 1", "city": "Kazan"},
	}
	var created struct {
		Message string         `json:"message"`
		Orders  []models.Order `json:"orders"`
	}
	resp = call(t, app, http.MethodPost, "/api/v1/orders", customerToken, checkout, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, created.Orders, 1)
	order := created.Orders[0]
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 1, order.Version)
	assert.True(t, decimal.NewFromInt(10).Equal(order.TotalPrice))

	resp = call(t, app, http.MethodPost, "/api/v1/orders", customerToken, map[string]interface{}{
		"items":         []map[string]interface{}{{"product_id": "missing", "quantity": 1}},
		"delivery_info": map[string]string{"name": "Anna", "phone": "1", "address": "Lenina 1"},
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Pending orders are hidden from the customer's list
	var mine []models.Order
	resp = call(t, app, http.MethodGet, "/api/v1/orders/my-orders", customerToken, nil, &mine)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, mine)

	// --- Baker views ---
	var incoming []services.OrderView
	resp = call(t, app, http.MethodGet, "/api/v1/orders/baker/new", bakerToken, nil, &incoming)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, incoming, 1)
	require.NotNil(t, incoming[0].Customer)
	assert.Equal(t, "anna@example.com", incoming[0].Customer.Email)

	resp = call(t, app, http.MethodGet, "/api/v1/orders/baker-orders", customerToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// --- Status updates ---
	statusPath := "/api/v1/orders/" + order.ID + "/status"
	resp = call(t, app, http.MethodPut, statusPath, customerToken, map[string]string{"status": "accepted"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var updated struct {
		Order        models.Order         `json:"order"`
		Notification *models.Notification `json:"notification"`
	}
	resp = call(t, app, http.MethodPut, statusPath, bakerToken, map[string]string{"status": "accepted"}, &updated, "If-Match", `"1"`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"2"`, resp.Header.Get("ETag"))
	assert.Equal(t, models.StatusAccepted, updated.Order.Status)
	require.NotNil(t, updated.Notification)
	assert.Equal(t, "Your order #"+order.OrderNumber+" was accepted.", updated.Notification.Message)

	// Stale version
	resp = call(t, app, http.MethodPut, statusPath, bakerToken, map[string]string{"status": "preparing"}, nil, "If-Match", `"1"`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Moving back to pending is not a valid transition
	resp = call(t, app, http.MethodPut, statusPath, bakerToken, map[string]string{"status": "pending"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, app, http.MethodPut, statusPath, bakerToken, map[string]string{"status": "baked"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// --- Customer views ---
	resp = call(t, app, http.MethodGet, "/api/v1/orders/my-orders", customerToken, nil, &mine)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, mine, 1)
	assert.Equal(t, models.StatusAccepted, mine[0].Status)

	var fetched services.OrderDetail
	resp = call(t, app, http.MethodGet, "/api/v1/orders/"+order.ID, customerToken, nil, &fetched)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, fetched.Version)
	assert.Equal(t, models.DeliveryMethodDelivery, fetched.DeliveryMethod)
	assert.Equal(t, "Lenina 1", fetched.DeliveryInfo.Address)
	require.NotNil(t, fetched.Baker)
	assert.Equal(t, "marta", fetched.Baker.Name)
	require.NotNil(t, fetched.Customer)
	assert.Equal(t, "anna@example.com", fetched.Customer.Email)
	require.Len(t, fetched.Notifications, 2)
	assert.Equal(t, models.NotificationOrderPlaced, fetched.Notifications[0].Type)
	assert.Equal(t, models.NotificationOrderAccepted, fetched.Notifications[1].Type)

	var inbox []models.Notification
	resp = call(t, app, http.MethodGet, "/api/v1/notifications", customerToken, nil, &inbox)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, inbox, 2)
	assert.Equal(t, models.NotificationOrderAccepted, inbox[0].Type)
	assert.Equal(t, models.NotificationOrderPlaced, inbox[1].Type)

	resp = call(t, app, http.MethodGet, "/api/v1/notifications", bakerToken, nil, &inbox)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, inbox, 1)
	assert.Equal(t, "New order #"+order.OrderNumber+" from anna.", inbox[0].Message)

	// --- Delete ---
	resp = call(t, app, http.MethodDelete, "/api/v1/orders/"+order.ID, customerToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = call(t, app, http.MethodDelete, "/api/v1/orders/"+order.ID, bakerToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = call(t, app, http.MethodGet, "/api/v1/orders/"+order.ID, customerToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCustomOrderEndpoint(t *testing.T) {
	app := setupApp(t)
	customerToken := signUp(t, app, "anna", models.RoleCustomer)

	body := map[string]interface{}{
		"details":         "Three-tier cake with berries",
		"delivery_method": "pickup",
		"delivery_info":   map[string]string{"name": "Anna", "phone": "+7 900 000-00-00", "address": "ignored"},
	}
	resp := call(t, app, http.MethodPost, "/api/v1/orders/custom", customerToken, body, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "no baker registered yet")

	signUp(t, app, "marta", models.RoleBaker)
	var created struct {
		Order models.Order `json:"order"`
	}
	resp = call(t, app, http.MethodPost, "/api/v1/orders/custom", customerToken, body, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.OrderTypeCustom, created.Order.OrderType)
	assert.True(t, decimal.NewFromInt(50).Equal(created.Order.TotalPrice))
	assert.Empty(t, created.Order.DeliveryInfo.Address, "pickup keeps only the contact")

	resp = call(t, app, http.MethodPost, "/api/v1/orders/custom", customerToken, map[string]interface{}{
		"delivery_info": map[string]string{"name": "Anna", "phone": "1"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// failingOrders passes order creation through until failAfter orders exist.
type failingOrders struct {
	repositories.OrderRepository
	failAfter int
	created   int
}

func (r *failingOrders) Create(ctx context.Context, order *models.Order) error {
	if r.created >= r.failAfter {
		return errs.Store("failed to create order", errors.New("connection reset"))
	}
	if err := r.OrderRepository.Create(ctx, order); err != nil {
		return err
	}
	r.created++
	return nil
}

func TestCreateOrderPartialFailureEndpoint(t *testing.T) {
	app := setupApp(t, func(inner repositories.OrderRepository) repositories.OrderRepository {
		return &failingOrders{OrderRepository: inner, failAfter: 1}
	})
	first := signUp(t, app, "marta", models.RoleBaker)
	second := signUp(t, app, "oleg", models.RoleBaker)
	customerToken := signUp(t, app, "anna", models.RoleCustomer)

	var items []map[string]interface{}
	for _, token := range []string{first, second} {
		var product models.Product
		resp := call(t, app, http.MethodPost, "/api/v1/products", token, map[string]interface{}{"name": "Rye loaf", "price": "4.00"}, &product)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		items = append(items, map[string]interface{}{"product_id": product.ID, "quantity": 1})
	}

	var body struct {
		Message          string                     `json:"message"`
		Error            string                     `json:"error"`
		Orders           []models.Order             `json:"orders"`
		Notifications    []models.Notification      `json:"notifications"`
		DispatchFailures []services.DispatchFailure `json:"dispatch_failures"`
	}
	resp := call(t, app, http.MethodPost, "/api/v1/orders", customerToken, map[string]interface{}{
		"items":         items,
		"delivery_info": map[string]string{"name": "Anna", "phone": "+7 900 000-00-00", "address": "Lenina 1"},
	}, &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Order placement partially failed, some orders were created", body.Message)
	require.Len(t, body.Orders, 1)
	require.Len(t, body.Notifications, 2)
	for _, n := range body.Notifications {
		assert.Equal(t, body.Orders[0].ID, n.OrderID)
	}
	assert.Empty(t, body.DispatchFailures)
}
