package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bakery/internal/errs"
	"bakery/internal/models"
	"bakery/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]models.User), args.Error(1)
}

func TestAuthService_RegisterUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, "test_jwt_secret")

	// Test successful registration
	user := &models.User{Name: "Marta", Email: " Marta@Example.com ", Password: "password123", Role: models.RoleBaker}
	mockRepo.On("GetByEmail", ctx, "marta@example.com").Return(nil, errs.New(errs.ErrNotFound, "user not found")).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(ctx, user)
	assert.NoError(t, err)
	assert.Equal(t, "marta@example.com", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByEmail", ctx, "marta@example.com").Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, &models.User{Name: "Marta", Email: "marta@example.com", Password: "password123"})
	assert.True(t, errors.Is(err, errs.ErrConflict))
	assert.Contains(t, err.Error(), "email 'marta@example.com' already registered")
	mockRepo.AssertExpectations(t)

	// Role defaults to customer
	customer := &models.User{Name: "Ivan", Email: "ivan@example.com", Password: "password123"}
	mockRepo.On("GetByEmail", ctx, "ivan@example.com").Return(nil, errs.New(errs.ErrNotFound, "user not found")).Once()
	mockRepo.On("Create", ctx, customer).Return(nil).Once()
	assert.NoError(t, authService.RegisterUser(ctx, customer))
	assert.Equal(t, models.RoleCustomer, customer.Role)

	// Invalid input never reaches the repository
	err = authService.RegisterUser(ctx, &models.User{Email: "x@example.com", Password: "123"})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	err = authService.RegisterUser(ctx, &models.User{Email: "x@example.com", Password: "password123", Role: "admin"})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(mockRepo, testJWTSecret)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Name:     "Marta",
		Email:    "marta@example.com",
		Password: string(hashedPassword),
		Role:     models.RoleBaker,
	}

	// Test successful login
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	token, loggedIn, err := authService.LoginUser(ctx, "marta@example.com", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, "baker", claims["role"])
	assert.Equal(t, "Marta", claims["name"])
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByEmail", ctx, user.Email).Return(user, nil).Once()
	_, _, err = authService.LoginUser(ctx, "marta@example.com", "wrongpassword")
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	assert.Contains(t, err.Error(), "invalid credentials")
	mockRepo.AssertExpectations(t)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, errs.New(errs.ErrNotFound, "user with email nobody@example.com not found")).Once()
	_, _, err = authService.LoginUser(ctx, "nobody@example.com", "password123")
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	assert.Contains(t, err.Error(), "invalid credentials") // Should return generic invalid credentials message
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(mockRepo, testJWTSecret)

	// Generate a valid token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"name":    "Marta",
		"role":    "baker",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	req, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, services.Requester{ID: "user-123", Role: models.RoleBaker, Name: "Marta"}, req)
	assert.True(t, req.IsBaker())

	// Test malformed token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	assert.Contains(t, err.Error(), "invalid token")

	// Test token signed with another secret
	forged, _ := token.SignedString([]byte("other_secret"))
	_, err = authService.ValidateToken(forged)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))

	// Test expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"role":    "customer",
		"exp":     jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	assert.Contains(t, err.Error(), "invalid token")

	// Token without a subject
	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": jwt.TimeFunc().Add(time.Hour).Unix()})
	anonymousString, _ := anonymous.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(anonymousString)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
}
