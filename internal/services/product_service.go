package services

import (
	"context"

	"bakery/internal/errs"
	"bakery/internal/models"
	"bakery/internal/repositories"

	"github.com/google/uuid"
)

// catalogInvalidator is implemented by catalogs that cache product lookups.
type catalogInvalidator interface {
	Invalidate(productID string)
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo    repositories.ProductRepository
	catalog catalogInvalidator
}

// NewProductService creates a new ProductService. catalog may be any Catalog;
// when it caches, edits and deletions evict the product from it.
func NewProductService(repo repositories.ProductRepository, catalog Catalog) *ProductService {
	s := &ProductService{repo: repo}
	if inv, ok := catalog.(catalogInvalidator); ok {
		s.catalog = inv
	}
	return s
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct lists a new product under the requesting baker.
func (s *ProductService) CreateProduct(ctx context.Context, req Requester, product *models.Product) error {
	if err := req.requireBaker(); err != nil {
		return err
	}
	if !product.Price.IsPositive() {
		return errs.InvalidInput("price must be greater than zero")
	}
	product.ID = uuid.New().String()
	product.BakerID = req.ID
	return s.repo.Create(ctx, product)
}

// UpdateProduct changes the name, description, price and image of a product
// owned by the requester.
func (s *ProductService) UpdateProduct(ctx context.Context, req Requester, product *models.Product) error {
	if err := req.requireBaker(); err != nil {
		return err
	}
	if !product.Price.IsPositive() {
		return errs.InvalidInput("price must be greater than zero")
	}
	existing, err := s.repo.GetByID(ctx, product.ID)
	if err != nil {
		return err
	}
	if existing.BakerID != req.ID {
		return errs.Forbidden("access denied, you do not own this product")
	}
	product.BakerID = existing.BakerID
	if err := s.repo.Update(ctx, product); err != nil {
		return err
	}
	s.evict(product.ID)
	return nil
}

// DeleteProduct deletes a product owned by the requester. Existing orders keep
// their captured item names and prices.
func (s *ProductService) DeleteProduct(ctx context.Context, req Requester, id string) error {
	if err := req.requireBaker(); err != nil {
		return err
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.BakerID != req.ID {
		return errs.Forbidden("access denied, you do not own this product")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(id)
	return nil
}

func (s *ProductService) evict(id string) {
	if s.catalog != nil {
		s.catalog.Invalidate(id)
	}
}
