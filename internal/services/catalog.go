package services

import (
	"context"
	"time"

	"bakery/internal/repositories"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
)

// CatalogEntry is what order placement needs to know about a product.
type CatalogEntry struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	BakerID   string
}

// Catalog resolves a product reference to its price and owning baker.
// Lookup fails with errs.ErrNotFound for unknown references.
type Catalog interface {
	Lookup(ctx context.Context, productID string) (CatalogEntry, error)
}

// RepositoryCatalog reads entries straight from the product repository.
type RepositoryCatalog struct {
	products repositories.ProductRepository
}

func NewRepositoryCatalog(products repositories.ProductRepository) *RepositoryCatalog {
	return &RepositoryCatalog{products: products}
}

func (c *RepositoryCatalog) Lookup(ctx context.Context, productID string) (CatalogEntry, error) {
	p, err := c.products.GetByID(ctx, productID)
	if err != nil {
		return CatalogEntry{}, err
	}
	return CatalogEntry{ProductID: p.ID, Name: p.Name, Price: p.Price, BakerID: p.BakerID}, nil
}

// CachedCatalog keeps recently resolved entries for a bounded time. Misses and
// lookup errors are never cached.
type CachedCatalog struct {
	next  Catalog
	cache *expirable.LRU[string, CatalogEntry]
}

func NewCachedCatalog(next Catalog, size int, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		next:  next,
		cache: expirable.NewLRU[string, CatalogEntry](size, nil, ttl),
	}
}

func (c *CachedCatalog) Lookup(ctx context.Context, productID string) (CatalogEntry, error) {
	if entry, ok := c.cache.Get(productID); ok {
		return entry, nil
	}
	entry, err := c.next.Lookup(ctx, productID)
	if err != nil {
		return CatalogEntry{}, err
	}
	c.cache.Add(productID, entry)
	return entry, nil
}

// Invalidate drops a product so the next lookup sees its current price.
func (c *CachedCatalog) Invalidate(productID string) {
	c.cache.Remove(productID)
}
