package services

import (
	"context"

	"bakery/internal/errs"
	"bakery/internal/models"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a submitted cart.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// VendorBucket collects the cart lines fulfilled by one baker.
type VendorBucket struct {
	BakerID    string
	Items      []models.OrderItem
	TotalPrice decimal.Decimal
}

// PartitionCart groups cart lines by owning baker in a single pass. Buckets appear
// in the order their baker was first seen in the cart. Any unresolvable product
// fails the whole cart.
func PartitionCart(ctx context.Context, catalog Catalog, items []CartItem) ([]VendorBucket, error) {
	if len(items) == 0 {
		return nil, errs.InvalidInput("cart is empty")
	}

	var buckets []VendorBucket
	index := make(map[string]int)

	for i, item := range items {
		if item.ProductID == "" {
			return nil, errs.InvalidInput("cart item %d has no product reference, custom cakes must be placed as custom orders", i)
		}
		if item.Quantity < 1 {
			return nil, errs.InvalidInput("cart item %d: quantity must be at least 1", i)
		}

		entry, err := catalog.Lookup(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		pos, ok := index[entry.BakerID]
		if !ok {
			buckets = append(buckets, VendorBucket{BakerID: entry.BakerID, TotalPrice: decimal.Zero})
			pos = len(buckets) - 1
			index[entry.BakerID] = pos
		}

		b := &buckets[pos]
		b.Items = append(b.Items, models.OrderItem{
			ProductID: entry.ProductID,
			Name:      entry.Name,
			Quantity:  item.Quantity,
			UnitPrice: entry.Price,
		})
		b.TotalPrice = b.TotalPrice.Add(entry.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return buckets, nil
}
