// Package adapter defines the interfaces storefront backends implement.
// Backends translate their own record shapes into canonical model types,
// so nothing above this layer sees backend field naming.
package adapter

import (
	"context"

	"storefront/internal/model"
)

// ProductRepository is read-only access to the product collection.
//
// All methods are side-effect free. Backend failures are returned as
// model.ErrRemoteFailure so callers may retry.
type ProductRepository interface {
	// GetAll returns every product in catalog order.
	GetAll(ctx context.Context) ([]model.Product, error)

	// GetByID returns the product or a NOT_FOUND error.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByCategory returns products in one category, in catalog order.
	GetByCategory(ctx context.Context, category model.Category) ([]model.Product, error)

	// Search matches text case-insensitively against name, brand,
	// description and category (substring, any field).
	Search(ctx context.Context, text string) ([]model.Product, error)
}

// OrderStore persists placed orders.
type OrderStore interface {
	// ListOrders returns a user's orders, newest first.
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)

	// GetOrder returns one order or a NOT_FOUND error.
	GetOrder(ctx context.Context, id int64) (*model.Order, error)

	// CreateOrder stores the order and returns it with its assigned ID.
	CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error)
}

// ReviewStore persists product reviews.
type ReviewStore interface {
	// ReviewsByProduct returns a product's reviews, newest first.
	ReviewsByProduct(ctx context.Context, productID int64) ([]model.Review, error)

	// CreateReview stores the review and returns it with its assigned ID.
	CreateReview(ctx context.Context, review *model.Review) (*model.Review, error)
}

// Backend is a single remote service that serves every store.
type Backend interface {
	ProductRepository
	OrderStore
	ReviewStore
}

// Compose joins separate stores into one Backend.
func Compose(products ProductRepository, orders OrderStore, reviews ReviewStore) Backend {
	return composite{products, orders, reviews}
}

type composite struct {
	ProductRepository
	OrderStore
	ReviewStore
}
