package adapter

import (
	"context"

	"storefront/internal/model"
)

// Mock implements Backend for testing.
// Each method can be configured via function fields.
type Mock struct {
	GetAllFunc           func(ctx context.Context) ([]model.Product, error)
	GetByIDFunc          func(ctx context.Context, id int64) (*model.Product, error)
	GetByCategoryFunc    func(ctx context.Context, category model.Category) ([]model.Product, error)
	SearchFunc           func(ctx context.Context, text string) ([]model.Product, error)
	ListOrdersFunc       func(ctx context.Context, userID string) ([]model.Order, error)
	GetOrderFunc         func(ctx context.Context, id int64) (*model.Order, error)
	CreateOrderFunc      func(ctx context.Context, order *model.Order) (*model.Order, error)
	ReviewsByProductFunc func(ctx context.Context, productID int64) ([]model.Review, error)
	CreateReviewFunc     func(ctx context.Context, review *model.Review) (*model.Review, error)
}

// GetAll calls the configured GetAllFunc or returns an empty catalog.
func (m *Mock) GetAll(ctx context.Context) ([]model.Product, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx)
	}
	return []model.Product{}, nil
}

// GetByID calls the configured GetByIDFunc. Without one, it searches
// GetAll so tests can configure a catalog in one place.
func (m *Mock) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	products, err := m.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			p := products[i]
			return &p, nil
		}
	}
	return nil, model.NewNotFoundError("product")
}

// GetByCategory calls the configured GetByCategoryFunc or returns an empty list.
func (m *Mock) GetByCategory(ctx context.Context, category model.Category) ([]model.Product, error) {
	if m.GetByCategoryFunc != nil {
		return m.GetByCategoryFunc(ctx, category)
	}
	return []model.Product{}, nil
}

// Search calls the configured SearchFunc or returns an empty list.
func (m *Mock) Search(ctx context.Context, text string) ([]model.Product, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, text)
	}
	return []model.Product{}, nil
}

// ListOrders calls the configured ListOrdersFunc or returns no orders.
func (m *Mock) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, userID)
	}
	return []model.Order{}, nil
}

// GetOrder calls the configured GetOrderFunc or returns an error.
func (m *Mock) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, id)
	}
	return nil, model.NewNotFoundError("order")
}

// CreateOrder calls the configured CreateOrderFunc or returns an error.
func (m *Mock) CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, order)
	}
	return nil, model.NewInternalError(nil)
}

// ReviewsByProduct calls the configured ReviewsByProductFunc or returns no reviews.
func (m *Mock) ReviewsByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	if m.ReviewsByProductFunc != nil {
		return m.ReviewsByProductFunc(ctx, productID)
	}
	return []model.Review{}, nil
}

// CreateReview calls the configured CreateReviewFunc or returns an error.
func (m *Mock) CreateReview(ctx context.Context, review *model.Review) (*model.Review, error) {
	if m.CreateReviewFunc != nil {
		return m.CreateReviewFunc(ctx, review)
	}
	return nil, model.NewInternalError(nil)
}

// Ensure Mock implements Backend
var _ Backend = (*Mock)(nil)
