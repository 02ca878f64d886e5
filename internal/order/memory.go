// Package order places orders from a cart and stores them.
package order

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/adapter"
	"storefront/internal/model"
)

// Memory is an in-process order store.
type Memory struct {
	mu     sync.RWMutex
	orders []model.Order
	nextID int64
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// ListOrders returns userID's orders, newest first.
func (m *Memory) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].OrderDate.After(out[j].OrderDate)
	})
	return out, nil
}

// GetOrder returns an order by ID.
func (m *Memory) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, o := range m.orders {
		if o.ID == id {
			c := cloneOrder(o)
			return &c, nil
		}
	}
	return nil, model.NewNotFoundError("order")
}

// CreateOrder assigns the next ID and stores a copy of order.
func (m *Memory) CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneOrder(*order)
	stored.ID = m.nextID
	m.nextID++
	m.orders = append(m.orders, stored)

	out := cloneOrder(stored)
	return &out, nil
}

func cloneOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	return o
}

// Ensure Memory implements OrderStore
var _ adapter.OrderStore = (*Memory)(nil)
