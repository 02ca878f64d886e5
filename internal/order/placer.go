package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/adapter"
	"storefront/internal/checkout"
	"storefront/internal/model"
)

// DeliveryWindow is added to the order date to estimate delivery.
const DeliveryWindow = 7 * 24 * time.Hour

// Cart is the part of a cart ledger an order is placed from.
type Cart interface {
	Snapshot() []model.CartEntry
	Consume(ctx context.Context, ordered []model.CartEntry) error
}

// Placer turns a cart into a stored order.
type Placer struct {
	products adapter.ProductRepository
	orders   adapter.OrderStore
	calc     *checkout.Calculator
	logger   *slog.Logger
	now      func() time.Time
}

// NewPlacer creates a Placer.
func NewPlacer(products adapter.ProductRepository, orders adapter.OrderStore, calc *checkout.Calculator, logger *slog.Logger) *Placer {
	return &Placer{
		products: products,
		orders:   orders,
		calc:     calc,
		logger:   logger,
		now:      time.Now,
	}
}

// Place creates an order for userID from the cart's current contents and
// ships it to address. An empty userID places a guest order.
//
// Unit prices are the products' effective prices at placement time. The
// snapshotted entries are taken out of the cart only after the order store
// accepts the order; a failure to update the cart is logged and does not
// fail the placement.
func (p *Placer) Place(ctx context.Context, userID string, cart Cart, address model.PostalAddress) (*model.Order, error) {
	entries := cart.Snapshot()
	if len(entries) == 0 {
		return nil, model.NewValidationError("cart", "is empty")
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}

	lines, err := checkout.Resolve(ctx, entries, p.products)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, model.NewValidationError("cart", "no items are available")
	}

	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Entry.Quantity > line.Product.StockQuantity {
			return nil, model.NewStockExceededError(line.Product.ID, line.Entry.Quantity, line.Product.StockQuantity)
		}
		items = append(items, model.OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Entry.Quantity,
			UnitPrice: line.Product.EffectivePrice(),
		})
	}

	if userID == "" {
		userID = model.GuestUserID
	}
	placedAt := p.now().UTC()
	order := &model.Order{
		Number:            fmt.Sprintf("ORD-%d", placedAt.UnixMilli()),
		UserID:            userID,
		Items:             items,
		Totals:            p.calc.Totals(lines).Rounded(),
		Status:            model.OrderProcessing,
		ShippingAddress:   address,
		OrderDate:         placedAt,
		EstimatedDelivery: placedAt.Add(DeliveryWindow),
	}

	created, err := p.orders.CreateOrder(ctx, order)
	if err != nil {
		p.logger.ErrorContext(ctx, "order creation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := cart.Consume(ctx, entries); err != nil {
		p.logger.WarnContext(ctx, "order placed but cart not cleared",
			slog.String("order", created.Number),
			slog.String("error", err.Error()),
		)
	}

	p.logger.InfoContext(ctx, "order placed",
		slog.String("order", created.Number),
		slog.Int64("order_id", created.ID),
		slog.Int("items", len(created.Items)),
		slog.String("total", model.FormatAmount(created.Totals.GrandTotal)),
	)
	return created, nil
}
