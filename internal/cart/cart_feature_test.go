package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"storefront/internal/adapter"
	"storefront/internal/model"
	"storefront/internal/persist"
)

type cartTestContext struct {
	products  []model.Product
	store     *persist.Memory
	failSaves bool
	ledger    *Ledger
	err       error
}

func (c *cartTestContext) reset() {
	c.products = nil
	c.store = persist.NewMemory()
	c.failSaves = false
	c.err = nil
	c.ledger = c.newLedger()
}

func (c *cartTestContext) repo() *adapter.Mock {
	return &adapter.Mock{
		GetAllFunc: func(ctx context.Context) ([]model.Product, error) {
			return c.products, nil
		},
	}
}

func (c *cartTestContext) persistence() persist.Store {
	return &persist.Mock{
		LoadFunc: c.store.Load,
		SaveFunc: func(ctx context.Context, s *persist.Snapshot) error {
			if c.failSaves {
				return errors.New("connection refused")
			}
			return c.store.Save(ctx, s)
		},
	}
}

func (c *cartTestContext) newLedger() *Ledger {
	return New("anon:feature", c.persistence(), c.repo())
}

func (c *cartTestContext) product(id int64) (*model.Product, error) {
	for i := range c.products {
		if c.products[i].ID == id {
			return &c.products[i], nil
		}
	}
	return nil, fmt.Errorf("product %d is not in the catalog", id)
}

func (c *cartTestContext) theCatalogHasTheseProducts(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		id, err := strconv.ParseInt(row.Cells[0].Value, 10, 64)
		if err != nil {
			return err
		}
		stock, err := strconv.Atoi(row.Cells[3].Value)
		if err != nil {
			return err
		}
		c.products = append(c.products, model.Product{
			ID:            id,
			Name:          row.Cells[1].Value,
			Category:      model.CategoryEducational,
			Price:         decimal.RequireFromString(row.Cells[2].Value),
			StockQuantity: stock,
		})
	}
	return nil
}

func (c *cartTestContext) productIsInTheCart(id int64) error {
	p, err := c.product(id)
	if err != nil {
		return err
	}
	_, err = c.ledger.Add(context.Background(), p)
	return err
}

func (c *cartTestContext) theCartStoreIsUnavailable() error {
	c.failSaves = true
	return nil
}

func (c *cartTestContext) iAddProductToTheCart(id int64) error {
	p, err := c.product(id)
	if err != nil {
		return err
	}
	_, c.err = c.ledger.Add(context.Background(), p)
	return nil
}

func (c *cartTestContext) iAddProductToTheCartTimes(id int64, times int) error {
	for i := 0; i < times; i++ {
		if err := c.iAddProductToTheCart(id); err != nil {
			return err
		}
		if c.err != nil {
			return fmt.Errorf("add %d of %d failed: %w", i+1, times, c.err)
		}
	}
	return nil
}

func (c *cartTestContext) iSetTheQuantityOfProductTo(id int64, qty int) error {
	c.err = c.ledger.SetQuantity(context.Background(), id, qty)
	return nil
}

func (c *cartTestContext) iRemoveProductFromTheCart(id int64) error {
	c.err = c.ledger.Remove(context.Background(), id)
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.err = c.ledger.Clear(context.Background())
	return nil
}

func (c *cartTestContext) iReloadTheCart() error {
	c.ledger = c.newLedger()
	return c.ledger.Load(context.Background())
}

func (c *cartTestContext) theLastOperationFailsWith(code string) error {
	if c.err == nil {
		return errors.New("expected operation to fail but it succeeded")
	}
	var apiErr *model.APIError
	if !errors.As(c.err, &apiErr) {
		return fmt.Errorf("expected APIError, got %T: %v", c.err, c.err)
	}
	if apiErr.Code != code {
		return fmt.Errorf("expected code %s, got %s", code, apiErr.Code)
	}
	return nil
}

func (c *cartTestContext) theCartHoldsOfProduct(qty int, id int64) error {
	if got := c.ledger.Quantity(id); got != qty {
		return fmt.Errorf("expected quantity %d of product %d, got %d", qty, id, got)
	}
	return nil
}

func (c *cartTestContext) theCartDoesNotHoldProduct(id int64) error {
	return c.theCartHoldsOfProduct(0, id)
}

func (c *cartTestContext) theCartItemCountIs(n int) error {
	if got := c.ledger.TotalItemCount(); got != n {
		return fmt.Errorf("expected item count %d, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theCartIsEmpty() error {
	if entries := c.ledger.Snapshot(); len(entries) != 0 {
		return fmt.Errorf("expected empty cart, got %d entries", len(entries))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog has these products:$`, tc.theCatalogHasTheseProducts)
	ctx.Step(`^product (\d+) is in the cart$`, tc.productIsInTheCart)
	ctx.Step(`^the cart store is unavailable$`, tc.theCartStoreIsUnavailable)

	// When steps
	ctx.Step(`^I add product (\d+) to the cart$`, tc.iAddProductToTheCart)
	ctx.Step(`^I add product (\d+) to the cart (\d+) times$`, tc.iAddProductToTheCartTimes)
	ctx.Step(`^I set the quantity of product (\d+) to (-?\d+)$`, tc.iSetTheQuantityOfProductTo)
	ctx.Step(`^I remove product (\d+) from the cart$`, tc.iRemoveProductFromTheCart)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)
	ctx.Step(`^I reload the cart$`, tc.iReloadTheCart)

	// Then steps
	ctx.Step(`^the last operation fails with "([^"]*)"$`, tc.theLastOperationFailsWith)
	ctx.Step(`^the cart holds (\d+) of product (\d+)$`, tc.theCartHoldsOfProduct)
	ctx.Step(`^the cart does not hold product (\d+)$`, tc.theCartDoesNotHoldProduct)
	ctx.Step(`^the cart item count is (\d+)$`, tc.theCartItemCountIs)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
