package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// parseTime accepts RFC 3339 timestamps with or without fractional seconds,
// and bare dates. Anything else yields the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// splitTags splits the comma-separated tag field.
func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return catalog.NormalizeTags(strings.Split(s, ","))
}

// toProduct maps a product record to the canonical type. A malformed
// embedded JSON document leaves the corresponding field empty.
func (r productRecord) toProduct() model.Product {
	p := model.Product{
		ID:            r.ID,
		Name:          r.Name,
		Brand:         r.Brand,
		Description:   r.Description,
		Category:      model.Category(r.Category),
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		AgeMin:        r.AgeMin,
		AgeMax:        r.AgeMax,
		Rating:        r.Rating,
		ReviewCount:   r.ReviewCount,
		Tags:          splitTags(r.Tags),
		IsFeatured:    r.IsFeatured,
		CreatedAt:     parseTime(r.CreatedAt),
		Weight:        r.Weight,
		Material:      r.Material,
	}
	// Only a discount counts as a sale
	if r.SalePrice != nil && r.SalePrice.LessThan(r.Price) {
		sale := *r.SalePrice
		p.SalePrice = &sale
	}
	if r.Images != "" {
		var images []string
		if json.Unmarshal([]byte(r.Images), &images) == nil {
			p.Images = images
		}
	}
	if r.Dimensions != "" {
		var dims model.Dimensions
		if json.Unmarshal([]byte(r.Dimensions), &dims) == nil {
			p.Dimensions = &dims
		}
	}
	return p
}

func toProducts(records []productRecord) []model.Product {
	products := make([]model.Product, 0, len(records))
	for _, r := range records {
		products = append(products, r.toProduct())
	}
	return products
}

// toOrder maps an order record. Records written before the split totals
// existed only carry total_c; their subtotal is taken to be the total.
func (r orderRecord) toOrder() (model.Order, error) {
	o := model.Order{
		ID:                r.ID,
		Number:            r.Name,
		UserID:            r.UserID,
		Status:            model.OrderStatus(r.Status),
		OrderDate:         parseTime(r.OrderDate),
		EstimatedDelivery: parseTime(r.EstimatedDelivery),
		Items:             []model.OrderItem{},
	}

	if r.Items != "" {
		var items []orderItemRecord
		if err := json.Unmarshal([]byte(r.Items), &items); err != nil {
			return model.Order{}, fmt.Errorf("order %d: decoding items: %w", r.ID, err)
		}
		for _, it := range items {
			o.Items = append(o.Items, model.OrderItem{
				ProductID: it.ProductID,
				Name:      it.Name,
				Quantity:  it.Quantity,
				UnitPrice: it.Price,
			})
		}
	}

	if r.ShippingAddress != "" {
		if err := json.Unmarshal([]byte(r.ShippingAddress), &o.ShippingAddress); err != nil {
			return model.Order{}, fmt.Errorf("order %d: decoding shipping address: %w", r.ID, err)
		}
	}

	o.Totals.GrandTotal = r.Total
	o.Totals.Subtotal = r.Total
	if r.Subtotal != nil {
		o.Totals.Subtotal = *r.Subtotal
	}
	if r.Shipping != nil {
		o.Totals.Shipping = *r.Shipping
	}
	if r.Tax != nil {
		o.Totals.Tax = *r.Tax
	}
	return o, nil
}

func fromOrder(o *model.Order) (orderRecord, error) {
	items := make([]orderItemRecord, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemRecord{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
		}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return orderRecord{}, fmt.Errorf("encoding items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return orderRecord{}, fmt.Errorf("encoding shipping address: %w", err)
	}

	subtotal, shipping, tax := o.Totals.Subtotal, o.Totals.Shipping, o.Totals.Tax
	return orderRecord{
		Name:              o.Number,
		UserID:            o.UserID,
		Items:             string(itemsJSON),
		Subtotal:          &subtotal,
		Shipping:          &shipping,
		Tax:               &tax,
		Total:             o.Totals.GrandTotal,
		Status:            string(o.Status),
		ShippingAddress:   string(addressJSON),
		OrderDate:         formatTime(o.OrderDate),
		EstimatedDelivery: formatTime(o.EstimatedDelivery),
	}, nil
}

func (r reviewRecord) toReview() model.Review {
	return model.Review{
		ID:               r.ID,
		ProductID:        r.ProductID,
		UserName:         r.UserName,
		Rating:           r.Rating,
		Title:            r.Title,
		Comment:          r.Comment,
		VerifiedPurchase: r.VerifiedPurchase,
		HelpfulCount:     r.HelpfulCount,
		CreatedAt:        parseTime(r.CreatedAt),
	}
}

func fromReview(rv *model.Review) reviewRecord {
	return reviewRecord{
		Name:             "Review by " + rv.UserName,
		ProductID:        rv.ProductID,
		UserName:         rv.UserName,
		Rating:           rv.Rating,
		Title:            rv.Title,
		Comment:          rv.Comment,
		VerifiedPurchase: rv.VerifiedPurchase,
		HelpfulCount:     rv.HelpfulCount,
		CreatedAt:        formatTime(rv.CreatedAt),
	}
}
