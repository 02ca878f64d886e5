// Package review stores product reviews and summarizes ratings.
package review

import (
	"context"
	"math"
	"sort"
	"sync"

	"storefront/internal/adapter"
	"storefront/internal/model"
)

// Summary aggregates a product's reviews.
type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"` // one decimal place, zero when there are no reviews
}

// Summarize computes the review count and average rating.
func Summarize(reviews []model.Review) Summary {
	if len(reviews) == 0 {
		return Summary{}
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	avg := float64(total) / float64(len(reviews))
	return Summary{Count: len(reviews), Average: math.Round(avg*10) / 10}
}

// Memory is an in-process review store.
type Memory struct {
	mu      sync.RWMutex
	reviews []model.Review
	nextID  int64
}

// NewMemory creates a store holding seed, which may be nil. Seed reviews
// without an ID are numbered in order.
func NewMemory(seed []model.Review) *Memory {
	m := &Memory{nextID: 1}
	for _, r := range seed {
		if r.ID == 0 {
			r.ID = m.nextID
		}
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
		m.reviews = append(m.reviews, r)
	}
	return m
}

// ReviewsByProduct returns a product's reviews, newest first.
func (m *Memory) ReviewsByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.Review{}
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CreateReview validates and stores review.
func (m *Memory) CreateReview(ctx context.Context, review *model.Review) (*model.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *review
	stored.ID = m.nextID
	m.nextID++
	m.reviews = append(m.reviews, stored)
	return &stored, nil
}

// Ensure Memory implements ReviewStore
var _ adapter.ReviewStore = (*Memory)(nil)
