package store

import (
	"context"
	"errors"

	"genfity-analytics-service/internal/analytics"
)

var ErrMerchantNotFound = errors.New("merchant not found")

// OrderRepository loads the candidate order set the engine filters. The window
// only narrows the read; the engine re-applies it.
type OrderRepository interface {
	ListOrders(ctx context.Context, merchantID int64, window analytics.DateRange) ([]analytics.Order, error)
	// ActiveMerchantIDs lists merchants with at least one order in window.
	ActiveMerchantIDs(ctx context.Context, window analytics.DateRange) ([]int64, error)
}
