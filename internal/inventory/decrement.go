package inventory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/himspired1/himspired-sub000/internal/notify"
)

// ConfirmSale permanently reduces on-hand stock for a confirmed order.
// It is not idempotent; the order status transition guard is the
// de-duplication point and must invoke this exactly once per order.
//
// The stock write is the operation: if it fails, the caller gets an
// error and nothing is reported as sold. The re-poll notification and
// cache invalidation are best effort and only logged on failure.
func (s *Service) ConfirmSale(ctx context.Context, productID string, quantity int, orderID string) error {
	if productID == "" || quantity <= 0 {
		return fmt.Errorf("%w: product id and positive quantity are required", ErrInvalidInput)
	}

	product, err := s.products.Fetch(ctx, productID)
	if err != nil {
		return err
	}

	newStock := product.Stock - quantity
	if newStock < 0 {
		// Oversold; recoverable by refund. Stock never goes negative.
		log.Printf("order %s oversells product %s: stock %d, sold %d", orderID, productID, product.Stock, quantity)
		newStock = 0
	}

	if err := s.products.SetStock(ctx, productID, newStock); err != nil {
		return fmt.Errorf("failed to commit sale for order %s: %w", orderID, err)
	}

	if verify, err := s.products.Fetch(ctx, productID); err != nil {
		log.Printf("post-sale verification read failed for product %s: %v", productID, err)
	} else if verify.Stock != newStock {
		log.Printf("post-sale stock mismatch for product %s: wrote %d, read %d", productID, newStock, verify.Stock)
	}

	if err := s.notifier.StockChanged(ctx, notify.StockChangedEvent{
		ProductID:  productID,
		Stock:      newStock,
		OrderID:    orderID,
		OccurredAt: time.Now(),
	}); err != nil {
		log.Printf("stock change notification failed for product %s: %v", productID, err)
	}

	s.invalidateProduct(productID)

	return nil
}
