package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"shop-orders/internal/models"
)

// mutate runs fn through the store, re-running it when the transaction lost a
// serialization race. fn must be safe to call more than once.
func (s *Service) mutate(ctx context.Context, orderID uint, fn models.OrderMutation) (models.Order, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.cfg.RetryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return models.Order{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		o, err := s.orders.Mutate(ctx, orderID, fn)
		if !errors.Is(err, models.ErrConflict) {
			return o, err
		}
		lastErr = err
		logrus.WithError(err).WithField("order_id", orderID).WithField("attempt", attempt+1).Warn("order mutation conflict, retrying")
	}
	return models.Order{}, fmt.Errorf("order %d: retries exhausted: %w", orderID, lastErr)
}
