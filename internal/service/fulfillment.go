package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"shop-orders/internal/metrics"
	"shop-orders/internal/models"
)

// DeriveOrderStatus computes the aggregate order status from the statuses of all items.
// Identical item statuses are adopted, a mix of shipped and delivered items reads as
// shipped, and anything else leaves the current status alone.
func DeriveOrderStatus(current models.OrderStatus, items []models.ItemStatus) models.OrderStatus {
	if len(items) == 0 {
		return current
	}

	same := true
	shippedOrDelivered := true
	for _, st := range items {
		if st != items[0] {
			same = false
		}
		if st != models.ItemShipped && st != models.ItemDelivered {
			shippedOrDelivered = false
		}
	}

	switch {
	case same:
		return items[0].OrderStatus()
	case shippedOrDelivered:
		return models.OrderShipped
	default:
		return current
	}
}

func itemEventDescription(name string, st models.ItemStatus, tracking string) string {
	switch st {
	case models.ItemProcessing:
		return fmt.Sprintf("Order item \"%s\" is being processed", name)
	case models.ItemShipped:
		if tracking != "" {
			return fmt.Sprintf("Order item \"%s\" has been shipped with tracking number %s", name, tracking)
		}
		return fmt.Sprintf("Order item \"%s\" has been shipped", name)
	case models.ItemDelivered:
		return fmt.Sprintf("Order item \"%s\" has been delivered", name)
	case models.ItemCancelled:
		return fmt.Sprintf("Order item \"%s\" has been cancelled", name)
	}
	return fmt.Sprintf("Order item \"%s\" status updated to %s", name, st)
}

// planItemTransition decides what a vendor status update does to the locked order.
func planItemTransition(o *models.Order, itemID, vendorID uint, next models.ItemStatus, tracking string, at time.Time) (models.OrderChange, error) {
	idx := -1
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 || o.Items[idx].VendorID() != vendorID {
		return models.OrderChange{}, ErrNotFoundOrUnauthorized
	}

	item := o.Items[idx]
	if !item.Status.CanTransition(next) {
		return models.OrderChange{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, item.Status, next)
	}

	statuses := o.ItemStatuses()
	statuses[idx] = next

	change := models.OrderChange{
		Items: []models.ItemChange{{ItemID: itemID, Status: next}},
		Events: []models.OrderEvent{{
			Status:      string(next),
			Description: itemEventDescription(item.ProductName, next, tracking),
			Timestamp:   at,
		}},
	}
	if tracking != "" {
		change.TrackingNumber = &tracking
	}

	if agg := DeriveOrderStatus(o.Status, statuses); agg != o.Status {
		change.Status = agg
		change.Events = append(change.Events, models.OrderEvent{
			Status:      string(agg),
			Description: fmt.Sprintf("Order status changed to %s", agg),
			Timestamp:   at,
		})
	}
	return change, nil
}

func (s *Service) SetItemStatus(ctx context.Context, p models.Principal, itemID uint, status, trackingNumber string) (models.Order, error) {
	if !p.IsVendor() {
		return models.Order{}, ErrForbidden
	}
	next, ok := models.ParseItemStatus(status)
	if !ok {
		return models.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	item, err := s.orders.GetItem(ctx, itemID)
	if isNotFound(err) {
		return models.Order{}, ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("load item %d: %w", itemID, err)
	}
	if item.VendorID() != p.SubjectID {
		return models.Order{}, ErrNotFoundOrUnauthorized
	}

	tracking := strings.TrimSpace(trackingNumber)
	var applied models.OrderChange
	order, err := s.mutate(ctx, item.OrderID, func(o *models.Order) (models.OrderChange, error) {
		c, err := planItemTransition(o, itemID, p.SubjectID, next, tracking, s.now().UTC())
		applied = c
		return c, err
	})
	if isNotFound(err) {
		return models.Order{}, ErrNotFoundOrUnauthorized
	}
	if err != nil {
		return models.Order{}, err
	}

	metrics.ItemTransitionsTotal.WithLabelValues(string(next)).Inc()
	logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"item_id":   itemID,
		"vendor_id": p.SubjectID,
		"status":    next,
	}).Info("order item status updated")

	s.notify(ctx, order, models.NotifyItemStatus, string(next), applied.Events[0].Description)
	if applied.Status != "" {
		s.notify(ctx, order, models.NotifyOrderStatus, string(applied.Status), applied.Events[len(applied.Events)-1].Description)
	}
	return order, nil
}
