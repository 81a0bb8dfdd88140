package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shop-orders/internal/models"
)

// notify publishes after commit. Failures are logged and never undo the transition.
func (s *Service) notify(ctx context.Context, o models.Order, kind models.NotificationKind, status, description string) {
	n := models.OrderNotification{
		ID:          uuid.NewString(),
		Kind:        kind,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      status,
		Description: description,
		At:          s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logrus.WithError(err).
			WithField("order_id", o.ID).
			WithField("kind", kind).
			Warn("order notification not published")
	}
}

// NotificationService is the consumer side of order notifications. Email delivery is a
// log line.
type NotificationService struct {
	v *validator.Validate
}

func NewNotificationService() *NotificationService {
	return &NotificationService{v: validator.New()}
}

func (n *NotificationService) HandleMessage(ctx context.Context, payload []byte) error {
	var msg models.OrderNotification
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := validateStruct(n.v, msg); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"notification_id": msg.ID,
		"customer_id":     msg.CustomerID,
		"order_number":    msg.OrderNumber,
		"kind":            msg.Kind,
		"status":          msg.Status,
	}).Infof("email to customer %d: order %s: %s", msg.CustomerID, msg.OrderNumber, msg.Description)
	return nil
}
