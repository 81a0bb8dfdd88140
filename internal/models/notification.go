package models

import "time"

type NotificationKind string

const (
	NotifyOrderPlaced  NotificationKind = "order_placed"
	NotifyItemStatus   NotificationKind = "item_status"
	NotifyOrderStatus  NotificationKind = "order_status"
	NotifyPaymentState NotificationKind = "payment"
)

// OrderNotification is published after an order transition commits.
type OrderNotification struct {
	ID          string           `json:"id"           validate:"required"`
	Kind        NotificationKind `json:"kind"         validate:"required,oneof=order_placed item_status order_status payment"`
	OrderID     uint             `json:"order_id"     validate:"required"`
	OrderNumber string           `json:"order_number" validate:"required"`
	CustomerID  uint             `json:"customer_id"  validate:"required"`
	Status      string           `json:"status"       validate:"required"`
	Description string           `json:"description"`
	At          time.Time        `json:"at"           validate:"required"`
}
