package models

import "errors"

// ErrConflict is returned by the store when a transaction lost a serialization race.
// Callers re-read and reapply.
var ErrConflict = errors.New("concurrent update conflict")

type ItemChange struct {
	ItemID uint
	Status ItemStatus
}

// OrderChange is what an OrderMutation asks the store to persist in the same
// transaction that loaded the order. Zero fields are left untouched.
type OrderChange struct {
	Status         OrderStatus
	TrackingNumber *string
	Items          []ItemChange
	Events         []OrderEvent
}

func (c OrderChange) IsZero() bool {
	return c.Status == "" && c.TrackingNumber == nil && len(c.Items) == 0 && len(c.Events) == 0
}

// OrderMutation receives the locked order with its items and products loaded.
type OrderMutation func(o *Order) (OrderChange, error)

type VendorOrderQuery struct {
	Status OrderStatus
	Offset int
	Limit  int
}
