package models

import "strings"

type OrderStatus string

const (
	OrderPending       OrderStatus = "PENDING"
	OrderPaid          OrderStatus = "PAID"
	OrderPaymentFailed OrderStatus = "PAYMENT_FAILED"
	OrderProcessing    OrderStatus = "PROCESSING"
	OrderShipped       OrderStatus = "SHIPPED"
	OrderDelivered     OrderStatus = "DELIVERED"
	OrderCancelled     OrderStatus = "CANCELLED"
)

type ItemStatus string

const (
	ItemProcessing ItemStatus = "PROCESSING"
	ItemShipped    ItemStatus = "SHIPPED"
	ItemDelivered  ItemStatus = "DELIVERED"
	ItemCancelled  ItemStatus = "CANCELLED"
)

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemProcessing: {ItemProcessing, ItemShipped, ItemCancelled},
	ItemShipped:    {ItemShipped, ItemDelivered, ItemCancelled},
}

// ParseItemStatus is the single place raw item statuses are canonicalised.
func ParseItemStatus(raw string) (ItemStatus, bool) {
	s := ItemStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case ItemProcessing, ItemShipped, ItemDelivered, ItemCancelled:
		return s, true
	}
	return "", false
}

func (s ItemStatus) Terminal() bool {
	return s == ItemDelivered || s == ItemCancelled
}

func (s ItemStatus) CanTransition(to ItemStatus) bool {
	for _, next := range itemTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderStatus maps an item status onto the aggregate order status of the same name.
func (s ItemStatus) OrderStatus() OrderStatus {
	return OrderStatus(s)
}

// ParseOrderStatusFilter accepts the vendor list filter values. "all" and "" mean no filter
// and are returned as the empty status.
func ParseOrderStatusFilter(raw string) (OrderStatus, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	switch OrderStatus(v) {
	case "", "ALL":
		return "", true
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return OrderStatus(v), true
	}
	return "", false
}
