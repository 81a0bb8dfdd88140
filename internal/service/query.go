package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"shop-orders/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type VendorOrderFilter struct {
	Status string
	Page   int
	Limit  int
}

type VendorOrderPage struct {
	Orders     []models.Order `json:"orders"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

type VendorStats struct {
	Total      int `json:"total"`
	Processing int `json:"processing"`
	Shipped    int `json:"shipped"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
}

func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (models.Order, error) {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if isNotFound(err) {
		return models.Order{}, ErrOrderNotFound
	}
	return o, err
}

func (s *Service) ListCustomerOrders(ctx context.Context, p models.Principal) ([]models.Order, error) {
	if !p.IsCustomer() {
		return nil, ErrForbidden
	}
	return s.orders.ListByCustomer(ctx, p.SubjectID)
}

// GetCustomerOrder hides other customers' orders behind the same not-found error.
func (s *Service) GetCustomerOrder(ctx context.Context, p models.Principal, orderID uint) (models.Order, error) {
	if !p.IsCustomer() {
		return models.Order{}, ErrForbidden
	}
	o, err := s.orders.Get(ctx, orderID)
	if isNotFound(err) {
		return models.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	if o.CustomerID != p.SubjectID {
		return models.Order{}, ErrOrderNotFound
	}
	return o, nil
}

// vendorView reduces o to the vendor's items and recomputes the total from them.
func vendorView(o models.Order, vendorID uint) models.Order {
	items := make([]models.OrderItem, 0, len(o.Items))
	total := decimal.Zero
	for _, it := range o.Items {
		if it.VendorID() != vendorID {
			continue
		}
		items = append(items, it)
		total = total.Add(it.Subtotal())
	}
	o.Items = items
	o.TotalAmount = total
	return o
}

func (s *Service) ListVendorOrders(ctx context.Context, p models.Principal, f VendorOrderFilter) (VendorOrderPage, error) {
	if !p.IsVendor() {
		return VendorOrderPage{}, ErrForbidden
	}
	status, ok := models.ParseOrderStatusFilter(f.Status)
	if !ok {
		return VendorOrderPage{}, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	orders, total, err := s.orders.ListByVendor(ctx, p.SubjectID, models.VendorOrderQuery{
		Status: status,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return VendorOrderPage{}, err
	}

	out := VendorOrderPage{
		Orders:     make([]models.Order, 0, len(orders)),
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	for _, o := range orders {
		out.Orders = append(out.Orders, vendorView(o, p.SubjectID))
	}
	return out, nil
}

func (s *Service) GetVendorOrder(ctx context.Context, p models.Principal, orderID uint) (models.Order, error) {
	if !p.IsVendor() {
		return models.Order{}, ErrForbidden
	}
	o, err := s.orders.Get(ctx, orderID)
	if isNotFound(err) {
		return models.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, err
	}

	view := vendorView(o, p.SubjectID)
	if len(view.Items) == 0 {
		return models.Order{}, ErrOrderNotFound
	}
	return view, nil
}

func (s *Service) VendorOrderStats(ctx context.Context, p models.Principal) (VendorStats, error) {
	if !p.IsVendor() {
		return VendorStats{}, ErrForbidden
	}
	counts, err := s.orders.VendorItemStatusCounts(ctx, p.SubjectID)
	if err != nil {
		return VendorStats{}, err
	}

	st := VendorStats{
		Processing: counts[models.ItemProcessing],
		Shipped:    counts[models.ItemShipped],
		Delivered:  counts[models.ItemDelivered],
		Cancelled:  counts[models.ItemCancelled],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}
