package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"shop-orders/internal/models"
	"shop-orders/internal/repository"
)

// memStore is an in-memory order store and catalog. Mutate holds the store lock for the
// whole call, which gives the same serialization as the row lock in Postgres.
type memStore struct {
	mu sync.Mutex

	nextOrder, nextItem, nextEvent uint
	orders                         map[uint]*models.Order
	products                       map[uint]models.Product

	createErr   error
	conflicts   int
	mutateCalls int
}

var _ repository.OrderPostgres = (*memStore)(nil)
var _ repository.ProductCatalog = (*memStore)(nil)

func newMemStore() *memStore {
	img := "https://cdn.example.com/sneakers.jpg"
	return &memStore{
		orders: map[uint]*models.Order{},
		products: map[uint]models.Product{
			1: {ID: 1, VendorID: 10, Name: "Sneakers", Price: decimal.RequireFromString("449.00"), Color: "white", Size: "42", ImageURL: &img},
			2: {ID: 2, VendorID: 20, Name: "Socks", Price: decimal.RequireFromString("25.50"), Color: "black", Size: "M"},
			3: {ID: 3, VendorID: 10, Name: "Cap", Price: decimal.RequireFromString("15.00")},
		},
	}
}

func (m *memStore) GetProduct(_ context.Context, id uint) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (m *memStore) copyOrder(o *models.Order) models.Order {
	out := *o
	out.Items = make([]models.OrderItem, len(o.Items))
	for i, it := range o.Items {
		if p, ok := m.products[it.ProductID]; ok {
			p := p
			it.Product = &p
		}
		out.Items[i] = it
	}
	out.Timeline = append([]models.OrderEvent(nil), o.Timeline...)
	if o.TrackingNumber != nil {
		tn := *o.TrackingNumber
		out.TrackingNumber = &tn
	}
	return out
}

func (m *memStore) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextOrder++
	o.ID = m.nextOrder
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		m.nextItem++
		o.Items[i].ID = m.nextItem
		o.Items[i].OrderID = o.ID
	}
	for i := range o.Timeline {
		m.nextEvent++
		o.Timeline[i].ID = m.nextEvent
		o.Timeline[i].OrderID = o.ID
	}
	stored := m.copyOrder(o)
	for i := range stored.Items {
		stored.Items[i].Product = nil
	}
	m.orders[o.ID] = &stored
	return nil
}

func (m *memStore) Get(_ context.Context, id uint) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, gorm.ErrRecordNotFound
	}
	return m.copyOrder(o), nil
}

func (m *memStore) GetByNumber(_ context.Context, number string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.OrderNumber == number {
			return m.copyOrder(o), nil
		}
	}
	return models.Order{}, gorm.ErrRecordNotFound
}

func (m *memStore) GetItem(_ context.Context, itemID uint) (models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		for _, it := range m.copyOrder(o).Items {
			if it.ID == itemID {
				return it, nil
			}
		}
	}
	return models.OrderItem{}, gorm.ErrRecordNotFound
}

func (m *memStore) sortedIDs() []uint {
	ids := make([]uint, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids
}

func (m *memStore) ListByCustomer(_ context.Context, customerID uint) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, id := range m.sortedIDs() {
		if o := m.orders[id]; o.CustomerID == customerID {
			out = append(out, m.copyOrder(o))
		}
	}
	return out, nil
}

func (m *memStore) ListByVendor(_ context.Context, vendorID uint, q models.VendorOrderQuery) ([]models.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Order
	for _, id := range m.sortedIDs() {
		o := m.copyOrder(m.orders[id])
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		for _, it := range o.Items {
			if it.VendorID() == vendorID {
				matched = append(matched, o)
				break
			}
		}
	}
	total := len(matched)
	if q.Offset >= total {
		return []models.Order{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}

func (m *memStore) VendorItemStatusCounts(_ context.Context, vendorID uint) (map[models.ItemStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[models.ItemStatus]int{}
	for _, o := range m.orders {
		for _, it := range m.copyOrder(o).Items {
			if it.VendorID() == vendorID {
				out[it.Status]++
			}
		}
	}
	return out, nil
}

func (m *memStore) Mutate(_ context.Context, orderID uint, fn models.OrderMutation) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutateCalls++
	if m.conflicts > 0 {
		m.conflicts--
		return models.Order{}, errors.Wrap(models.ErrConflict, "could not serialize access")
	}

	stored, ok := m.orders[orderID]
	if !ok {
		return models.Order{}, errors.Wrapf(gorm.ErrRecordNotFound, "order %d", orderID)
	}
	work := m.copyOrder(stored)
	change, err := fn(&work)
	if err != nil {
		return models.Order{}, err
	}

	for _, ic := range change.Items {
		found := false
		for i := range stored.Items {
			if stored.Items[i].ID == ic.ItemID {
				stored.Items[i].Status = ic.Status
				found = true
			}
		}
		if !found {
			return models.Order{}, fmt.Errorf("item %d: %w", ic.ItemID, gorm.ErrRecordNotFound)
		}
	}
	if change.Status != "" {
		stored.Status = change.Status
	}
	if change.TrackingNumber != nil {
		tn := *change.TrackingNumber
		stored.TrackingNumber = &tn
	}
	for _, ev := range change.Events {
		m.nextEvent++
		ev.ID = m.nextEvent
		ev.OrderID = orderID
		stored.Timeline = append(stored.Timeline, ev)
	}
	return m.copyOrder(stored), nil
}

func (m *memStore) order(id uint) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyOrder(m.orders[id])
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type idemStub struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (i *idemStub) Claim(_ context.Context, key string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return false, i.err
	}
	if i.seen == nil {
		i.seen = map[string]bool{}
	}
	if i.seen[key] {
		return false, nil
	}
	i.seen[key] = true
	return true, nil
}

type notifierStub struct {
	mu  sync.Mutex
	got []models.OrderNotification
	err error
}

func (n *notifierStub) Notify(_ context.Context, msg models.OrderNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, msg)
	return n.err
}

func (n *notifierStub) kinds() []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.NotificationKind, 0, len(n.got))
	for _, m := range n.got {
		out = append(out, m.Kind)
	}
	return out
}
