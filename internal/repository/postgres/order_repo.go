package postgres

import (
	"context"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"shop-orders/internal/models"
)

type OrderPostgresRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOrderPostgres(db *gorm.DB) *OrderPostgresRepo {
	return &OrderPostgresRepo{db: db, now: time.Now}
}

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id ASC")
}

func timelineInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("order_events.timestamp ASC, order_events.id ASC")
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", itemsInOrder).
		Preload("Items.Product").
		Preload("Timeline", timelineInOrder)
}

// Create inserts the order, its items and its initial timeline in one transaction.
func (r *OrderPostgresRepo) Create(ctx context.Context, o *models.Order) error {
	return withTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Set("gorm:association_autoupdate", false).Create(o).Error; err != nil {
			return errors.Wrapf(err, "create order %s", o.OrderNumber)
		}
		return nil
	})
}

func (r *OrderPostgresRepo) Get(ctx context.Context, id uint) (models.Order, error) {
	var o models.Order
	err := withDetails(r.db).Where("id = ?", id).First(&o).Error
	return o, err
}

func (r *OrderPostgresRepo) GetByNumber(ctx context.Context, number string) (models.Order, error) {
	var o models.Order
	err := withDetails(r.db).Where("order_number = ?", number).First(&o).Error
	return o, err
}

func (r *OrderPostgresRepo) GetItem(ctx context.Context, itemID uint) (models.OrderItem, error) {
	var it models.OrderItem
	err := r.db.Preload("Product").Where("id = ?", itemID).First(&it).Error
	return it, err
}

func (r *OrderPostgresRepo) ListByCustomer(ctx context.Context, customerID uint) ([]models.Order, error) {
	out := []models.Order{}
	err := r.db.Preload("Items", itemsInOrder).
		Preload("Items.Product").
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func vendorOrderIDs(db *gorm.DB, vendorID uint) *gorm.DB {
	return db.Table("order_items").
		Select("DISTINCT order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("products.vendor_id = ?", vendorID)
}

// ListByVendor returns the page of orders that contain at least one of the vendor's
// items, newest first, with every item loaded. Projection happens in the service.
func (r *OrderPostgresRepo) ListByVendor(ctx context.Context, vendorID uint, q models.VendorOrderQuery) ([]models.Order, int, error) {
	scoped := r.db.Model(&models.Order{}).
		Where("orders.id IN ?", vendorOrderIDs(r.db, vendorID).SubQuery())
	if q.Status != "" {
		scoped = scoped.Where("orders.status = ?", q.Status)
	}

	var total int
	if err := scoped.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count vendor orders")
	}

	out := []models.Order{}
	err := scoped.Preload("Items", itemsInOrder).
		Preload("Items.Product").
		Order("orders.created_at DESC, orders.id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list vendor orders")
	}
	return out, total, nil
}

func (r *OrderPostgresRepo) VendorItemStatusCounts(ctx context.Context, vendorID uint) (map[models.ItemStatus]int, error) {
	rows, err := r.db.Table("order_items").
		Select("order_items.status, COUNT(*)").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("products.vendor_id = ?", vendorID).
		Group("order_items.status").
		Rows()
	if err != nil {
		return nil, errors.Wrap(err, "count vendor items")
	}
	defer rows.Close()

	out := make(map[models.ItemStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "scan vendor item count")
		}
		out[models.ItemStatus(status)] = n
	}
	return out, rows.Err()
}

// Mutate locks the order row, hands the order with its items to fn and persists the
// returned change before committing. Concurrent mutations of one order serialize on
// the row lock.
func (r *OrderPostgresRepo) Mutate(ctx context.Context, orderID uint, fn models.OrderMutation) (models.Order, error) {
	var out models.Order
	err := withTx(ctx, r.db, func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Set("gorm:query_option", "FOR UPDATE").Where("id = ?", orderID).First(&o).Error; err != nil {
			return err
		}
		if err := itemsInOrder(tx.Preload("Product")).Where("order_id = ?", o.ID).Find(&o.Items).Error; err != nil {
			return errors.Wrap(err, "load items")
		}

		change, err := fn(&o)
		if err != nil {
			return err
		}
		if !change.IsZero() {
			if err := r.apply(tx, o.ID, change); err != nil {
				return err
			}
		}

		return withDetails(tx).Where("id = ?", o.ID).First(&out).Error
	})
	return out, err
}

func (r *OrderPostgresRepo) apply(tx *gorm.DB, orderID uint, c models.OrderChange) error {
	now := r.now().UTC()

	for _, ic := range c.Items {
		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND order_id = ?", ic.ItemID, orderID).
			Updates(map[string]interface{}{"status": ic.Status, "updated_at": now})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "update item %d", ic.ItemID)
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(gorm.ErrRecordNotFound, "item %d of order %d", ic.ItemID, orderID)
		}
	}

	fields := map[string]interface{}{}
	if c.Status != "" {
		fields["status"] = c.Status
	}
	if c.TrackingNumber != nil {
		fields["tracking_number"] = *c.TrackingNumber
	}
	if len(fields) > 0 || len(c.Items) > 0 {
		fields["updated_at"] = now
		if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(fields).Error; err != nil {
			return errors.Wrapf(err, "update order %d", orderID)
		}
	}

	for i := range c.Events {
		ev := c.Events[i]
		ev.ID = 0
		ev.OrderID = orderID
		if ev.Timestamp.IsZero() {
			ev.Timestamp = now
		}
		if err := tx.Create(&ev).Error; err != nil {
			return errors.Wrapf(err, "append event to order %d", orderID)
		}
	}
	return nil
}
