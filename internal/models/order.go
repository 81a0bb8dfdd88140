package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "COD"
	PaymentVNPay PaymentMethod = "VNPAY"
)

type Order struct {
	ID              uint            `json:"id"               gorm:"primary_key"`
	OrderNumber     string          `json:"order_number"     gorm:"type:varchar(64);unique_index;not null"`
	CustomerID      uint            `json:"customer_id"      gorm:"index;not null"`
	CustomerName    string          `json:"customer_name"    gorm:"not null"`
	Phone           string          `json:"phone,omitempty"`
	ShippingAddress string          `json:"shipping_address" gorm:"type:text;not null"`
	TrackingNumber  *string         `json:"tracking_number"`
	PaymentMethod   PaymentMethod   `json:"payment_method"   gorm:"type:varchar(16);not null"`
	TotalAmount     decimal.Decimal `json:"total_amount"     gorm:"type:numeric(12,2);not null"`
	Status          OrderStatus     `json:"status"           gorm:"type:varchar(32);index;not null"`
	Items           []OrderItem     `json:"items"            gorm:"foreignkey:OrderID"`
	Timeline        []OrderEvent    `json:"timeline,omitempty" gorm:"foreignkey:OrderID"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemsTotal sums price × quantity over the order's current item list.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (o Order) ItemStatuses() []ItemStatus {
	out := make([]ItemStatus, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, it.Status)
	}
	return out
}

type OrderItem struct {
	ID          uint            `json:"id"           gorm:"primary_key"`
	OrderID     uint            `json:"order_id"     gorm:"index;not null"`
	ProductID   uint            `json:"product_id"   gorm:"index;not null"`
	Product     *Product        `json:"-"            gorm:"foreignkey:ProductID;association_autoupdate:false;association_autocreate:false"`
	ProductName string          `json:"product_name" gorm:"not null"`
	Price       decimal.Decimal `json:"price"        gorm:"type:numeric(12,2);not null"`
	Quantity    int             `json:"quantity"     gorm:"not null"`
	Color       string          `json:"color,omitempty"`
	Size        string          `json:"size,omitempty"`
	Image       *string         `json:"image"`
	Status      ItemStatus      `json:"status"       gorm:"type:varchar(32);not null"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// VendorID is derived from the owning product; zero when the product was not loaded.
func (i OrderItem) VendorID() uint {
	if i.Product == nil {
		return 0
	}
	return i.Product.VendorID
}

type OrderEvent struct {
	ID          uint      `json:"id"          gorm:"primary_key"`
	OrderID     uint      `json:"-"           gorm:"index;not null"`
	Status      string    `json:"status"      gorm:"type:varchar(64);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Timestamp   time.Time `json:"timestamp"   gorm:"not null;index"`
}
