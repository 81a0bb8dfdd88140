package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Vendor struct {
	ID        uint      `json:"id"    gorm:"primary_key"`
	Name      string    `json:"name"  gorm:"not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);unique_index;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID        uint            `json:"id"        gorm:"primary_key"`
	VendorID  uint            `json:"vendor_id" gorm:"index;not null"`
	Name      string          `json:"name"      gorm:"not null"`
	Price     decimal.Decimal `json:"price"     gorm:"type:numeric(12,2);not null"`
	Color     string          `json:"color,omitempty"`
	Size      string          `json:"size,omitempty"`
	ImageURL  *string         `json:"image_url"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
