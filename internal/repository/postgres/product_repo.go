package postgres

import (
	"context"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"shop-orders/internal/models"
)

type ProductPostgresRepo struct {
	db *gorm.DB
}

func NewProductPostgres(db *gorm.DB) *ProductPostgresRepo {
	return &ProductPostgresRepo{db: db}
}

func (r *ProductPostgresRepo) GetProduct(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := r.db.Where("id = ?", id).First(&p).Error
	return p, err
}

// Seed helpers used by cmd/seed and the integration tests.

func (r *ProductPostgresRepo) CreateVendor(ctx context.Context, v *models.Vendor) error {
	return errors.Wrap(r.db.Create(v).Error, "create vendor")
}

func (r *ProductPostgresRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return errors.Wrap(r.db.Create(p).Error, "create product")
}
