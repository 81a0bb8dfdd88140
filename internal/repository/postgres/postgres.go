package postgres

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"shop-orders/internal/models"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	DbName   string
	SslMode  string
	URL      string
}

func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.DbName, c.Password, c.SslMode)
}

func ConnectDB(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.DB().Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return db, nil
}

// Migrate creates the tables and the foreign keys between them.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Vendor{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderEvent{},
	).Error; err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	fks := []struct {
		model       interface{}
		field, dest string
	}{
		{&models.Product{}, "vendor_id", "vendors(id)"},
		{&models.OrderItem{}, "order_id", "orders(id)"},
		{&models.OrderItem{}, "product_id", "products(id)"},
		{&models.OrderEvent{}, "order_id", "orders(id)"},
	}
	for _, fk := range fks {
		scope := db.NewScope(fk.model)
		name := scope.Dialect().BuildKeyName(scope.TableName(), fk.field, fk.dest, "foreign")
		if scope.Dialect().HasForeignKey(scope.TableName(), name) {
			continue
		}
		if err := db.Model(fk.model).AddForeignKey(fk.field, fk.dest, "RESTRICT", "RESTRICT").Error; err != nil {
			return errors.Wrapf(err, "add foreign key %s.%s", scope.TableName(), fk.field)
		}
	}
	return nil
}

// serialization_failure and deadlock_detected are the two codes a retry can cure.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return errors.Wrap(models.ErrConflict, pqErr.Message)
		}
	}
	return err
}

func withTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin tx")
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return mapTxError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return mapTxError(errors.Wrap(err, "commit"))
	}
	return nil
}
