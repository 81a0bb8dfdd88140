package repository

import (
	"context"
	"time"

	"shop-orders/internal/models"
	"shop-orders/internal/repository/cache"
	"shop-orders/internal/repository/postgres"
	redisrepo "shop-orders/internal/repository/redis"

	"github.com/jinzhu/gorm"
	goredis "github.com/redis/go-redis/v9"
)

type OrderPostgres interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id uint) (models.Order, error)
	GetByNumber(ctx context.Context, number string) (models.Order, error)
	GetItem(ctx context.Context, itemID uint) (models.OrderItem, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]models.Order, error)
	ListByVendor(ctx context.Context, vendorID uint, q models.VendorOrderQuery) ([]models.Order, int, error)
	VendorItemStatusCounts(ctx context.Context, vendorID uint) (map[models.ItemStatus]int, error)
	// Mutate runs fn against the row-locked order and applies the change it returns atomically.
	Mutate(ctx context.Context, orderID uint, fn models.OrderMutation) (models.Order, error)
}

type ProductCatalog interface {
	GetProduct(ctx context.Context, id uint) (models.Product, error)
}

type Idempotency interface {
	// Claim reports false when key was already claimed inside the guard window.
	Claim(ctx context.Context, key string) (bool, error)
}

type Repository struct {
	OrderPostgres
	ProductCatalog
	Idempotency
}

type options struct {
	redis      *goredis.Client
	idemTTL    time.Duration
	productTTL time.Duration
}

type Option func(*options)

func WithRedis(rdb *goredis.Client, ttl time.Duration) Option {
	return func(o *options) {
		o.redis = rdb
		o.idemTTL = ttl
	}
}

func WithProductCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.productTTL = ttl }
}

func NewRepository(db *gorm.DB, opts ...Option) *Repository {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	var catalog ProductCatalog = postgres.NewProductPostgres(db)
	if o.productTTL > 0 {
		catalog = cache.NewProductCache(cache.NewShardedCache[models.Product](cache.WithTTL(o.productTTL)), catalog)
	}

	var idem Idempotency = redisrepo.NoopGuard{}
	if o.redis != nil {
		idem = redisrepo.NewIdempotencyGuard(o.redis, o.idemTTL)
	}

	return &Repository{
		OrderPostgres:  postgres.NewOrderPostgres(db),
		ProductCatalog: catalog,
		Idempotency:    idem,
	}
}
