package cache

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"shop-orders/internal/models"
)

type productSource interface {
	GetProduct(ctx context.Context, id uint) (models.Product, error)
}

// ProductCacheRepo serves catalog lookups from the KV and falls through to src on a miss.
// Concurrent misses for one product share a single src call. Errors from src, not-found
// included, are never cached.
type ProductCacheRepo struct {
	cch    KV[models.Product]
	src    productSource
	flight singleflight.Group
}

func NewProductCache(cch KV[models.Product], src productSource) *ProductCacheRepo {
	return &ProductCacheRepo{cch: cch, src: src}
}

func productKey(id uint) string {
	return "product:" + strconv.FormatUint(uint64(id), 10)
}

func (p *ProductCacheRepo) GetProduct(ctx context.Context, id uint) (models.Product, error) {
	key := productKey(id)
	if prod, ok := p.cch.Get(key); ok {
		return prod, nil
	}

	v, err, shared := p.flight.Do(key, func() (interface{}, error) {
		prod, err := p.src.GetProduct(ctx, id)
		if err != nil {
			return models.Product{}, err
		}
		p.cch.Put(key, prod)
		return prod, nil
	})
	if err != nil {
		return models.Product{}, err
	}
	if shared {
		logrus.WithField("product_id", id).Debug("catalog miss shared")
	}
	return v.(models.Product), nil
}

// Invalidate drops the cached snapshot so the next checkout re-reads price and name.
func (p *ProductCacheRepo) Invalidate(id uint) {
	p.cch.Delete(productKey(id))
}
