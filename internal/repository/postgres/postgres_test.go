package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"shop-orders/internal/models"
)

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open("postgres", sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestConfig_DSN(t *testing.T) {
	c := Config{Host: "db", Port: "5432", Username: "u", Password: "p", DbName: "shop", SslMode: "disable"}
	require.Equal(t, "host=db port=5432 user=u dbname=shop password=p sslmode=disable", c.DSN())

	c.URL = "postgres://u:p@db:5432/shop"
	require.Equal(t, "postgres://u:p@db:5432/shop", c.DSN())
}

func TestMapTxError(t *testing.T) {
	require.NoError(t, mapTxError(nil))

	for _, code := range []pq.ErrorCode{"40001", "40P01"} {
		err := mapTxError(pkgerrors.Wrap(&pq.Error{Code: code, Message: "could not serialize access"}, "update"))
		require.ErrorIs(t, err, models.ErrConflict, code)
	}

	unique := &pq.Error{Code: "23505", Message: "duplicate key"}
	err := mapTxError(unique)
	require.NotErrorIs(t, err, models.ErrConflict)
	require.Same(t, unique, err)

	plain := errors.New("plain")
	require.Equal(t, plain, mapTxError(plain))
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db, mock := mockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, withTx(ctx, db, func(*gorm.DB) error { return nil }))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on fn error", func(t *testing.T) {
		db, mock := mockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := withTx(ctx, db, func(*gorm.DB) error { return boom })
		require.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure on commit", func(t *testing.T) {
		db, mock := mockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})

		err := withTx(ctx, db, func(*gorm.DB) error { return nil })
		require.ErrorIs(t, err, models.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin fails", func(t *testing.T) {
		db, mock := mockDB(t)
		mock.ExpectBegin().WillReturnError(errors.New("conn reset"))

		err := withTx(ctx, db, func(*gorm.DB) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.ErrorContains(t, err, "begin tx")
	})
}

func TestProductPostgres_GetProduct(t *testing.T) {
	db, mock := mockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "vendor_id", "name", "price", "color", "size", "image_url", "created_at", "updated_at"}).
		AddRow(3, 10, "Cap", "15.00", "red", "", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WithArgs(3).
		WillReturnRows(rows)

	p, err := NewProductPostgres(db).GetProduct(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, uint(3), p.ID)
	require.Equal(t, uint(10), p.VendorID)
	require.Equal(t, "15", p.Price.String())
	require.Nil(t, p.ImageURL)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = NewProductPostgres(db).GetProduct(context.Background(), 4)
	require.True(t, gorm.IsRecordNotFoundError(err))

	require.NoError(t, mock.ExpectationsWereMet())
}
