package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"shop-orders/internal/auth"
	"shop-orders/internal/configs"
	"shop-orders/internal/models"
	"shop-orders/internal/repository"
	"shop-orders/internal/repository/postgres"
	"shop-orders/internal/service"
)

// seed creates two vendors with a few products each, places one COD order spanning both
// vendors and prints bearer tokens for the customer and the vendors.
func main() {
	customerID := flag.Uint("customer", 1, "customer id for the sample order")
	products := flag.Int("products", 3, "products per vendor")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := configs.LoadConfig(".")
	if err != nil {
		logrus.Fatalf("config load: %s", err)
	}
	cfg.SetupLogger()

	db, err := postgres.ConnectDB(postgres.Config{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		Username: cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DbName:   cfg.PostgresDB,
		SslMode:  cfg.PostgresSSLMode,
		URL:      cfg.DatabaseURL,
	})
	if err != nil {
		logrus.Fatalf("postgres connect: %s", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		logrus.Fatalf("migrate: %s", err)
	}

	ctx := context.Background()
	f := gofakeit.New(0)
	catalog := postgres.NewProductPostgres(db)

	var (
		vendors []models.Vendor
		items   []service.CheckoutItem
	)
	for i := 0; i < 2; i++ {
		v := models.Vendor{Name: f.Company(), Email: f.Email()}
		if err := catalog.CreateVendor(ctx, &v); err != nil {
			logrus.Fatalf("seed vendor: %s", err)
		}
		vendors = append(vendors, v)

		for j := 0; j < *products; j++ {
			img := fmt.Sprintf("https://picsum.photos/seed/%s/400", f.LetterN(8))
			p := models.Product{
				VendorID: v.ID,
				Name:     f.ProductName(),
				Price:    decimal.NewFromFloat(f.Price(5, 300)).Round(2),
				Color:    f.SafeColor(),
				Size:     f.RandomString([]string{"S", "M", "L", "XL"}),
				ImageURL: &img,
			}
			if err := catalog.CreateProduct(ctx, &p); err != nil {
				logrus.Fatalf("seed product: %s", err)
			}
			if j == 0 {
				items = append(items, service.CheckoutItem{ProductID: p.ID, Quantity: int(f.Number(1, 3))})
			}
		}
		logrus.Printf("vendor %d %q seeded with %d products", v.ID, v.Name, *products)
	}

	// Seeding talks to postgres directly; the product cache and redis guard are left out.
	svc := service.NewService(repository.NewRepository(db))
	customer := models.Principal{SubjectID: *customerID, Role: models.RoleCustomer}
	order, err := svc.CreateCODOrder(ctx, customer, service.CheckoutRequest{
		Items: items,
		Shipping: service.ShippingInfo{
			CustomerName: f.Name(),
			Phone:        f.Phone(),
			Address:      f.Street() + ", " + f.City(),
		},
	})
	if err != nil {
		logrus.Fatalf("seed order: %s", err)
	}
	logrus.Printf("order %s placed, total %s", order.OrderNumber, order.TotalAmount.StringFixed(2))

	issuer := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTTTL)
	tok, err := issuer.Issue(customer)
	if err != nil {
		logrus.Fatalf("issue token: %s", err)
	}
	fmt.Printf("customer %d: Bearer %s\n", customer.SubjectID, tok)
	for _, v := range vendors {
		tok, err := issuer.Issue(models.Principal{SubjectID: v.ID, Role: models.RoleVendor})
		if err != nil {
			logrus.Fatalf("issue token: %s", err)
		}
		fmt.Printf("vendor %d: Bearer %s\n", v.ID, tok)
	}
}
