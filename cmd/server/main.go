package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"shop-orders/internal/auth"
	"shop-orders/internal/configs"
	httpdelivery "shop-orders/internal/delivery/http"
	"shop-orders/internal/delivery/kafka"
	"shop-orders/internal/metrics"
	"shop-orders/internal/payment/vnpay"
	"shop-orders/internal/repository"
	"shop-orders/internal/repository/postgres"
	redisrepo "shop-orders/internal/repository/redis"
	"shop-orders/internal/service"
)

// @title shop-orders API
// @version 1.0
// @description Order lifecycle service: checkout, VNPay payment reconciliation, vendor fulfillment and order tracking.

// @host localhost:8080
// @basePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	_ = godotenv.Load()
	cfg, err := configs.LoadConfig(".")
	if err != nil {
		logrus.Fatalf("config load: %s", err)
	}
	cfg.SetupLogger()
	logrus.Print("config parsed")

	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	defer func() {
		if derr := db.Close(); derr != nil {
			logrus.Errorf("db close: %v", derr)
		}
	}()
	if err := postgres.Migrate(db); err != nil {
		logrus.Fatalf("migrate: %s", err)
	}
	logrus.Print("connected to postgres")

	repoOpts := []repository.Option{repository.WithProductCacheTTL(cfg.ProductCacheTTL)}
	if cfg.RedisAddr != "" {
		rdb, err := redisrepo.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logrus.Fatalf("redis connect: %s", err)
		}
		defer rdb.Close()
		repoOpts = append(repoOpts, repository.WithRedis(rdb, cfg.IdempotencyTTL))
		logrus.Printf("idempotency guard on redis %s", cfg.RedisAddr)
	}
	repo := repository.NewRepository(db, repoOpts...)

	rate, _ := cfg.ExchangeRate()
	svcOpts := []service.Option{service.WithConfig(service.Config{
		ReturnURL:    cfg.VNPayReturnURL,
		FrontendURL:  cfg.FrontendURL,
		ExchangeRate: rate,
	})}

	gateway, err := vnpay.NewClient(vnpay.Config{
		TmnCode:   cfg.VNPayTmnCode,
		SecretKey: cfg.VNPaySecretKey,
		Host:      cfg.VNPayHost,
	})
	if err != nil {
		logrus.WithError(err).Warn("vnpay disabled")
	} else {
		svcOpts = append(svcOpts, service.WithGateway(gateway))
	}

	pub := kafka.NewPublisher(cfg.KafkaBrokersSlice(), cfg.KafkaTopic)
	defer func() {
		if cerr := pub.Close(); cerr != nil {
			logrus.Errorf("publisher close: %v", cerr)
		}
	}()
	svcOpts = append(svcOpts, service.WithNotifier(pub))

	svc := service.NewService(repo, svcOpts...)

	h := httpdelivery.NewHandler(svc,
		httpdelivery.WithVerifier(auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTTTL)),
		httpdelivery.WithCallbackLimit(cfg.CallbackRateLimit, cfg.CallbackBurst),
		httpdelivery.WithFrontendURL(cfg.FrontendURL),
	)
	srv := new(httpdelivery.Server)

	go func() {
		if err := srv.Run(cfg.HTTPAddr, h.InitRoutes()); err != nil {
			logrus.Errorf("http run: %v", err)
			cancel()
		}
	}()
	logrus.Printf("http server started on %s", cfg.HTTPAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-quit:
		logrus.Print("shutdown signal received")
	case <-ctx.Done():
		logrus.Print("context canceled, shutting down")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("http shutdown: %s", err)
	}
	logrus.Print("service stopped")
}
