package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"shop-orders/internal/configs"
	"shop-orders/internal/delivery/kafka"
	"shop-orders/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg, err := configs.LoadConfig(".")
	if err != nil {
		logrus.Fatalf("config load: %s", err)
	}
	cfg.SetupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(kafka.Config{
		Brokers:    cfg.KafkaBrokersSlice(),
		GroupID:    cfg.KafkaGroupID,
		Topic:      cfg.KafkaTopic,
		DLQ:        cfg.KafkaDLQTopic,
		MaxRetries: cfg.KafkaMaxRetries,
	}, service.NewNotificationService())
	defer func() {
		if cerr := consumer.Close(); cerr != nil {
			logrus.Errorf("kafka close: %v", cerr)
		}
	}()
	logrus.Printf("consuming %s as %s", cfg.KafkaTopic, cfg.KafkaGroupID)

	if err := consumer.Subscribe(ctx); err != nil && ctx.Err() == nil {
		logrus.Fatalf("consumer stopped: %v", err)
	}
	logrus.Print("notifier stopped")
}
