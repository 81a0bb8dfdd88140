package service

import (
	"context"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"shop-orders/internal/models"
	"shop-orders/internal/payment/vnpay"
	"shop-orders/internal/repository"
)

type Order interface {
	CreateCODOrder(ctx context.Context, p models.Principal, req CheckoutRequest) (models.Order, error)
	StartPayment(ctx context.Context, p models.Principal, req CheckoutRequest) (PaymentSession, error)

	SetItemStatus(ctx context.Context, p models.Principal, itemID uint, status, trackingNumber string) (models.Order, error)

	ReconcilePaymentReturn(ctx context.Context, params url.Values) PaymentOutcome
	ReconcilePaymentNotification(ctx context.Context, params url.Values) IPNAck

	GetOrderByNumber(ctx context.Context, orderNumber string) (models.Order, error)
	ListCustomerOrders(ctx context.Context, p models.Principal) ([]models.Order, error)
	GetCustomerOrder(ctx context.Context, p models.Principal, orderID uint) (models.Order, error)
	ListVendorOrders(ctx context.Context, p models.Principal, f VendorOrderFilter) (VendorOrderPage, error)
	GetVendorOrder(ctx context.Context, p models.Principal, orderID uint) (models.Order, error)
	VendorOrderStats(ctx context.Context, p models.Principal) (VendorStats, error)
}

type PaymentGateway interface {
	BuildPaymentURL(req vnpay.PaymentRequest) (string, error)
	VerifyCallback(params url.Values) vnpay.VerifyResult
}

type Notifier interface {
	Notify(ctx context.Context, n models.OrderNotification) error
}

type Config struct {
	ReturnURL    string
	FrontendURL  string
	ExchangeRate decimal.Decimal
	// MaxRetries bounds re-runs of a mutation that lost a serialization race.
	MaxRetries int
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.ExchangeRate.IsZero() {
		c.ExchangeRate = decimal.NewFromInt(25000)
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 20 * time.Millisecond
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:3000"
	}
	return c
}

type Service struct {
	orders   repository.OrderPostgres
	catalog  repository.ProductCatalog
	idem     repository.Idempotency
	gateway  PaymentGateway
	notifier Notifier

	v   *validator.Validate
	now func() time.Time
	cfg Config
}

type Option func(*Service)

func WithGateway(g PaymentGateway) Option { return func(s *Service) { s.gateway = g } }
func WithNotifier(n Notifier) Option      { return func(s *Service) { s.notifier = n } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
func WithConfig(cfg Config) Option { return func(s *Service) { s.cfg = cfg } }

func NewService(repo *repository.Repository, opts ...Option) *Service {
	s := &Service{
		orders:   repo.OrderPostgres,
		catalog:  repo.ProductCatalog,
		idem:     repo.Idempotency,
		notifier: nopNotifier{},
		v:        validator.New(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.cfg = s.cfg.withDefaults()
	return s
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.OrderNotification) error { return nil }
