package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"shop-orders/internal/metrics"
	"shop-orders/internal/models"
	"shop-orders/internal/payment/vnpay"
)

type CheckoutItem struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"   validate:"required,min=1"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type ShippingInfo struct {
	CustomerName string `json:"customer_name" validate:"required"`
	Phone        string `json:"phone"`
	Address      string `json:"address"       validate:"required"`
}

// CheckoutRequest creates an order from cart items, or with OrderID set, pays an
// existing order of the caller.
type CheckoutRequest struct {
	OrderID  uint           `json:"order_id"`
	Items    []CheckoutItem `json:"items"    validate:"required,min=1,dive"`
	Shipping ShippingInfo   `json:"shipping"`

	IdempotencyKey string `json:"-" validate:"-"`
	ClientIP       string `json:"-" validate:"-"`
}

type PaymentSession struct {
	PaymentURL  string          `json:"payment_url"`
	OrderID     uint            `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	AmountVND   int64           `json:"amount_vnd"`
}

func newOrderNumber(ms int64) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("ORD-%d-%s", ms, suffix[:9])
}

// GatewayReference is the vnp_TxnRef for one payment attempt on an order.
func GatewayReference(orderID uint, ms int64) string {
	return "ORDER_" + strconv.FormatUint(uint64(orderID), 10) + "_" + strconv.FormatInt(ms, 10)
}

func (s *Service) claim(ctx context.Context, p models.Principal, key string) error {
	if key == "" || s.idem == nil {
		return nil
	}
	ok, err := s.idem.Claim(ctx, fmt.Sprintf("%d:%s", p.SubjectID, key))
	if err != nil {
		// the guard is best effort; an unavailable store does not block checkout
		logrus.WithError(err).WithField("customer_id", p.SubjectID).Warn("idempotency guard unavailable")
		return nil
	}
	if !ok {
		return ErrDuplicateRequest
	}
	return nil
}

// buildOrder snapshots every product before anything is written, so a missing product
// aborts checkout with nothing persisted.
func (s *Service) buildOrder(ctx context.Context, p models.Principal, req CheckoutRequest, method models.PaymentMethod) (models.Order, error) {
	if err := validateStruct(s.v, req); err != nil {
		return models.Order{}, err
	}

	now := s.now().UTC()
	o := models.Order{
		OrderNumber:     newOrderNumber(now.UnixMilli()),
		CustomerID:      p.SubjectID,
		CustomerName:    strings.TrimSpace(req.Shipping.CustomerName),
		Phone:           strings.TrimSpace(req.Shipping.Phone),
		ShippingAddress: strings.TrimSpace(req.Shipping.Address),
		PaymentMethod:   method,
		Status:          models.OrderPending,
	}

	for _, it := range req.Items {
		prod, err := s.catalog.GetProduct(ctx, it.ProductID)
		if isNotFound(err) {
			return models.Order{}, fmt.Errorf("%w: id %d", ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return models.Order{}, fmt.Errorf("load product %d: %w", it.ProductID, err)
		}

		color, size := prod.Color, prod.Size
		if it.Color != "" {
			color = it.Color
		}
		if it.Size != "" {
			size = it.Size
		}
		o.Items = append(o.Items, models.OrderItem{
			ProductID:   prod.ID,
			ProductName: prod.Name,
			Price:       prod.Price,
			Quantity:    it.Quantity,
			Color:       color,
			Size:        size,
			Image:       prod.ImageURL,
			Status:      models.ItemProcessing,
		})
	}
	o.TotalAmount = o.ItemsTotal()

	desc := "Order created and waiting for payment"
	if method == models.PaymentCOD {
		desc = "Order created with Cash on Delivery payment method"
	}
	o.Timeline = []models.OrderEvent{{Status: "Order Placed", Description: desc, Timestamp: now}}
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, p models.Principal, req CheckoutRequest, method models.PaymentMethod) (models.Order, error) {
	o, err := s.buildOrder(ctx, p, req, method)
	if err != nil {
		return models.Order{}, err
	}
	if err := s.orders.Create(ctx, &o); err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	metrics.OrdersCreatedTotal.WithLabelValues(string(method)).Inc()
	logrus.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"customer_id":  o.CustomerID,
		"method":       method,
		"total":        o.TotalAmount.StringFixed(2),
	}).Info("order placed")
	s.notify(ctx, o, models.NotifyOrderPlaced, string(o.Status), o.Timeline[0].Description)
	return o, nil
}

func (s *Service) CreateCODOrder(ctx context.Context, p models.Principal, req CheckoutRequest) (models.Order, error) {
	if !p.IsCustomer() {
		return models.Order{}, ErrForbidden
	}
	if err := s.claim(ctx, p, req.IdempotencyKey); err != nil {
		return models.Order{}, err
	}
	return s.placeOrder(ctx, p, req, models.PaymentCOD)
}

func payable(st models.OrderStatus) bool {
	switch st {
	case models.OrderPending, models.OrderProcessing, models.OrderPaymentFailed:
		return true
	}
	return false
}

func (s *Service) StartPayment(ctx context.Context, p models.Principal, req CheckoutRequest) (PaymentSession, error) {
	if !p.IsCustomer() {
		return PaymentSession{}, ErrForbidden
	}
	if s.gateway == nil {
		return PaymentSession{}, fmt.Errorf("payment gateway is not configured")
	}
	if err := s.claim(ctx, p, req.IdempotencyKey); err != nil {
		return PaymentSession{}, err
	}

	var (
		o   models.Order
		err error
	)
	if req.OrderID != 0 {
		o, err = s.orders.Get(ctx, req.OrderID)
		if isNotFound(err) || (err == nil && o.CustomerID != p.SubjectID) {
			return PaymentSession{}, ErrOrderNotFound
		}
		if err != nil {
			return PaymentSession{}, fmt.Errorf("load order %d: %w", req.OrderID, err)
		}
		if !payable(o.Status) {
			return PaymentSession{}, fmt.Errorf("%w: status %s", ErrOrderNotPayable, o.Status)
		}
	} else {
		o, err = s.placeOrder(ctx, p, req, models.PaymentVNPay)
		if err != nil {
			return PaymentSession{}, err
		}
	}

	now := s.now()
	amountVND := o.TotalAmount.Mul(s.cfg.ExchangeRate).Round(0).IntPart()
	payURL, err := s.gateway.BuildPaymentURL(vnpay.PaymentRequest{
		TxnRef:    GatewayReference(o.ID, now.UnixMilli()),
		AmountVND: amountVND,
		OrderInfo: "Thanh toan don hang #" + o.OrderNumber,
		ReturnURL: s.cfg.ReturnURL,
		IPAddr:    req.ClientIP,
		CreatedAt: now,
	})
	if err != nil {
		return PaymentSession{}, fmt.Errorf("build payment url: %w", err)
	}

	return PaymentSession{
		PaymentURL:  payURL,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Amount:      o.TotalAmount,
		AmountVND:   amountVND,
	}, nil
}
