package service_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shop-orders/internal/models"
	"shop-orders/internal/payment/vnpay"
	"shop-orders/internal/repository"
	svc "shop-orders/internal/service"
)

var (
	customer  = models.Principal{SubjectID: 7, Role: models.RoleCustomer}
	otherUser = models.Principal{SubjectID: 8, Role: models.RoleCustomer}
	vendorA   = models.Principal{SubjectID: 10, Role: models.RoleVendor}
	vendorB   = models.Principal{SubjectID: 20, Role: models.RoleVendor}
)

type harness struct {
	store *memStore
	idem  *idemStub
	notes *notifierStub
	gw    *vnpay.Client
	svc   *svc.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gw, err := vnpay.NewClient(vnpay.Config{TmnCode: "TMN01", SecretKey: "test-secret"})
	require.NoError(t, err)

	h := &harness{store: newMemStore(), idem: &idemStub{}, notes: &notifierStub{}, gw: gw}
	h.svc = svc.NewService(
		&repository.Repository{OrderPostgres: h.store, ProductCatalog: h.store, Idempotency: h.idem},
		svc.WithGateway(gw),
		svc.WithNotifier(h.notes),
		svc.WithConfig(svc.Config{
			ReturnURL:   "http://localhost:8080/api/payments/vnpay-return",
			FrontendURL: "http://shop.test/",
			RetryDelay:  time.Millisecond,
		}),
	)
	return h
}

func cart() svc.CheckoutRequest {
	return svc.CheckoutRequest{
		Items: []svc.CheckoutItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 2},
		},
		Shipping: svc.ShippingInfo{CustomerName: "Linh Tran", Phone: "0900000000", Address: "12 Hang Bac, Ha Noi"},
	}
}

// placeCOD creates a two-vendor order: item 0 belongs to vendorA, item 1 to vendorB.
func (h *harness) placeCOD(t *testing.T) models.Order {
	t.Helper()
	o, err := h.svc.CreateCODOrder(context.Background(), customer, cart())
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	return o
}

func (h *harness) callback(orderID uint, responseCode, txnStatus, txnNo string) url.Values {
	q := url.Values{
		"vnp_TxnRef":            {svc.GatewayReference(orderID, 1700000000000)},
		"vnp_ResponseCode":      {responseCode},
		"vnp_TransactionStatus": {txnStatus},
		"vnp_TransactionNo":     {txnNo},
		"vnp_Amount":            {"1250000000"},
	}
	q.Set(vnpay.ParamSecureHash, h.gw.Sign(q))
	return q
}

func eventsWith(o models.Order, label string) []models.OrderEvent {
	var out []models.OrderEvent
	for _, ev := range o.Timeline {
		if ev.Status == label {
			out = append(out, ev)
		}
	}
	return out
}
