package service_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"shop-orders/internal/models"
	"shop-orders/internal/payment/vnpay"
	svc "shop-orders/internal/service"
)

func TestParseGatewayReference(t *testing.T) {
	id, ok := svc.ParseGatewayReference("ORDER_42_1700000000000")
	require.True(t, ok)
	require.Equal(t, uint(42), id)

	for _, bad := range []string{"", "ORDER_42", "ORDER_x_1", "order_42_1", "ORDER_42_1_extra", "ORDER_0_1"} {
		_, ok := svc.ParseGatewayReference(bad)
		require.False(t, ok, bad)
	}
}

func TestIPN_SuccessIsIdempotent(t *testing.T) {
	h := newHarness(t)
	o := h.placeCOD(t)
	ctx := context.Background()

	ack := h.svc.ReconcilePaymentNotification(ctx, h.callback(o.ID, "00", "00", "14000001"))
	require.Equal(t, svc.IPNAck{RspCode: "00", Message: "Success"}, ack)

	got := h.store.order(o.ID)
	require.Equal(t, models.OrderPaid, got.Status)
	paid := eventsWith(got, "Paid")
	require.Len(t, paid, 1)
	require.Equal(t, "Payment confirmed via VNPay IPN. Transaction ID: 14000001", paid[0].Description)

	// replays from either channel change nothing
	ack = h.svc.ReconcilePaymentNotification(ctx, h.callback(o.ID, "00", "00", "14000001"))
	require.Equal(t, "00", ack.RspCode)
	out := h.svc.ReconcilePaymentReturn(ctx, h.callback(o.ID, "00", "00", "14000001"))
	require.True(t, out.Success)
	require.Len(t, eventsWith(h.store.order(o.ID), "Paid"), 1)
	require.Len(t, h.store.order(o.ID).Timeline, 2)
}

func TestPayment_FailureNeverDowngradesPaid(t *testing.T) {
	h := newHarness(t)
	o := h.placeCOD(t)
	ctx := context.Background()

	h.svc.ReconcilePaymentNotification(ctx, h.callback(o.ID, "00", "00", "1"))
	before := h.store.order(o.ID)

	ack := h.svc.ReconcilePaymentNotification(ctx, h.callback(o.ID, "24", "02", ""))
	require.Equal(t, "00", ack.RspCode)
	require.Equal(t, before, h.store.order(o.ID))
}

func TestPayment_FailureThenRecovery(t *testing.T) {
	h := newHarness(t)
	o := h.placeCOD(t)
	ctx := context.Background()

	out := h.svc.ReconcilePaymentReturn(ctx, h.callback(o.ID, "24", "02", ""))
	require.False(t, out.Success)
	require.Equal(t, o.ID, out.OrderID)
	u, err := url.Parse(out.RedirectURL)
	require.NoError(t, err)
	require.Equal(t, "/payment/failed", u.Path)
	require.Equal(t, "Transaction cancelled by customer", u.Query().Get("message"))

	got := h.store.order(o.ID)
	require.Equal(t, models.OrderPaymentFailed, got.Status)
	failed := eventsWith(got, "Payment Failed")
	require.Len(t, failed, 1)
	require.Equal(t, "Payment failed. Response code: 24", failed[0].Description)

	// a second failure is a no-op
	h.svc.ReconcilePaymentNotification(ctx, h.callback(o.ID, "24", "02", ""))
	require.Len(t, eventsWith(h.store.order(o.ID), "Payment Failed"), 1)

	out = h.svc.ReconcilePaymentReturn(ctx, h.callback(o.ID, "00", "00", "777"))
	require.True(t, out.Success)
	require.Equal(t, "http://shop.test/payment/success?orderId="+itoa(o.ID), out.RedirectURL)

	got = h.store.order(o.ID)
	require.Equal(t, models.OrderPaid, got.Status)
	require.Equal(t, "Payment confirmed via VNPay. Transaction ID: 777", eventsWith(got, "Paid")[0].Description)
	require.Contains(t, h.notes.kinds(), models.NotifyPaymentState)
}

func TestPayment_NoOpForFulfilledOrders(t *testing.T) {
	h := newHarness(t)
	o := h.placeCOD(t)
	ctx := context.Background()

	_, err := h.svc.SetItemStatus(ctx, vendorA, o.Items[0].ID, "CANCELLED", "")
	require.NoError(t, err)
	_, err = h.svc.SetItemStatus(ctx, vendorB, o.Items[1].ID, "CANCELLED", "")
	require.NoError(t, err)
	before := h.store.order(o.ID)
	require.Equal(t, models.OrderCancelled, before.Status)

	h.svc.ReconcilePaymentNotification(ctx, h.callback(o.ID, "00", "00", "1"))
	h.svc.ReconcilePaymentNotification(ctx, h.callback(o.ID, "24", "02", ""))
	require.Equal(t, before, h.store.order(o.ID))
}

func TestPayment_ChecksumFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	o := h.placeCOD(t)
	ctx := context.Background()

	q := h.callback(o.ID, "00", "00", "1")
	q.Set("vnp_Amount", "1")
	ack := h.svc.ReconcilePaymentNotification(ctx, q)
	require.Equal(t, svc.IPNAck{RspCode: "97", Message: "Checksum failed"}, ack)

	out := h.svc.ReconcilePaymentReturn(ctx, q)
	require.False(t, out.Success)
	require.Equal(t, "http://shop.test/payment/failed?message=Payment+verification+failed", out.RedirectURL)

	require.Equal(t, models.OrderPending, h.store.order(o.ID).Status)
	require.Equal(t, 0, h.store.mutateCalls)
}

func TestPayment_BadReferenceAndUnknownOrder(t *testing.T) {
	h := newHarness(t)
	o := h.placeCOD(t)
	before := h.store.order(o.ID)
	ctx := context.Background()

	for _, ref := range []string{"INV-1", "ORDER_" + itoa(o.ID), "ORDER_x_1", "order_" + itoa(o.ID) + "_1"} {
		q := url.Values{"vnp_TxnRef": {ref}, "vnp_ResponseCode": {"00"}, "vnp_TransactionStatus": {"00"}}
		q.Set(vnpay.ParamSecureHash, h.gw.Sign(q))
		require.Equal(t, svc.IPNAck{RspCode: "99", Message: "Invalid reference"}, h.svc.ReconcilePaymentNotification(ctx, q), ref)
		out := h.svc.ReconcilePaymentReturn(ctx, q)
		require.False(t, out.Success)
		require.Equal(t, "Invalid order reference", out.Message)
		require.Equal(t, "http://shop.test/payment/failed?message=Invalid+order+reference", out.RedirectURL)
	}

	require.Equal(t, 0, h.store.mutateCalls)
	after := h.store.order(o.ID)
	require.Equal(t, before.Status, after.Status)
	require.Equal(t, before.Timeline, after.Timeline)

	unknown := h.callback(404, "00", "00", "1")
	require.Equal(t, svc.IPNAck{RspCode: "99", Message: "Order not found"}, h.svc.ReconcilePaymentNotification(ctx, unknown))
	out := h.svc.ReconcilePaymentReturn(ctx, unknown)
	require.False(t, out.Success)
	require.Equal(t, "Order not found", out.Message)
	require.Equal(t, uint(404), out.OrderID)
}

func TestPayment_StoreErrorAnswers99(t *testing.T) {
	h := newHarness(t)
	o := h.placeCOD(t)
	h.store.conflicts = 100

	ack := h.svc.ReconcilePaymentNotification(context.Background(), h.callback(o.ID, "00", "00", "1"))
	require.Equal(t, svc.IPNAck{RspCode: "99", Message: "Unknown error"}, ack)

	h.store.conflicts = 100
	out := h.svc.ReconcilePaymentReturn(context.Background(), h.callback(o.ID, "00", "00", "1"))
	require.Equal(t, "Payment verification error", out.Message)
	require.Equal(t, models.OrderPending, h.store.order(o.ID).Status)
}

func TestPayment_ReturnFailureMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		code, status, want string
	}{
		{"51", "02", "Insufficient account balance"},
		{"11", "02", "Payment window expired"},
		{"42", "02", "Payment failed"},
		{"00", "02", "Payment failed"},
	}
	for _, tc := range cases {
		o := h.placeCOD(t)
		out := h.svc.ReconcilePaymentReturn(ctx, h.callback(o.ID, tc.code, tc.status, ""))
		require.False(t, out.Success, tc.code)
		require.Equal(t, tc.want, out.Message, tc.code)

		u, err := url.Parse(out.RedirectURL)
		require.NoError(t, err)
		require.Equal(t, itoa(o.ID), u.Query().Get("orderId"))
		require.Equal(t, tc.want, u.Query().Get("message"))
	}
}
