package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"shop-orders/internal/metrics"
	"shop-orders/internal/models"
)

var txnRefPattern = regexp.MustCompile(`^ORDER_(\d+)_(\d+)$`)

// PaymentOutcome is where the browser goes after the gateway return callback.
type PaymentOutcome struct {
	Success     bool
	OrderID     uint
	Message     string
	RedirectURL string
}

// IPNAck is the body the gateway expects from the IPN endpoint.
type IPNAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

var (
	ackSuccess          = IPNAck{RspCode: "00", Message: "Success"}
	ackChecksumFailed   = IPNAck{RspCode: "97", Message: "Checksum failed"}
	ackInvalidReference = IPNAck{RspCode: "99", Message: "Invalid reference"}
	ackOrderNotFound    = IPNAck{RspCode: "99", Message: "Order not found"}
	ackUnknownError     = IPNAck{RspCode: "99", Message: "Unknown error"}
)

type callbackChannel string

const (
	channelReturn callbackChannel = "return"
	channelIPN    callbackChannel = "ipn"
)

// ParseGatewayReference extracts the order id from ORDER_<id>_<ms>.
func ParseGatewayReference(ref string) (uint, bool) {
	m := txnRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type paymentResult struct {
	success       bool
	responseCode  string
	transactionNo string
}

// planPayment applies a gateway verdict to the locked order. Success recovers a failed
// payment, failure never downgrades a paid order, and anything else is a no-op.
func planPayment(o *models.Order, r paymentResult, ch callbackChannel) models.OrderChange {
	if r.success {
		if !payable(o.Status) {
			return models.OrderChange{}
		}
		via := "VNPay"
		if ch == channelIPN {
			via = "VNPay IPN"
		}
		return models.OrderChange{
			Status: models.OrderPaid,
			Events: []models.OrderEvent{{
				Status:      "Paid",
				Description: fmt.Sprintf("Payment confirmed via %s. Transaction ID: %s", via, r.transactionNo),
			}},
		}
	}

	if o.Status != models.OrderPending && o.Status != models.OrderProcessing {
		return models.OrderChange{}
	}
	return models.OrderChange{
		Status: models.OrderPaymentFailed,
		Events: []models.OrderEvent{{
			Status:      "Payment Failed",
			Description: fmt.Sprintf("Payment failed. Response code: %s", r.responseCode),
		}},
	}
}

// applyPayment returns the order after reconciliation and whether a transition happened.
func (s *Service) applyPayment(ctx context.Context, orderID uint, r paymentResult, ch callbackChannel) (models.Order, bool, error) {
	var change models.OrderChange
	o, err := s.mutate(ctx, orderID, func(o *models.Order) (models.OrderChange, error) {
		change = planPayment(o, r, ch)
		for i := range change.Events {
			change.Events[i].Timestamp = s.now().UTC()
		}
		return change, nil
	})
	if err != nil {
		return models.Order{}, false, err
	}

	applied := !change.IsZero()
	if applied {
		s.notify(ctx, o, models.NotifyPaymentState, string(change.Status), change.Events[0].Description)
	}
	logrus.WithFields(logrus.Fields{
		"order_id": orderID,
		"channel":  ch,
		"success":  r.success,
		"applied":  applied,
		"status":   o.Status,
	}).Info("payment callback reconciled")
	return o, applied, nil
}

func (s *Service) redirect(path, query string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + path + "?" + query
}

func (s *Service) failedOutcome(orderID uint, msg string) PaymentOutcome {
	query := "message=" + url.QueryEscape(msg)
	if orderID != 0 {
		query = "orderId=" + strconv.FormatUint(uint64(orderID), 10) + "&" + query
	}
	return PaymentOutcome{OrderID: orderID, Message: msg, RedirectURL: s.redirect("/payment/failed", query)}
}

func (s *Service) ReconcilePaymentReturn(ctx context.Context, params url.Values) PaymentOutcome {
	out := s.reconcileReturn(ctx, params)
	label := "failed"
	if out.Success {
		label = "paid"
	}
	metrics.PaymentCallbacksTotal.WithLabelValues(string(channelReturn), label).Inc()
	return out
}

func (s *Service) reconcileReturn(ctx context.Context, params url.Values) PaymentOutcome {
	if s.gateway == nil {
		return s.failedOutcome(0, "Payment verification error")
	}
	res := s.gateway.VerifyCallback(params)
	if !res.Valid {
		logrus.WithField("txn_ref", res.TxnRef).Warn("payment return with bad checksum")
		return s.failedOutcome(0, "Payment verification failed")
	}

	orderID, ok := ParseGatewayReference(res.TxnRef)
	if !ok {
		return s.failedOutcome(0, "Invalid order reference")
	}

	r := paymentResult{success: res.Success(), responseCode: res.ResponseCode, transactionNo: res.TransactionNo}
	_, _, err := s.applyPayment(ctx, orderID, r, channelReturn)
	if isNotFound(err) {
		return s.failedOutcome(orderID, "Order not found")
	}
	if err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Error("payment return reconcile failed")
		return s.failedOutcome(orderID, "Payment verification error")
	}

	if !r.success {
		msg := "Payment failed"
		if res.ResponseCode != "00" && res.Message != "" {
			msg = res.Message
		}
		return s.failedOutcome(orderID, msg)
	}
	query := "orderId=" + strconv.FormatUint(uint64(orderID), 10)
	return PaymentOutcome{Success: true, OrderID: orderID, Message: "Payment successful", RedirectURL: s.redirect("/payment/success", query)}
}

func (s *Service) ReconcilePaymentNotification(ctx context.Context, params url.Values) IPNAck {
	ack := s.reconcileIPN(ctx, params)
	metrics.PaymentCallbacksTotal.WithLabelValues(string(channelIPN), ack.RspCode).Inc()
	return ack
}

func (s *Service) reconcileIPN(ctx context.Context, params url.Values) IPNAck {
	if s.gateway == nil {
		return ackUnknownError
	}
	res := s.gateway.VerifyCallback(params)
	if !res.Valid {
		logrus.WithField("txn_ref", res.TxnRef).Warn("payment IPN with bad checksum")
		return ackChecksumFailed
	}

	orderID, ok := ParseGatewayReference(res.TxnRef)
	if !ok {
		return ackInvalidReference
	}

	r := paymentResult{success: res.Success(), responseCode: res.ResponseCode, transactionNo: res.TransactionNo}
	_, _, err := s.applyPayment(ctx, orderID, r, channelIPN)
	if isNotFound(err) {
		return ackOrderNotFound
	}
	if err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Error("payment IPN reconcile failed")
		return ackUnknownError
	}
	return ackSuccess
}
