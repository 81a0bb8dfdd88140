package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shop-orders/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

func (h *Handler) bindCheckout(c *gin.Context) (service.CheckoutRequest, bool) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", service.ErrDecode, err))
		return req, false
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyHeader))
	req.ClientIP = c.ClientIP()
	return req, true
}

// CreatePayment
// @Summary CreatePayment
// @Description Creates a VNPay order from cart items, or pays an existing order when order_id is set, and returns the gateway URL
// @ID create-payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "client generated key"
// @Param input body service.CheckoutRequest true "cart or order id"
// @Success 200 {object} service.PaymentSession
// @Failure 400,401,403,404,409 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/payments/create [post]
func (h *Handler) CreatePayment(c *gin.Context) {
	req, ok := h.bindCheckout(c)
	if !ok {
		return
	}

	sess, err := h.svc.StartPayment(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// CreateCODOrder
// @Summary CreateCODOrder
// @Description Creates a cash on delivery order from cart items
// @ID create-cod-order
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "client generated key"
// @Param input body service.CheckoutRequest true "cart"
// @Success 201 {object} models.Order
// @Failure 400,401,403,404,409 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/payments/create-cod [post]
func (h *Handler) CreateCODOrder(c *gin.Context) {
	req, ok := h.bindCheckout(c)
	if !ok {
		return
	}

	order, err := h.svc.CreateCODOrder(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// VNPayReturn
// @Summary VNPayReturn
// @Description Browser return from the gateway; reconciles the payment and redirects to the storefront
// @ID vnpay-return
// @Success 302
// @Router /api/payments/vnpay-return [get]
func (h *Handler) VNPayReturn(c *gin.Context) {
	out := h.svc.ReconcilePaymentReturn(c.Request.Context(), c.Request.URL.Query())
	c.Redirect(http.StatusFound, out.RedirectURL)
}

// VNPayIPN
// @Summary VNPayIPN
// @Description Server to server payment notification. Always answers 200 with an RspCode
// @ID vnpay-ipn
// @Produce json
// @Success 200 {object} service.IPNAck
// @Router /api/payments/vnpay-ipn [get]
// @Router /api/payments/vnpay-ipn [post]
func (h *Handler) VNPayIPN(c *gin.Context) {
	params := c.Request.URL.Query()
	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseForm(); err == nil {
			params = c.Request.Form
		}
	}
	c.JSON(http.StatusOK, h.svc.ReconcilePaymentNotification(c.Request.Context(), params))
}
