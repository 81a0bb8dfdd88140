package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		newErrorResponse(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// GetOrderByNumber
// @Summary GetOrderByNumber
// @Description Order tracking lookup by public order number
// @ID get-order-by-number
// @Produce json
// @Param orderNumber path string true "order number, e.g. ORD-1735786000000-A1B2C3D4E"
// @Success 200 {object} models.Order
// @Failure 400,404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/orders/{orderNumber} [get]
func (h *Handler) GetOrderByNumber(c *gin.Context) {
	number := strings.TrimSpace(c.Param("orderNumber"))
	if number == "" {
		newErrorResponse(c, http.StatusBadRequest, "missing order number")
		return
	}

	order, err := h.svc.GetOrderByNumber(c.Request.Context(), number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrderHistory
// @Summary ListOrderHistory
// @Description Orders of the authenticated customer, newest first
// @ID list-order-history
// @Produce json
// @Security BearerAuth
// @Success 200 {object} listOrdersResponse
// @Failure 401,403 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/order-history [get]
func (h *Handler) ListOrderHistory(c *gin.Context) {
	orders, err := h.svc.ListCustomerOrders(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listOrdersResponse{Data: orders})
}

// GetOrderHistory
// @Summary GetOrderHistory
// @Description One order of the authenticated customer with its timeline
// @ID get-order-history
// @Produce json
// @Security BearerAuth
// @Param id path int true "order id"
// @Success 200 {object} models.Order
// @Failure 400,401,403,404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/order-history/{id} [get]
func (h *Handler) GetOrderHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.GetCustomerOrder(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
