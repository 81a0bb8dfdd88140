package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shop-orders/internal/service"
)

type updateItemStatusInput struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// ListVendorOrders
// @Summary ListVendorOrders
// @Description Orders containing the vendor's items, reduced to those items
// @ID list-vendor-orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "all|pending|processing|shipped|delivered|cancelled"
// @Param page query int false "page, default 1"
// @Param limit query int false "page size, default 10, max 100"
// @Success 200 {object} service.VendorOrderPage
// @Failure 400,401,403 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/vendor/orders [get]
func (h *Handler) ListVendorOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	out, err := h.svc.ListVendorOrders(c.Request.Context(), principal(c), service.VendorOrderFilter{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// VendorOrderStats
// @Summary VendorOrderStats
// @Description Counts of the vendor's order items by status
// @ID vendor-order-stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.VendorStats
// @Failure 401,403 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/vendor/orders/stats [get]
func (h *Handler) VendorOrderStats(c *gin.Context) {
	st, err := h.svc.VendorOrderStats(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GetVendorOrder
// @Summary GetVendorOrder
// @Description One order reduced to the vendor's items, with its timeline
// @ID get-vendor-order
// @Produce json
// @Security BearerAuth
// @Param orderId path int true "order id"
// @Success 200 {object} models.Order
// @Failure 400,401,403,404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/vendor/orders/{orderId} [get]
func (h *Handler) GetVendorOrder(c *gin.Context) {
	id, ok := parseID(c, "orderId")
	if !ok {
		return
	}

	order, err := h.svc.GetVendorOrder(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateItemStatus
// @Summary UpdateItemStatus
// @Description Moves one of the vendor's order items to a new fulfillment status
// @ID update-item-status
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orderItemId path int true "order item id"
// @Param input body updateItemStatusInput true "new status and optional tracking number"
// @Success 200 {object} models.Order
// @Failure 400,401,403,404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/vendor/orders/items/{orderItemId}/status [put]
func (h *Handler) UpdateItemStatus(c *gin.Context) {
	itemID, ok := parseID(c, "orderItemId")
	if !ok {
		return
	}

	var in updateItemStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.SetItemStatus(c.Request.Context(), principal(c), itemID, in.Status, in.TrackingNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
