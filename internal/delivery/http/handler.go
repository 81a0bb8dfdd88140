package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"

	_ "shop-orders/docs"
	"shop-orders/internal/models"
	"shop-orders/internal/service"
)

var errNoVerifier = errors.New("no token verifier configured")

type Handler struct {
	svc      service.Order
	verifier TokenVerifier

	returnLimiter *rate.Limiter
	ipnLimiter    *rate.Limiter
	frontendURL   string
}

type Option func(*Handler)

func WithVerifier(v TokenVerifier) Option { return func(h *Handler) { h.verifier = v } }

// WithCallbackLimit throttles the unauthenticated gateway callbacks. Browser returns and
// IPNs draw from separate buckets.
func WithCallbackLimit(perSecond float64, burst int) Option {
	return func(h *Handler) {
		if perSecond > 0 {
			h.returnLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
			h.ipnLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithFrontendURL is where a throttled browser return is sent.
func WithFrontendURL(u string) Option {
	return func(h *Handler) {
		if u != "" {
			h.frontendURL = u
		}
	}
}

func NewHandler(s service.Order, opts ...Option) *Handler {
	h := &Handler{svc: s, verifier: denyAll{}, frontendURL: "http://localhost:3000"}
	for _, o := range opts {
		o(h)
	}
	return h
}

type listOrdersResponse struct {
	Data []models.Order `json:"data"`
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.Default()
	router.Use(observe())

	api := router.Group("/api")
	{
		api.GET("/orders/:orderNumber", h.GetOrderByNumber)

		history := api.Group("/order-history", h.requireRole(models.RoleCustomer))
		{
			history.GET("", h.ListOrderHistory)
			history.GET("/:id", h.GetOrderHistory)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/create", h.requireRole(models.RoleCustomer), h.CreatePayment)
			payments.POST("/create-cod", h.requireRole(models.RoleCustomer), h.CreateCODOrder)

			payments.GET("/vnpay-return", throttle(h.returnLimiter, h.returnThrottled), h.VNPayReturn)
			payments.GET("/vnpay-ipn", throttle(h.ipnLimiter, ipnThrottled), h.VNPayIPN)
			payments.POST("/vnpay-ipn", throttle(h.ipnLimiter, ipnThrottled), h.VNPayIPN)
		}

		vendor := api.Group("/vendor/orders", h.requireRole(models.RoleVendor))
		{
			vendor.GET("", h.ListVendorOrders)
			vendor.GET("/stats", h.VendorOrderStats)
			vendor.GET("/:orderId", h.GetVendorOrder)
			vendor.PUT("/items/:orderItemId/status", h.UpdateItemStatus)
		}
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, statusResponse{Status: "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, errorResponse{Message: "not found"})
			return
		}
		c.JSON(http.StatusNotFound, errorResponse{Message: "page not found"})
	})

	return router
}
