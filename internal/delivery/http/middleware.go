package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"shop-orders/internal/metrics"
	"shop-orders/internal/models"
	"shop-orders/internal/service"
)

const principalKey = "principal"

type TokenVerifier interface {
	Verify(token string) (models.Principal, error)
}

// requireRole authenticates the bearer token and stores the principal on the gin context.
// Handlers pass it to the service explicitly.
func (h *Handler) requireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			newErrorResponse(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		p, err := h.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			newErrorResponse(c, http.StatusForbidden, "invalid token")
			return
		}
		if p.Role != role {
			newErrorResponse(c, http.StatusForbidden, "access restricted to "+string(role)+" accounts")
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func principal(c *gin.Context) models.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(models.Principal)
	return p
}

// throttle hands over to busy once l runs dry. Gateway callbacks never see a 429: busy
// answers in the shape the caller expects.
func throttle(l *rate.Limiter, busy gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l != nil && !l.Allow() {
			logrus.WithField("path", c.FullPath()).Warn("payment callback throttled")
			busy(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ipnThrottled still answers 200; RspCode 99 makes the gateway retry the IPN later.
func ipnThrottled(c *gin.Context) {
	c.JSON(http.StatusOK, service.IPNAck{RspCode: "99", Message: "Unknown error"})
}

func (h *Handler) returnThrottled(c *gin.Context) {
	query := "message=" + url.QueryEscape("Payment verification error")
	if id, ok := service.ParseGatewayReference(c.Query("vnp_TxnRef")); ok {
		query = "orderId=" + strconv.FormatUint(uint64(id), 10) + "&" + query
	}
	c.Redirect(http.StatusFound, strings.TrimRight(h.frontendURL, "/")+"/payment/failed?"+query)
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

type denyAll struct{}

func (denyAll) Verify(string) (models.Principal, error) {
	return models.Principal{}, errNoVerifier
}
