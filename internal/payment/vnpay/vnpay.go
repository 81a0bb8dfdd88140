// Package vnpay builds signed VNPay payment URLs and verifies the signature of
// return and IPN callbacks.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	paymentPath = "/paymentv2/vpcpay.html"
	version     = "2.1.0"
	dateLayout  = "20060102150405"

	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"
)

// Payment times are rendered in GMT+7 regardless of the host zone.
var gmt7 = time.FixedZone("GMT+7", 7*60*60)

type Config struct {
	TmnCode   string
	SecretKey string
	Host      string
	Locale    string
}

type PaymentRequest struct {
	TxnRef    string
	AmountVND int64
	OrderInfo string
	ReturnURL string
	IPAddr    string
	CreatedAt time.Time
}

// VerifyResult carries the callback fields the reconciler needs. Valid is false when the
// signature is missing or does not match.
type VerifyResult struct {
	Valid             bool
	TxnRef            string
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	Amount            int64
	// Message describes ResponseCode for the customer; empty for unknown codes.
	Message string
}

func (r VerifyResult) Success() bool {
	return r.ResponseCode == "00" && r.TransactionStatus == "00"
}

type Client struct {
	cfg Config
}

var ErrConfig = errors.New("vnpay: terminal code and secret key are required")

func NewClient(cfg Config) (*Client, error) {
	if cfg.TmnCode == "" || cfg.SecretKey == "" {
		return nil, ErrConfig
	}
	if cfg.Host == "" {
		cfg.Host = "https://sandbox.vnpayment.vn"
	}
	if cfg.Locale == "" {
		cfg.Locale = "vn"
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &Client{cfg: cfg}, nil
}

func (c *Client) BuildPaymentURL(req PaymentRequest) (string, error) {
	if req.TxnRef == "" || req.AmountVND <= 0 || req.ReturnURL == "" {
		return "", errors.Errorf("vnpay: invalid payment request for %q", req.TxnRef)
	}
	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	ip := req.IPAddr
	if ip == "" {
		ip = "127.0.0.1"
	}

	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	// gateway amounts carry two implied decimal places
	params.Set("vnp_Amount", strconv.FormatInt(req.AmountVND*100, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", req.TxnRef)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", c.cfg.Locale)
	params.Set("vnp_ReturnUrl", req.ReturnURL)
	params.Set("vnp_IpAddr", ip)
	params.Set("vnp_CreateDate", created.In(gmt7).Format(dateLayout))

	data := canonical(params)
	return c.cfg.Host + paymentPath + "?" + data + "&" + ParamSecureHash + "=" + c.sign(data), nil
}

// VerifyCallback checks vnp_SecureHash against the remaining vnp_* parameters.
func (c *Client) VerifyCallback(params url.Values) VerifyResult {
	res := VerifyResult{
		TxnRef:            params.Get("vnp_TxnRef"),
		ResponseCode:      params.Get("vnp_ResponseCode"),
		TransactionStatus: params.Get("vnp_TransactionStatus"),
		TransactionNo:     params.Get("vnp_TransactionNo"),
	}
	res.Message = ResponseMessage(res.ResponseCode)
	if amt, err := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64); err == nil {
		res.Amount = amt / 100
	}

	got := params.Get(ParamSecureHash)
	if got == "" {
		return res
	}
	want := c.sign(canonical(params))
	res.Valid = hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
	return res
}

var responseMessages = map[string]string{
	"00": "Transaction successful",
	"07": "Amount debited, transaction flagged as suspicious",
	"09": "Card or account is not registered for internet banking",
	"10": "Card or account authentication failed more than 3 times",
	"11": "Payment window expired",
	"12": "Card or account is locked",
	"13": "Wrong one-time password",
	"24": "Transaction cancelled by customer",
	"51": "Insufficient account balance",
	"65": "Daily transaction limit exceeded",
	"75": "Paying bank is under maintenance",
	"79": "Wrong payment password entered too many times",
	"99": "Unknown gateway error",
}

// ResponseMessage maps a vnp_ResponseCode to customer-facing text.
func ResponseMessage(code string) string {
	return responseMessages[code]
}

// Sign is exposed for callers that need to forge gateway callbacks, e.g. tests and seed tooling.
func (c *Client) Sign(params url.Values) string {
	return c.sign(canonical(params))
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.SecretKey))
	_, _ = mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonical renders vnp_* params sorted by key, excluding the hash fields.
func canonical(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !strings.HasPrefix(k, "vnp_") || k == ParamSecureHash || k == ParamSecureHashType {
			continue
		}
		if params.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}
