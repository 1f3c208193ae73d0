package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/turfpay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/turfpay-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.razorpay.com"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 4096

	CurrencyINR           = "INR"
	PaymentStatusCaptured = "captured"

	OperationCreateOrder  = "create_order"
	OperationFetchPayment = "fetch_payment"
	OperationFetchOrder   = "fetch_order"
)

var errCredentialsRequired = errors.New("razorpay key id and secret are required")

// Observer receives one call per gateway request.
type Observer interface {
	ObserveGateway(operation string, duration time.Duration, err error)
}

// Client talks to the Razorpay Orders and Payments REST APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	observer   Observer
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API host, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithObserver attaches request timing, usually metrics.WalletMetrics.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds a client from explicit credentials.
func NewClient(keyID, keySecret string, opts ...Option) (*Client, error) {
	keyID = strings.TrimSpace(keyID)
	keySecret = strings.TrimSpace(keySecret)
	if keyID == "" || keySecret == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	return client, nil
}

// NewFromConfig builds a client from the Razorpay config section. Callers should
// check cfg.Enabled first; missing keys return an error.
func NewFromConfig(cfg config.RazorpayConfig, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithBaseURL(cfg.BaseURL),
	}
	return NewClient(cfg.KeyID, cfg.KeySecret, append(base, opts...)...)
}

// KeyID is the public key handed to the checkout widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// VerifyPaymentSignature checks the checkout callback signature with the client's secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// OrderRequest is the body of POST /v1/orders. Amount is in paise.
type OrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Notes    Notes  `json:"notes,omitempty"`
}

// Order is the subset of the order entity the wallet uses.
type Order struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Notes      Notes  `json:"notes"`
}

// Payment is the subset of the payment entity the wallet uses.
type Payment struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id"`
	Method   string `json:"method"`
	Captured bool   `json:"captured"`
	Notes    Notes  `json:"notes"`
}

// IsCaptured reports whether the funds were captured.
func (p *Payment) IsCaptured() bool {
	return p != nil && p.Status == PaymentStatusCaptured
}

// APIError is the error body Razorpay returns on non-2xx responses.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay %s: %s (status %d)", e.Code, e.Description, e.StatusCode)
}

// CreateOrder registers a new order for the checkout widget.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = CurrencyINR
	}
	var order Order
	if err := c.do(ctx, OperationCreateOrder, http.MethodPost, "/v1/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchPayment loads a payment by id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	var payment Payment
	if err := c.do(ctx, OperationFetchPayment, http.MethodGet, "/v1/payments/"+url.PathEscape(trimmed), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FetchOrder loads an order by id.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var order Order
	if err := c.do(ctx, OperationFetchOrder, http.MethodGet, "/v1/orders/"+url.PathEscape(trimmed), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body any, out any) (err error) {
	started := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveGateway(operation, time.Since(started), err)
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, "marshal razorpay request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build razorpay request")
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment gateway request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		return pkgerrors.Wrap(pkgerrors.CodeGateway, apiErr, "payment gateway rejected the request").
			WithDetails(map[string]any{
				"gatewayCode": apiErr.Code,
				"description": apiErr.Description,
				"status":      apiErr.StatusCode,
			})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode payment gateway response")
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	var envelope struct {
		Error APIError `json:"error"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Description = envelope.Error.Description
		return apiErr
	}
	apiErr.Code = "UNKNOWN"
	apiErr.Description = strings.TrimSpace(string(raw))
	return apiErr
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
