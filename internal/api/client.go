// Package api implements the typed HTTP client for the loyalty backend.
// Every method is one stateless request; credentials are passed in by
// the caller, never stored here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/you/trisonapp/domain"
)

// Client implements domain.AuthAPI and domain.RewardsAPI
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *slog.Logger
}

// Options configures a Client
type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// New creates a new API client
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpc:   &http.Client{Timeout: opts.Timeout},
		log:     opts.Logger,
	}
}

// envelope is the response wrapper every endpoint shares. Failures
// carry the message in detail; a few legacy endpoints put the payload
// beside the wrapper instead of inside data.
type envelope struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message,omitempty"`
	Data        json.RawMessage  `json:"data,omitempty"`
	Detail      string           `json:"detail,omitempty"`
	ErrorMsg    string           `json:"error,omitempty"`
	TotalPoints *int             `json:"total_points,omitempty"`
	Products    []domain.Product `json:"products,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, accessToken string) (*envelope, error) {
	reqURL := c.baseURL + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &domain.TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{URL: reqURL, Err: err}
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil, &domain.TransportError{URL: reqURL, Err: fmt.Errorf("malformed response body: %w", err)}
			}
			env = envelope{}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Detail
		if msg == "" {
			msg = env.ErrorMsg
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.log.Debug("api request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &domain.APIError{Status: resp.StatusCode, Message: msg}
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, &domain.APIError{Status: resp.StatusCode, Message: msg}
	}
	return &env, nil
}

func (c *Client) authResult(ctx context.Context, path string, body any) (*domain.AuthResult, error) {
	env, err := c.do(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return nil, err
	}
	var result domain.AuthResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, &domain.TransportError{URL: c.baseURL + path, Err: fmt.Errorf("malformed token payload: %w", err)}
	}
	if result.AccessToken == "" {
		return nil, &domain.APIError{Status: http.StatusOK, Message: "response carried no access token"}
	}
	return &result, nil
}

// SendOTP implements domain.AuthAPI. The returned message is
// informational; OTP delivery is a server-side effect.
func (c *Client) SendOTP(ctx context.Context, phone string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/send-otp", map[string]string{"phone_number": phone}, "")
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// VerifyOTP implements domain.AuthAPI
func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) (*domain.AuthResult, error) {
	return c.authResult(ctx, "/auth/verify-otp", map[string]string{"phone_number": phone, "otp": otp})
}

// Login implements domain.AuthAPI
func (c *Client) Login(ctx context.Context, phone, otp string) (*domain.AuthResult, error) {
	return c.authResult(ctx, "/auth/login", map[string]string{"phone_number": phone, "otp": otp})
}

// Register implements domain.AuthAPI
func (c *Client) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResult, error) {
	return c.authResult(ctx, "/auth/register", req)
}

// Refresh implements domain.AuthAPI
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	return c.authResult(ctx, "/auth/refresh", map[string]string{"refresh_token": refreshToken})
}

// Logout implements domain.AuthAPI. Callers treat failures as
// best-effort; this method still reports them.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": refreshToken}, accessToken)
	return err
}

// CurrentUser implements domain.AuthAPI
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	env, err := c.do(ctx, http.MethodGet, "/auth/me", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, &domain.TransportError{URL: c.baseURL + "/auth/me", Err: fmt.Errorf("malformed user payload: %w", err)}
	}
	return &user, nil
}

// PointsBalance implements domain.RewardsAPI. The balance endpoint
// predates the data envelope and returns total_points at the top level.
func (c *Client) PointsBalance(ctx context.Context, accessToken string) (int, error) {
	env, err := c.do(ctx, http.MethodGet, "/points/balance", nil, accessToken)
	if err != nil {
		return 0, err
	}
	if env.TotalPoints == nil {
		return 0, &domain.TransportError{URL: c.baseURL + "/points/balance", Err: fmt.Errorf("response carried no total_points")}
	}
	return *env.TotalPoints, nil
}

// PointsTransactions implements domain.RewardsAPI
func (c *Client) PointsTransactions(ctx context.Context, accessToken string, q domain.TransactionQuery) (*domain.TransactionPage, error) {
	path := "/points/transactions?" + transactionQuery(q)
	env, err := c.do(ctx, http.MethodGet, path, nil, accessToken)
	if err != nil {
		return nil, err
	}
	var page domain.TransactionPage
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return nil, &domain.TransportError{URL: c.baseURL + path, Err: fmt.Errorf("malformed transactions payload: %w", err)}
	}
	return &page, nil
}

// PointsSummary implements domain.RewardsAPI
func (c *Client) PointsSummary(ctx context.Context, accessToken string) (*domain.PointsSummary, error) {
	env, err := c.do(ctx, http.MethodGet, "/points/summary", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var summary domain.PointsSummary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		return nil, &domain.TransportError{URL: c.baseURL + "/points/summary", Err: fmt.Errorf("malformed summary payload: %w", err)}
	}
	return &summary, nil
}

// ScanQR implements domain.RewardsAPI
func (c *Client) ScanQR(ctx context.Context, accessToken, code string) (*domain.ScanResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/qr/scan", map[string]string{"qr_code": code}, accessToken)
	if err != nil {
		return nil, err
	}
	var result domain.ScanResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, &domain.TransportError{URL: c.baseURL + "/qr/scan", Err: fmt.Errorf("malformed scan payload: %w", err)}
	}
	return &result, nil
}

// ScanHistory implements domain.RewardsAPI
func (c *Client) ScanHistory(ctx context.Context, accessToken string, limit, offset int) (*domain.ScanHistoryPage, error) {
	path := fmt.Sprintf("/qr/history?limit=%d&offset=%d", limit, offset)
	env, err := c.do(ctx, http.MethodGet, path, nil, accessToken)
	if err != nil {
		return nil, err
	}
	var page domain.ScanHistoryPage
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return nil, &domain.TransportError{URL: c.baseURL + path, Err: fmt.Errorf("malformed history payload: %w", err)}
	}
	return &page, nil
}

// Products implements domain.RewardsAPI. Like the balance endpoint,
// the catalog returns its payload beside the wrapper.
func (c *Client) Products(ctx context.Context, accessToken string) ([]domain.Product, error) {
	env, err := c.do(ctx, http.MethodGet, "/products/", nil, accessToken)
	if err != nil {
		return nil, err
	}
	return env.Products, nil
}

func transactionQuery(q domain.TransactionQuery) string {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	if q.Type != "" {
		v.Set("transaction_type", q.Type)
	}
	return v.Encode()
}

// Compile-time interface compliance verification
var (
	_ domain.AuthAPI    = (*Client)(nil)
	_ domain.RewardsAPI = (*Client)(nil)
)
