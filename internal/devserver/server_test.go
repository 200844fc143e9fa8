package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(Config{
		FixedOTP: "123456",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func post(t *testing.T, ts *httptest.Server, path, token string, body any) (int, map[string]any) {
	t.Helper()
	return request(t, ts, http.MethodPost, path, token, body)
}

func get(t *testing.T, ts *httptest.Server, path, token string) (int, map[string]any) {
	t.Helper()
	return request(t, ts, http.MethodGet, path, token, nil)
}

func request(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+"/api/v1"+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

// signIn runs send-otp + verify-otp and returns the token pair.
func signIn(t *testing.T, ts *httptest.Server, phone string) (string, string) {
	t.Helper()
	status, _ := post(t, ts, "/auth/send-otp", "", map[string]string{"phone_number": phone})
	require.Equal(t, http.StatusOK, status)

	status, body := post(t, ts, "/auth/verify-otp", "", map[string]string{"phone_number": phone, "otp": "123456"})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	return data["access_token"].(string), data["refresh_token"].(string)
}

func TestDevServer_VerifyOTPCreatesAccount(t *testing.T) {
	_, ts := newFixture(t)

	status, body := post(t, ts, "/auth/verify-otp", "", map[string]string{
		"phone_number": "03001234567", "otp": "123456",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP", body["detail"])

	access, _ := signIn(t, ts, "03001234567")

	status, body = get(t, ts, "/auth/me", access)
	require.Equal(t, http.StatusOK, status)
	user := body["data"].(map[string]any)
	assert.Equal(t, "03001234567", user["phone_number"])
	assert.Equal(t, "client", user["role"])
	assert.Equal(t, true, user["is_verified"])
}

func TestDevServer_OTPIsSingleUse(t *testing.T) {
	_, ts := newFixture(t)
	signIn(t, ts, "03001234567")

	status, body := post(t, ts, "/auth/verify-otp", "", map[string]string{
		"phone_number": "03001234567", "otp": "123456",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP", body["detail"])
}

func TestDevServer_LoginRequiresAccount(t *testing.T) {
	_, ts := newFixture(t)

	status, _ := post(t, ts, "/auth/send-otp", "", map[string]string{"phone_number": "03009999999"})
	require.Equal(t, http.StatusOK, status)
	status, body := post(t, ts, "/auth/login", "", map[string]string{
		"phone_number": "03009999999", "otp": "123456",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Login failed", body["detail"])
}

func TestDevServer_RegisterDuplicatePhone(t *testing.T) {
	_, ts := newFixture(t)

	req := map[string]string{"phone_number": "03001234567", "first_name": "Ali", "password": "secret123"}
	status, _ := post(t, ts, "/auth/register", "", req)
	require.Equal(t, http.StatusOK, status)

	status, body := post(t, ts, "/auth/register", "", req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Phone number already registered", body["detail"])
}

func TestDevServer_RefreshRotatesTokens(t *testing.T) {
	_, ts := newFixture(t)
	_, refresh := signIn(t, ts, "03001234567")

	status, body := post(t, ts, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["access_token"])

	// The spent refresh token is revoked.
	status, body = post(t, ts, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token refresh failed", body["detail"])
}

func TestDevServer_LogoutRevokesRefreshToken(t *testing.T) {
	_, ts := newFixture(t)
	access, refresh := signIn(t, ts, "03001234567")

	status, _ := post(t, ts, "/auth/logout", access, map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, status)

	status, _ = post(t, ts, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDevServer_AuthRequired(t *testing.T) {
	_, ts := newFixture(t)

	cases := []string{"", "not-a-jwt"}
	for _, token := range cases {
		status, body := get(t, ts, "/auth/me", token)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid token", body["detail"])
	}
}

func TestDevServer_AccessTokenCannotRefresh(t *testing.T) {
	_, ts := newFixture(t)
	access, _ := signIn(t, ts, "03001234567")

	status, _ := post(t, ts, "/auth/refresh", "", map[string]string{"refresh_token": access})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDevServer_ExpiredAccessToken(t *testing.T) {
	srv := New(Config{
		FixedOTP:  "123456",
		AccessTTL: -time.Minute,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	access, _ := signIn(t, ts, "03001234567")
	status, _ := get(t, ts, "/auth/me", access)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDevServer_ScanValidationOrder(t *testing.T) {
	srv, ts := newFixture(t)
	access, _ := signIn(t, ts, "03001234567")

	now := time.Now().UTC()
	srv.AddQRCode(&QRCode{Code: "FUTURE", PointsValue: 10, IsActive: true, ValidFrom: now.Add(time.Hour)})
	srv.AddQRCode(&QRCode{Code: "PAST", PointsValue: 10, IsActive: true, ValidUntil: now.Add(-time.Hour)})
	srv.AddQRCode(&QRCode{Code: "INACTIVE", PointsValue: 10, IsActive: false})

	cases := []struct {
		code       string
		wantStatus int
		wantDetail string
	}{
		{"", http.StatusBadRequest, "QR code is required"},
		{"NO-SUCH-CODE", http.StatusNotFound, "Invalid QR code"},
		{"INACTIVE", http.StatusNotFound, "Invalid QR code"},
		{"FUTURE", http.StatusBadRequest, "QR code not yet valid"},
		{"PAST", http.StatusBadRequest, "QR code has expired"},
	}
	for _, tc := range cases {
		status, body := post(t, ts, "/qr/scan", access, map[string]string{"qr_code": tc.code})
		assert.Equal(t, tc.wantStatus, status, tc.code)
		assert.Equal(t, tc.wantDetail, body["detail"], tc.code)
	}
}

func TestDevServer_ScanEarnsPointsOnce(t *testing.T) {
	_, ts := newFixture(t)
	access, _ := signIn(t, ts, "03001234567")

	status, body := post(t, ts, "/qr/scan", access, map[string]string{"qr_code": "TRISON-PANEL-100"})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(100), data["points_earned"])
	assert.Equal(t, "Solar Panel 100W", data["product_name"])

	status, body = post(t, ts, "/qr/scan", access, map[string]string{"qr_code": "TRISON-PANEL-100"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "QR code already scanned", body["detail"])

	status, body = get(t, ts, "/points/balance", access)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(100), body["total_points"])
}

func TestDevServer_ScanLimit(t *testing.T) {
	srv, ts := newFixture(t)
	srv.AddQRCode(&QRCode{Code: "LIMITED", PointsValue: 10, IsActive: true, MaxScans: 1})

	firstAccess, _ := signIn(t, ts, "03001111111")
	secondAccess, _ := signIn(t, ts, "03002222222")

	status, _ := post(t, ts, "/qr/scan", firstAccess, map[string]string{"qr_code": "LIMITED"})
	require.Equal(t, http.StatusOK, status)

	status, body := post(t, ts, "/qr/scan", secondAccess, map[string]string{"qr_code": "LIMITED"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "QR code scan limit reached", body["detail"])
}

func TestDevServer_LedgerAndSummary(t *testing.T) {
	_, ts := newFixture(t)
	access, _ := signIn(t, ts, "03001234567")

	for _, code := range []string{"TRISON-PANEL-100", "TRISON-INVERTER-3K"} {
		status, _ := post(t, ts, "/qr/scan", access, map[string]string{"qr_code": code})
		require.Equal(t, http.StatusOK, status)
	}

	status, body := get(t, ts, "/points/transactions?limit=1&offset=0", access)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["total"])
	assert.Len(t, data["transactions"], 1)

	status, body = get(t, ts, "/points/summary", access)
	require.Equal(t, http.StatusOK, status)
	summary := body["data"].(map[string]any)
	assert.Equal(t, float64(600), summary["total_points_earned"])
	assert.Equal(t, float64(600), summary["current_balance"])
}

func TestDevServer_ProductsLegacyShape(t *testing.T) {
	_, ts := newFixture(t)

	status, body := get(t, ts, "/products/", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["products"], 3)
	_, hasData := body["data"]
	assert.False(t, hasData)
}
