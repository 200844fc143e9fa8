package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/trisonapp/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestClient_VerifyOTP_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/verify-otp", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "03001234567", body["phone_number"])
		assert.Equal(t, "123456", body["otp"])

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "OTP verified successfully",
			"data": map[string]any{
				"access_token":  "abc.def.ghi",
				"refresh_token": "jkl.mno.pqr",
				"token_type":    "bearer",
				"expires_in":    1800,
				"user_id":       "user-1",
				"role":          "client",
			},
		})
	})

	res, err := client.VerifyOTP(context.Background(), "03001234567", "123456")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", res.AccessToken)
	assert.Equal(t, "jkl.mno.pqr", res.RefreshToken)
	assert.Equal(t, domain.RoleClient, res.Role)
}

func TestClient_ErrorDetailBecomesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid OTP"})
	})

	_, err := client.VerifyOTP(context.Background(), "03001234567", "000000")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid OTP", apiErr.Message)
}

func TestClient_ErrorFallbacks(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", 401, `{"error":"Invalid token"}`, "Invalid token"},
		{"empty body", 503, ``, "Service Unavailable"},
		{"non-json body", 500, `upstream exploded`, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})
			_, err := client.CurrentUser(context.Background(), "abc.def.ghi")
			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantMsg, apiErr.Message)
		})
	}
}

func TestClient_SuccessFalseIsRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "OTP expired"})
	})

	_, err := client.SendOTP(context.Background(), "03001234567")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "OTP expired", apiErr.Message)
}

func TestClient_UnreachableHostIsTransportError(t *testing.T) {
	client := New(Options{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	_, err := client.SendOTP(context.Background(), "03001234567")
	assert.True(t, domain.IsTransport(err))
	assert.Equal(t, "network request failed", domain.UserMessage(err))
}

func TestClient_MalformedSuccessBodyIsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success": tru`)
	})
	_, err := client.CurrentUser(context.Background(), "abc.def.ghi")
	assert.True(t, domain.IsTransport(err))
}

func TestClient_AuthorizationHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc.def.ghi", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "user-1", "phone_number": "03001234567", "role": "client"},
		})
	})
	user, err := client.CurrentUser(context.Background(), "abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
}

func TestClient_PointsBalance_TopLevelShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/points/balance", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "total_points": 1250})
	})
	total, err := client.PointsBalance(context.Background(), "abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, 1250, total)
}

func TestClient_Products_TopLevelShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"products": []map[string]any{
				{"id": 1, "name": "Solar Panel 540W", "points_reward": 500},
			},
		})
	})
	products, err := client.Products(context.Background(), "abc.def.ghi")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Solar Panel 540W", products[0].Name)
	assert.Equal(t, 500, products[0].PointsReward)
}

func TestClient_PointsTransactions_QueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "20", q.Get("offset"))
		assert.Equal(t, "earned", q.Get("transaction_type"))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"transactions": []any{}, "total": 0, "limit": 10, "offset": 20},
		})
	})
	page, err := client.PointsTransactions(context.Background(), "abc.def.ghi", domain.TransactionQuery{
		Limit: 10, Offset: 20, Type: "earned",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestClient_Login_MissingAccessTokenRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{}})
	})
	_, err := client.Login(context.Background(), "03001234567", "123456")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
}
