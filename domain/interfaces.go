package domain

import "context"

// Storage keys owned by the auth subsystem. Readers must tolerate
// missing keys; absence means "no session".
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserData     = "userData"
	KeyIsLoggedIn   = "isLoggedIn"
)

// AuthKeys lists every storage key the auth subsystem owns, in the
// order logout clears them.
func AuthKeys() []string {
	return []string{KeyAccessToken, KeyRefreshToken, KeyUserData, KeyIsLoggedIn}
}

// TokenStore defines persistent key-value storage for credentials.
// Implementations must survive process restarts (the in-memory store
// used in tests being the deliberate exception).
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetMulti(ctx context.Context, pairs map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// AuthAPI defines the stateless request functions against the remote
// auth endpoints
type AuthAPI interface {
	SendOTP(ctx context.Context, phone string) (string, error)
	VerifyOTP(ctx context.Context, phone, otp string) (*AuthResult, error)
	Login(ctx context.Context, phone, otp string) (*AuthResult, error)
	Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*User, error)
}

// RewardsAPI defines the authenticated points/QR/catalog endpoints
type RewardsAPI interface {
	PointsBalance(ctx context.Context, accessToken string) (int, error)
	PointsTransactions(ctx context.Context, accessToken string, q TransactionQuery) (*TransactionPage, error)
	PointsSummary(ctx context.Context, accessToken string) (*PointsSummary, error)
	ScanQR(ctx context.Context, accessToken, code string) (*ScanResult, error)
	ScanHistory(ctx context.Context, accessToken string, limit, offset int) (*ScanHistoryPage, error)
	Products(ctx context.Context, accessToken string) ([]Product, error)
}

// ScreenGuard decides whether a role may open a screen
type ScreenGuard interface {
	CanAccess(role, screen string) (bool, error)
}
