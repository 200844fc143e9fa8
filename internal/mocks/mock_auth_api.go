package mocks

import (
	"context"
	"time"

	"github.com/you/trisonapp/domain"
)

// MockAuthAPI implements domain.AuthAPI for testing
type MockAuthAPI struct {
	SendOTPFunc     func(ctx context.Context, phone string) (string, error)
	VerifyOTPFunc   func(ctx context.Context, phone, otp string) (*domain.AuthResult, error)
	LoginFunc       func(ctx context.Context, phone, otp string) (*domain.AuthResult, error)
	RegisterFunc    func(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResult, error)
	RefreshFunc     func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	LogoutFunc      func(ctx context.Context, accessToken, refreshToken string) error
	CurrentUserFunc func(ctx context.Context, accessToken string) (*domain.User, error)
}

// NewMockAuthAPI creates a new MockAuthAPI with default behaviors
func NewMockAuthAPI() *MockAuthAPI {
	return &MockAuthAPI{}
}

// DefaultAuthResult is the token payload the mock hands out when no
// override is set.
func DefaultAuthResult() *domain.AuthResult {
	return &domain.AuthResult{
		AccessToken:  "abc.def.ghi",
		RefreshToken: "jkl.mno.pqr",
		TokenType:    "bearer",
		ExpiresIn:    900,
		UserID:       "user-1",
		Role:         domain.RoleClient,
	}
}

// DefaultUser is the profile the mock hands out when no override is set.
func DefaultUser() *domain.User {
	return &domain.User{
		ID:          "user-1",
		PhoneNumber: "03001234567",
		Role:        domain.RoleClient,
		IsVerified:  true,
		TotalPoints: 120,
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// SendOTP requests OTP delivery
func (m *MockAuthAPI) SendOTP(ctx context.Context, phone string) (string, error) {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, phone)
	}
	return "OTP sent successfully", nil
}

// VerifyOTP exchanges phone+OTP for tokens
func (m *MockAuthAPI) VerifyOTP(ctx context.Context, phone, otp string) (*domain.AuthResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, phone, otp)
	}
	return DefaultAuthResult(), nil
}

// Login authenticates with phone+OTP
func (m *MockAuthAPI) Login(ctx context.Context, phone, otp string) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, phone, otp)
	}
	return DefaultAuthResult(), nil
}

// Register creates an account
func (m *MockAuthAPI) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return DefaultAuthResult(), nil
}

// Refresh exchanges the refresh token for a new pair
func (m *MockAuthAPI) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return DefaultAuthResult(), nil
}

// Logout invalidates the session remotely
func (m *MockAuthAPI) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accessToken, refreshToken)
	}
	return nil
}

// CurrentUser fetches the profile
func (m *MockAuthAPI) CurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, accessToken)
	}
	return DefaultUser(), nil
}

// Compile-time interface compliance verification
var _ domain.AuthAPI = (*MockAuthAPI)(nil)
