package domain

import "time"

// Roles assigned by the loyalty backend.
const (
	RoleClient   = "client"
	RoleRetailer = "retailer"
	RoleAdmin    = "admin"
)

// User represents the account record returned by the backend
type User struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phone_number"`
	Email       string     `json:"email,omitempty"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Role        string     `json:"role"`
	IsVerified  bool       `json:"is_verified"`
	TotalPoints int        `json:"total_points"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// Session represents the in-memory authentication state. IsLoading and
// Error are transient UI flags and are never persisted.
type Session struct {
	User            *User
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Clone returns a copy safe to hand to subscribers.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// AuthResult represents the token payload of a successful
// verify/login/register/refresh response
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
}

// RegisterRequest represents the fields collected by the registration form
type RegisterRequest struct {
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Password     string `json:"password,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// PointsTransaction represents one entry in the points ledger
type PointsTransaction struct {
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Amount      int       `json:"amount"`
	Source      string    `json:"source,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionPage represents a paginated slice of the points ledger
type TransactionPage struct {
	Transactions []PointsTransaction `json:"transactions"`
	Total        int                 `json:"total"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}

// PointsSummary represents the aggregated points view
type PointsSummary struct {
	TotalPointsEarned  int            `json:"total_points_earned"`
	TotalPointsSpent   int            `json:"total_points_spent"`
	TotalPointsExpired int            `json:"total_points_expired"`
	CurrentBalance     int            `json:"current_balance"`
	TransactionCounts  map[string]int `json:"transaction_counts"`
}

// ScanResult represents the outcome of a successful QR scan
type ScanResult struct {
	PointsEarned int       `json:"points_earned"`
	ProductName  string    `json:"product_name,omitempty"`
	Description  string    `json:"description,omitempty"`
	ScannedAt    time.Time `json:"scanned_at"`
}

// QRScan represents one entry in the scan history
type QRScan struct {
	QRCodeID     string    `json:"qr_code_id"`
	UserID       string    `json:"user_id"`
	PointsEarned int       `json:"points_earned"`
	ScannedAt    time.Time `json:"scanned_at"`
}

// ScanHistoryPage represents a paginated slice of the scan history
type ScanHistoryPage struct {
	Scans  []QRScan `json:"scans"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// Product represents a catalog entry
type Product struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        int    `json:"price"`
	PointsReward int    `json:"points_reward"`
}

// TransactionQuery filters and paginates the points ledger
type TransactionQuery struct {
	Limit  int
	Offset int
	Type   string
}
