// Package devserver is an in-process implementation of the loyalty
// backend's wire contract. It backs integration tests and local
// development; it is not the production API. Failure bodies carry a
// detail field, matching the real backend.
package devserver

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/you/trisonapp/domain"
)

// Config configures the fixture
type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// FixedOTP short-circuits OTP generation so tests know the code.
	FixedOTP string
	Logger   *slog.Logger
}

type account struct {
	user         domain.User
	passwordHash string
}

type QRCode struct {
	ID           string
	Code         string
	ProductName  string
	Description  string
	PointsValue  int
	IsActive     bool
	ValidFrom    time.Time
	ValidUntil   time.Time
	MaxScans     int
	CurrentScans int
}

// Server holds the fixture's in-memory state
type Server struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	byPhone  map[string]*account
	byID     map[string]*account
	otps     map[string]string
	revoked  map[string]bool
	qrCodes  map[string]*QRCode
	scans    map[string][]domain.QRScan
	ledger   map[string][]domain.PointsTransaction
	products []domain.Product
}

// New creates a fixture server with a seeded catalog and QR codes.
func New(cfg Config) *Server {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     cfg.Logger,
		byPhone: make(map[string]*account),
		byID:    make(map[string]*account),
		otps:    make(map[string]string),
		revoked: make(map[string]bool),
		qrCodes: make(map[string]*QRCode),
		scans:   make(map[string][]domain.QRScan),
		ledger:  make(map[string][]domain.PointsTransaction),
	}
	s.seed()
	return s
}

func (s *Server) seed() {
	s.products = []domain.Product{
		{ID: 1, Name: "Solar Panel 100W", Description: "High efficiency solar panel", Price: 15000, PointsReward: 100},
		{ID: 2, Name: "Solar Panel 250W", Description: "Rooftop array panel", Price: 32000, PointsReward: 250},
		{ID: 3, Name: "Hybrid Inverter 3kW", Description: "Grid-tie hybrid inverter", Price: 85000, PointsReward: 500},
	}
	s.AddQRCode(&QRCode{
		Code:        "TRISON-PANEL-100",
		ProductName: "Solar Panel 100W",
		Description: "Retail box code",
		PointsValue: 100,
		IsActive:    true,
	})
	s.AddQRCode(&QRCode{
		Code:        "TRISON-INVERTER-3K",
		ProductName: "Hybrid Inverter 3kW",
		Description: "Retail box code",
		PointsValue: 500,
		IsActive:    true,
		MaxScans:    1,
	})
}

// AddQRCode registers a scannable code; tests use it to build edge
// cases (expired windows, scan limits).
func (s *Server) AddQRCode(qr *QRCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qr.ID == "" {
		qr.ID = uuid.NewString()
	}
	s.qrCodes[qr.Code] = qr
}

// NewQRCode builds a code for AddQRCode.
func NewQRCode(code string, points int, active bool) *QRCode {
	return &QRCode{Code: code, PointsValue: points, IsActive: active}
}

// Router builds the gin engine with the full route table.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	auth := v1.Group("/auth")
	{
		auth.POST("/send-otp", s.sendOTP)
		auth.POST("/verify-otp", s.verifyOTP)
		auth.POST("/login", s.login)
		auth.POST("/register", s.register)
		auth.POST("/refresh", s.refresh)
		auth.POST("/logout", s.authRequired, s.logout)
		auth.GET("/me", s.authRequired, s.me)
	}
	points := v1.Group("/points", s.authRequired)
	{
		points.GET("/balance", s.pointsBalance)
		points.GET("/transactions", s.pointsTransactions)
		points.GET("/summary", s.pointsSummary)
	}
	qr := v1.Group("/qr", s.authRequired)
	{
		qr.POST("/scan", s.scanQR)
		qr.GET("/history", s.scanHistory)
	}
	v1.GET("/products/", s.listProducts)
	return r
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

type otpRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type credentialRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
}

func (s *Server) sendOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	code := s.cfg.FixedOTP
	if code == "" {
		code = randomOTP()
	}
	s.mu.Lock()
	s.otps[req.PhoneNumber] = code
	s.mu.Unlock()

	// A real backend hands this to an SMS gateway.
	s.log.Info("otp issued", "phone", req.PhoneNumber, "otp", code)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent successfully",
		"data":    gin.H{"expires_in": 300},
	})
}

func (s *Server) verifyOTP(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !s.consumeOTP(req.PhoneNumber, req.OTP) {
		detail(c, http.StatusBadRequest, "Invalid OTP")
		return
	}

	s.mu.Lock()
	acct, ok := s.byPhone[req.PhoneNumber]
	if !ok {
		acct = s.createAccount(domain.RegisterRequest{PhoneNumber: req.PhoneNumber})
	}
	acct.user.IsVerified = true
	now := time.Now().UTC()
	acct.user.LastLogin = &now
	s.mu.Unlock()

	s.issueTokens(c, acct, "OTP verified successfully")
}

func (s *Server) login(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	acct, ok := s.byPhone[req.PhoneNumber]
	s.mu.Unlock()
	if !ok || !s.consumeOTP(req.PhoneNumber, req.OTP) {
		detail(c, http.StatusUnauthorized, "Login failed")
		return
	}

	s.mu.Lock()
	now := time.Now().UTC()
	acct.user.LastLogin = &now
	s.mu.Unlock()

	s.issueTokens(c, acct, "Login successful")
}

func (s *Server) register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.PhoneNumber == "" {
		detail(c, http.StatusBadRequest, "phone_number is required")
		return
	}

	s.mu.Lock()
	if _, exists := s.byPhone[req.PhoneNumber]; exists {
		s.mu.Unlock()
		detail(c, http.StatusBadRequest, "Phone number already registered")
		return
	}
	acct := s.createAccount(req)
	s.mu.Unlock()

	s.issueTokens(c, acct, "Registration successful")
}

// createAccount must be called with s.mu held.
func (s *Server) createAccount(req domain.RegisterRequest) *account {
	acct := &account{
		user: domain.User{
			ID:          uuid.NewString(),
			PhoneNumber: req.PhoneNumber,
			Email:       req.Email,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Role:        domain.RoleClient,
			IsVerified:  false,
			CreatedAt:   time.Now().UTC(),
		},
	}
	if req.Password != "" {
		if hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost); err == nil {
			acct.passwordHash = string(hash)
		}
	}
	s.byPhone[acct.user.PhoneNumber] = acct
	s.byID[acct.user.ID] = acct
	return acct
}

// SetRole reassigns an account's role; tests use it to exercise the
// retailer and admin trees.
func (s *Server) SetRole(phone, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.byPhone[phone]; ok {
		acct.user.Role = role
	}
}

func (s *Server) consumeOTP(phone, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.otps[phone]
	if !ok || want != code {
		return false
	}
	delete(s.otps, phone)
	return true
}

func (s *Server) me(c *gin.Context) {
	acct := s.currentAccount(c)
	if acct == nil {
		return
	}
	s.mu.Lock()
	user := acct.user
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User information retrieved",
		"data":    user,
	})
}

func randomOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}
