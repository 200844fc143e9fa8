package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenKind string

const (
	accessToken  tokenKind = "access"
	refreshToken tokenKind = "refresh"
)

func (s *Server) signToken(userID, role string, kind tokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"type": string(kind),
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Server) parseToken(raw string, kind tokenKind) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	if t, _ := claims["type"].(string); t != string(kind) {
		return nil, false
	}
	if jti, _ := claims["jti"].(string); jti != "" {
		s.mu.Lock()
		revoked := s.revoked[jti]
		s.mu.Unlock()
		if revoked {
			return nil, false
		}
	}
	return claims, true
}

// issueTokens responds with the standard auth envelope.
func (s *Server) issueTokens(c *gin.Context, acct *account, message string) {
	s.mu.Lock()
	userID := acct.user.ID
	role := acct.user.Role
	s.mu.Unlock()

	access, err := s.signToken(userID, role, accessToken, s.cfg.AccessTTL)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}
	refresh, err := s.signToken(userID, role, refreshToken, s.cfg.RefreshTTL)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data": gin.H{
			"access_token":  access,
			"refresh_token": refresh,
			"token_type":    "bearer",
			"expires_in":    int64(s.cfg.AccessTTL.Seconds()),
			"user_id":       userID,
			"role":          role,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	claims, ok := s.parseToken(req.RefreshToken, refreshToken)
	if !ok {
		detail(c, http.StatusUnauthorized, "Token refresh failed")
		return
	}

	userID, _ := claims["sub"].(string)
	s.mu.Lock()
	acct, exists := s.byID[userID]
	if jti, _ := claims["jti"].(string); jti != "" {
		// Rotation: the old refresh token is spent.
		s.revoked[jti] = true
	}
	s.mu.Unlock()
	if !exists {
		detail(c, http.StatusUnauthorized, "Token refresh failed")
		return
	}

	s.issueTokens(c, acct, "Token refreshed successfully")
}

func (s *Server) logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "refresh_token is required")
		return
	}
	if claims, ok := s.parseToken(req.RefreshToken, refreshToken); ok {
		if jti, _ := claims["jti"].(string); jti != "" {
			s.mu.Lock()
			s.revoked[jti] = true
			s.mu.Unlock()
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logout successful",
	})
}

// authRequired validates the bearer token and stashes the account ID.
func (s *Server) authRequired(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		detail(c, http.StatusUnauthorized, "Invalid token")
		c.Abort()
		return
	}
	claims, ok := s.parseToken(raw, accessToken)
	if !ok {
		detail(c, http.StatusUnauthorized, "Invalid token")
		c.Abort()
		return
	}
	userID, _ := claims["sub"].(string)
	s.mu.Lock()
	_, exists := s.byID[userID]
	s.mu.Unlock()
	if !exists {
		detail(c, http.StatusUnauthorized, "Invalid token")
		c.Abort()
		return
	}
	c.Set("user_id", userID)
	c.Next()
}

func (s *Server) currentAccount(c *gin.Context) *account {
	userID := c.GetString("user_id")
	s.mu.Lock()
	acct := s.byID[userID]
	s.mu.Unlock()
	if acct == nil {
		detail(c, http.StatusUnauthorized, "Invalid token")
		c.Abort()
		return nil
	}
	return acct
}
