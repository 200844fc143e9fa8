package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/trisonapp/domain"
)

func (s *Server) pointsBalance(c *gin.Context) {
	acct := s.currentAccount(c)
	if acct == nil {
		return
	}
	s.mu.Lock()
	total := acct.user.TotalPoints
	s.mu.Unlock()

	// Legacy shape: total_points sits beside the wrapper, not in data.
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"total_points": total,
	})
}

func (s *Server) pointsTransactions(c *gin.Context) {
	acct := s.currentAccount(c)
	if acct == nil {
		return
	}
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)
	txType := c.Query("transaction_type")

	s.mu.Lock()
	var matched []domain.PointsTransaction
	for _, tx := range s.ledger[acct.user.ID] {
		if txType == "" || tx.Type == txType {
			matched = append(matched, tx)
		}
	}
	s.mu.Unlock()

	page := paginateTx(matched, limit, offset)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Points transactions retrieved successfully",
		"data": gin.H{
			"transactions": page,
			"total":        len(matched),
			"limit":        limit,
			"offset":       offset,
		},
	})
}

func (s *Server) pointsSummary(c *gin.Context) {
	acct := s.currentAccount(c)
	if acct == nil {
		return
	}

	s.mu.Lock()
	summary := domain.PointsSummary{
		CurrentBalance:    acct.user.TotalPoints,
		TransactionCounts: map[string]int{},
	}
	for _, tx := range s.ledger[acct.user.ID] {
		summary.TransactionCounts[tx.Type]++
		switch tx.Type {
		case "earn":
			summary.TotalPointsEarned += tx.Amount
		case "spend":
			summary.TotalPointsSpent += abs(tx.Amount)
		case "expire":
			summary.TotalPointsExpired += abs(tx.Amount)
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Points summary retrieved successfully",
		"data":    summary,
	})
}

type scanRequest struct {
	QRCode string `json:"qr_code"`
}

func (s *Server) scanQR(c *gin.Context) {
	acct := s.currentAccount(c)
	if acct == nil {
		return
	}
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QRCode == "" {
		detail(c, http.StatusBadRequest, "QR code is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	qr, ok := s.qrCodes[req.QRCode]
	if !ok || !qr.IsActive {
		detail(c, http.StatusNotFound, "Invalid QR code")
		return
	}
	now := time.Now().UTC()
	if !qr.ValidFrom.IsZero() && now.Before(qr.ValidFrom) {
		detail(c, http.StatusBadRequest, "QR code not yet valid")
		return
	}
	if !qr.ValidUntil.IsZero() && now.After(qr.ValidUntil) {
		detail(c, http.StatusBadRequest, "QR code has expired")
		return
	}
	for _, scan := range s.scans[acct.user.ID] {
		if scan.QRCodeID == qr.ID {
			detail(c, http.StatusBadRequest, "QR code already scanned")
			return
		}
	}
	if qr.MaxScans > 0 && qr.CurrentScans >= qr.MaxScans {
		detail(c, http.StatusBadRequest, "QR code scan limit reached")
		return
	}

	acct.user.TotalPoints += qr.PointsValue
	qr.CurrentScans++
	s.scans[acct.user.ID] = append(s.scans[acct.user.ID], domain.QRScan{
		QRCodeID:     qr.ID,
		UserID:       acct.user.ID,
		PointsEarned: qr.PointsValue,
		ScannedAt:    now,
	})
	s.ledger[acct.user.ID] = append(s.ledger[acct.user.ID], domain.PointsTransaction{
		UserID:      acct.user.ID,
		Type:        "earn",
		Amount:      qr.PointsValue,
		Source:      "qr_scan",
		Description: "Points earned from scanning QR code: " + qr.ProductName,
		CreatedAt:   now,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "QR code scanned successfully",
		"data": gin.H{
			"points_earned": qr.PointsValue,
			"product_name":  qr.ProductName,
			"description":   qr.Description,
			"scanned_at":    now,
		},
	})
}

func (s *Server) scanHistory(c *gin.Context) {
	acct := s.currentAccount(c)
	if acct == nil {
		return
	}
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	s.mu.Lock()
	all := append([]domain.QRScan(nil), s.scans[acct.user.ID]...)
	s.mu.Unlock()

	page := paginateScans(all, limit, offset)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Scan history retrieved successfully",
		"data": gin.H{
			"scans":  page,
			"total":  len(all),
			"limit":  limit,
			"offset": offset,
		},
	})
}

func (s *Server) listProducts(c *gin.Context) {
	s.mu.Lock()
	products := append([]domain.Product(nil), s.products...)
	s.mu.Unlock()

	// Legacy shape: products sits beside the wrapper, not in data.
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": products,
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func paginateTx(all []domain.PointsTransaction, limit, offset int) []domain.PointsTransaction {
	if offset >= len(all) {
		return []domain.PointsTransaction{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func paginateScans(all []domain.QRScan, limit, offset int) []domain.QRScan {
	if offset >= len(all) {
		return []domain.QRScan{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
