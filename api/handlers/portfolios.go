package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CashRequest - пополнение или снятие; amount положительный в обоих случаях
type CashRequest struct {
	ListName string          `json:"list_name" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	FromList string          `json:"from_list" binding:"required"`
	ToList   string          `json:"to_list" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

func (h *Handlers) GetPortfolios(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	portfolios, err := h.lists.GetPortfolios(c.Request.Context(), me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolios": portfolios})
}

func (h *Handlers) CreatePortfolio(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req ListNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	start := time.Now()
	list, err := h.lists.CreatePortfolio(c.Request.Context(), me, req.ListName)
	if observe("create_portfolio", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"portfolio": list})
}

func (h *Handlers) Deposit(c *gin.Context) {
	h.changeCash(c, "deposit", false)
}

func (h *Handlers) Withdraw(c *gin.Context) {
	h.changeCash(c, "withdraw", true)
}

func (h *Handlers) changeCash(c *gin.Context, operation string, withdraw bool) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req CashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if !req.Amount.IsPositive() {
		badRequest(c, "amount must be positive")
		return
	}
	amount := req.Amount
	if withdraw {
		amount = amount.Neg()
	}

	start := time.Now()
	balance, err := h.ledger.AddCash(c.Request.Context(), me, req.ListName, amount)
	if observe(operation, start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list_name": req.ListName, "cash": balance})
}

// Transfer переводит cash между двумя портфелями текущего пользователя
func (h *Handlers) Transfer(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if !req.Amount.IsPositive() {
		badRequest(c, "amount must be positive")
		return
	}

	start := time.Now()
	fromCash, toCash, err := h.ledger.TransferCash(c.Request.Context(), me, req.FromList, req.ToList, req.Amount)
	if observe("transfer", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from": gin.H{"list_name": req.FromList, "cash": fromCash},
		"to":   gin.H{"list_name": req.ToList, "cash": toCash},
	})
}
