package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type CreateStockListRequest struct {
	ListName string `json:"list_name" binding:"required,max=100"`
	IsPublic bool   `json:"is_public"`
}

type ListNameRequest struct {
	ListName string `json:"list_name" binding:"required"`
}

type StockRequest struct {
	ListName string `json:"list_name" binding:"required"`
	Symbol   string `json:"symbol" binding:"required,max=16"`
	Amount   int64  `json:"amount"`
}

// listRef - (owner, list_name) из query; owner по умолчанию текущий пользователь
func listRef(c *gin.Context, me string) (owner, listName string, ok bool) {
	owner = c.DefaultQuery("username", me)
	listName = c.Query("list_name")
	if listName == "" {
		badRequest(c, "list_name is required")
		return "", "", false
	}
	return owner, listName, true
}

// GetStockLists - непортфельные списки username, видимые текущему пользователю
func (h *Handlers) GetStockLists(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	owner := c.DefaultQuery("username", me)

	lists, err := h.lists.GetStockLists(c.Request.Context(), owner, me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock_lists": lists})
}

func (h *Handlers) GetPublicStockLists(c *gin.Context) {
	lists, err := h.lists.GetPublicStockLists(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock_lists": lists})
}

// GetSharedStockLists - приватные списки, которыми поделились с текущим пользователем
func (h *Handlers) GetSharedStockLists(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	lists, err := h.gate.GetSharedStockLists(c.Request.Context(), me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock_lists": lists})
}

func (h *Handlers) GetStockListStocks(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	owner, listName, ok := listRef(c, me)
	if !ok {
		return
	}

	stocks, err := h.lists.GetStockListStocks(c.Request.Context(), owner, listName, me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stocks": stocks})
}

func (h *Handlers) CreateStockList(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateStockListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	start := time.Now()
	list, err := h.lists.CreateStockList(c.Request.Context(), me, req.ListName, req.IsPublic)
	if observe("create_stock_list", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stock_list": list})
}

func (h *Handlers) DeleteStockList(c *gin.Context) {
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
	err := h.lists.DeleteStockList(c.Request.Context(), me, req.ListName)
	if observe("delete_stock_list", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "stock list deleted"})
}

func (h *Handlers) AddStock(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		badRequest(c, "amount must be positive")
		return
	}

	start := time.Now()
	stock, err := h.lists.AddStockToList(c.Request.Context(), me, req.ListName, req.Symbol, req.Amount)
	if observe("add_stock", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

func (h *Handlers) RemoveStock(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	start := time.Now()
	err := h.lists.RemoveStockFromList(c.Request.Context(), me, req.ListName, req.Symbol)
	if observe("remove_stock", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "stock removed"})
}

// GetCorrelations - матрица корреляций списка, если текущий пользователь его видит
func (h *Handlers) GetCorrelations(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	owner, listName, ok := listRef(c, me)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.gate.Authorize(ctx, owner, listName, me); err != nil {
		respondError(c, err)
		return
	}

	start := time.Now()
	matrix, err := h.correlations.GetCorrelationMatrix(ctx, owner, listName)
	if observe("get_correlation_matrix", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matrix)
}
