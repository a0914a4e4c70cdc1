package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ShareRequest - владелец (текущий пользователь) и reviewer
type ShareRequest struct {
	ListName string `json:"list_name" binding:"required"`
	Username string `json:"username" binding:"required"`
}

type EditReviewRequest struct {
	Username string `json:"username" binding:"required"`
	ListName string `json:"list_name" binding:"required"`
	Review   string `json:"review"`
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
}

// RemoveReviewRequest: Reviewer пустой - свой отзыв
type RemoveReviewRequest struct {
	Username string `json:"username" binding:"required"`
	ListName string `json:"list_name" binding:"required"`
	Reviewer string `json:"reviewer"`
}

func (h *Handlers) GetReviews(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	owner, listName, ok := listRef(c, me)
	if !ok {
		return
	}

	reviews, err := h.gate.GetReviews(c.Request.Context(), owner, listName, me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// ShareStockList открывает приватный список username
func (h *Handlers) ShareStockList(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	reviewer := strings.TrimSpace(req.Username)
	if reviewer == me {
		badRequest(c, "cannot share a stock list with yourself")
		return
	}

	start := time.Now()
	review, err := h.lists.ShareStockList(c.Request.Context(), me, req.ListName, reviewer)
	if observe("share_stock_list", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}

// UnshareStockList отзывает доступ username вместе с его отзывом
func (h *Handlers) UnshareStockList(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	start := time.Now()
	err := h.lists.RemoveReview(c.Request.Context(), me, me, req.ListName, strings.TrimSpace(req.Username))
	if observe("unshare_stock_list", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "stock list unshared"})
}

// ClearReview - владелец стирает отзыв username, доступ сохраняется
func (h *Handlers) ClearReview(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	start := time.Now()
	err := h.lists.ClearReview(c.Request.Context(), me, req.ListName, strings.TrimSpace(req.Username))
	if observe("clear_review", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review cleared"})
}

// EditReview - текущий пользователь пишет отзыв на список username
func (h *Handlers) EditReview(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req EditReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	start := time.Now()
	review, err := h.lists.CreateOrUpdateReview(c.Request.Context(), req.Username, req.ListName, me, req.Review, req.Rating)
	if observe("edit_review", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}

func (h *Handlers) RemoveReview(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	var req RemoveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	reviewer := strings.TrimSpace(req.Reviewer)
	if reviewer == "" {
		reviewer = me
	}

	start := time.Now()
	err := h.lists.RemoveReview(c.Request.Context(), me, req.Username, req.ListName, reviewer)
	if observe("remove_review", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review removed"})
}
