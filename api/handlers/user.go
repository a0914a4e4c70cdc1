package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type UserRegisterRequest struct {
	Username string `json:"username" binding:"required,max=60"`
}

// UserRegister регистрирует username, выданный внешним сервисом аутентификации
func (h *Handlers) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	start := time.Now()
	user, err := h.users.CreateUser(c.Request.Context(), req.Username)
	if observe("create_user", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handlers) UserSearch(c *gin.Context) {
	prefix := c.Query("prefix")

	limit := 50
	offset := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	users, err := h.users.SearchUsers(c.Request.Context(), prefix, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handlers) UserGet(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
