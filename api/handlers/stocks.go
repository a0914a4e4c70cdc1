package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetStocks - каталог символов, по которым загружена статистика
func (h *Handlers) GetStocks(c *gin.Context) {
	start := time.Now()
	stocks, err := h.statistics.ListStocks(c.Request.Context())
	if observe("list_stocks", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stocks": stocks})
}
