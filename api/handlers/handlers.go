package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"stocksocial/api/middleware"
	"stocksocial/services"

	"github.com/gin-gonic/gin"
)

// Handlers - HTTP-обработчики поверх доменных сервисов
type Handlers struct {
	users        *services.UserService
	friends      *services.FriendService
	gate         *services.VisibilityGate
	lists        *services.StockListService
	ledger       *services.LedgerService
	correlations *services.CorrelationService
	statistics   *services.StatisticsService
}

// Services - зависимости обработчиков
type Services struct {
	Users        *services.UserService
	Friends      *services.FriendService
	Gate         *services.VisibilityGate
	Lists        *services.StockListService
	Ledger       *services.LedgerService
	Correlations *services.CorrelationService
	Statistics   *services.StatisticsService
}

func NewHandlers(s Services) *Handlers {
	return &Handlers{
		users:        s.Users,
		friends:      s.Friends,
		gate:         s.Gate,
		lists:        s.Lists,
		ledger:       s.Ledger,
		correlations: s.Correlations,
		statistics:   s.Statistics,
	}
}

// currentUser - username, выставленный IdentityMiddleware
func currentUser(c *gin.Context) (string, bool) {
	username := c.GetString(middleware.UsernameKey)
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return username, true
}

// StatusFor переводит доменную ошибку в HTTP-статус
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidArgument), errors.Is(err, services.ErrNotPortfolio):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrDuplicateRequest),
		errors.Is(err, services.ErrCooldownActive),
		errors.Is(err, services.ErrConstraintViolation):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// errorType - метка ошибки для метрик
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrNotFound):
		return "not_found"
	case errors.Is(err, services.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, services.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, services.ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, services.ErrCooldownActive):
		return "cooldown_active"
	case errors.Is(err, services.ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, services.ErrInvalidArgument), errors.Is(err, services.ErrNotPortfolio):
		return "invalid_argument"
	}
	return "internal"
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// observe пишет метрики операции и возвращает err без изменений
func observe(operation string, start time.Time, err error) error {
	middleware.RecordOperation(operation, time.Since(start), errorType(err))
	return err
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
