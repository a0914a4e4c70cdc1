package routes

import (
	"net/http"

	"stocksocial/api/handlers"
	"stocksocial/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine, h *handlers.Handlers) *gin.RouterGroup {
	publicEndpoints := router.Group("/api/v1/")

	users := publicEndpoints.Group("users")
	users.Use(middleware.OptionalIdentityMiddleware())
	{
		users.POST("", h.UserRegister)
		users.GET("search", h.UserSearch)
		users.GET(":username", h.UserGet)
	}

	publicEndpoints.GET("stocks", h.GetStocks)

	// Друзья
	friends := publicEndpoints.Group("friends")
	friends.Use(middleware.IdentityMiddleware())
	{
		friends.GET("", h.GetFriends)
		friends.GET("incoming", h.GetIncomingRequests)
		friends.GET("outgoing", h.GetOutgoingRequests)
		friends.GET("rejected", h.GetRejectedRequests)
		friends.POST("send", h.SendFriendRequest)
		friends.POST("accept", h.AcceptFriendRequest)
		friends.POST("reject", h.RejectFriendRequest)
		friends.POST("delete", h.DeleteFriend)
	}

	// Списки, отзывы и портфели
	lists := publicEndpoints.Group("stock-lists")
	lists.Use(middleware.IdentityMiddleware())
	{
		lists.GET("", h.GetStockLists)
		lists.GET("public", h.GetPublicStockLists)
		lists.GET("shared", h.GetSharedStockLists)
		lists.GET("portfolios", h.GetPortfolios)
		lists.GET("stocks", h.GetStockListStocks)
		lists.GET("reviews", h.GetReviews)
		lists.GET("correlations", h.GetCorrelations)

		lists.POST("create", h.CreateStockList)
		lists.POST("create-portfolio", h.CreatePortfolio)
		lists.POST("delete", h.DeleteStockList)
		lists.POST("add-stock", h.AddStock)
		lists.POST("remove-stock", h.RemoveStock)
		lists.POST("share", h.ShareStockList)
		lists.POST("unshare", h.UnshareStockList)
		lists.POST("clear-review", h.ClearReview)
		lists.POST("edit-review", h.EditReview)
		lists.POST("remove-review", h.RemoveReview)

		lists.POST("deposit", h.Deposit)
		lists.POST("withdraw", h.Withdraw)
		lists.POST("transfer", h.Transfer)
	}
	return publicEndpoints
}

// ServiceApi - метрики и health check
func ServiceApi(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
