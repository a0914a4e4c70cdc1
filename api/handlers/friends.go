package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"stocksocial/services"

	"github.com/gin-gonic/gin"
)

// FriendRequestBody - второй участник заявки; первый берётся из заголовка
type FriendRequestBody struct {
	Username string `json:"username" binding:"required"`
}

func bindFriend(c *gin.Context) (me, other string, ok bool) {
	me, ok = currentUser(c)
	if !ok {
		return "", "", false
	}
	var r FriendRequestBody
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "invalid request")
		return "", "", false
	}
	other = strings.TrimSpace(r.Username)
	if other == me {
		badRequest(c, "cannot send friend requests to yourself")
		return "", "", false
	}
	return me, other, true
}

// SendFriendRequest - заявка от текущего пользователя к username
func (h *Handlers) SendFriendRequest(c *gin.Context) {
	me, other, ok := bindFriend(c)
	if !ok {
		return
	}
	start := time.Now()
	friends, err := h.friends.AreFriends(c.Request.Context(), me, other)
	if err == nil && friends {
		err = fmt.Errorf("%s and %s are already friends: %w", me, other, services.ErrDuplicateRequest)
	}
	if err != nil {
		observe("send_friend_request", start, err)
		respondError(c, err)
		return
	}
	request, err := h.friends.SendFriendRequest(c.Request.Context(), me, other)
	if observe("send_friend_request", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request sent", "request": request})
}

// AcceptFriendRequest - текущий пользователь принимает заявку от username
func (h *Handlers) AcceptFriendRequest(c *gin.Context) {
	me, other, ok := bindFriend(c)
	if !ok {
		return
	}
	start := time.Now()
	err := h.friends.AcceptFriendRequest(c.Request.Context(), other, me)
	if observe("accept_friend_request", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friendship approved"})
}

// RejectFriendRequest - текущий пользователь отклоняет заявку от username
func (h *Handlers) RejectFriendRequest(c *gin.Context) {
	me, other, ok := bindFriend(c)
	if !ok {
		return
	}
	start := time.Now()
	err := h.friends.RejectFriendRequest(c.Request.Context(), other, me)
	if observe("reject_friend_request", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request rejected"})
}

// DeleteFriend - отмена заявки или удаление из друзей
func (h *Handlers) DeleteFriend(c *gin.Context) {
	me, other, ok := bindFriend(c)
	if !ok {
		return
	}
	start := time.Now()
	err := h.friends.DeleteFriendRequest(c.Request.Context(), me, other)
	if observe("delete_friend_request", start, err) != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend deleted"})
}

// GetFriends - друзья username (по умолчанию текущего пользователя)
func (h *Handlers) GetFriends(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	username := c.DefaultQuery("username", me)

	friends, err := h.friends.GetFriends(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

func (h *Handlers) GetIncomingRequests(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	requests, err := h.friends.GetIncomingRequests(c.Request.Context(), me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handlers) GetOutgoingRequests(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	requests, err := h.friends.GetOutgoingRequests(c.Request.Context(), me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetRejectedRequests - отклонённые исходящие заявки со временем, когда их можно повторить
func (h *Handlers) GetRejectedRequests(c *gin.Context) {
	me, ok := currentUser(c)
	if !ok {
		return
	}
	requests, err := h.friends.GetRejectedRequests(c.Request.Context(), me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requests":         requests,
		"cooldown_seconds": int64(h.friends.Cooldown().Seconds()),
	})
}
