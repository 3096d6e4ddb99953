package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// FriendRequest - тело POST /friends.
type FriendRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) friendsAvailable(c *gin.Context) bool {
	if s.rt.Friends == nil {
		fail(c, http.StatusNotImplemented, "Список друзей не настроен")
		return false
	}
	return true
}

func (s *Server) handleListFriends(c *gin.Context) {
	if !s.friendsAvailable(c) {
		return
	}
	names := s.rt.Friends.List()
	ok(c, "Список друзей", gin.H{"friends": names, "total": len(names)})
}

func (s *Server) handleAddFriend(c *gin.Context) {
	if !s.friendsAvailable(c) {
		return
	}
	var req FriendRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	if !s.rt.Friends.Add(req.Name) {
		fail(c, http.StatusConflict, req.Name+" уже в списке друзей")
		return
	}
	s.log.Info("👥 Добавлен друг: %s", req.Name)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Добавлен " + req.Name})
}

func (s *Server) handleRemoveFriend(c *gin.Context) {
	if !s.friendsAvailable(c) {
		return
	}
	name := c.Param("name")
	if !s.rt.Friends.Remove(name) {
		fail(c, http.StatusNotFound, name+" нет в списке друзей")
		return
	}
	s.log.Info("👥 Удалён друг: %s", name)
	ok(c, "Удалён "+name, nil)
}
