package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quentinlc/lobbychat/internal/auth"
	"github.com/quentinlc/lobbychat/internal/domain"
)

type createLobbyRequest struct {
	Name string `json:"name" binding:"max=64"`
}

type renameLobbyRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

func (h *Handlers) handleCreateLobby(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	var req createLobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lobby name"})
		return
	}
	lobby, err := h.Members.CreateLobby(ident.UserID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lobby)
}

func (h *Handlers) handleJoinLobby(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	lobby, err := h.Members.JoinLobby(ident.UserID, domain.LobbyID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined lobby", "lobby": lobby})
}

func (h *Handlers) handleLeaveLobby(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	lobby, err := h.Members.LeaveLobby(ident.UserID, domain.LobbyID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left lobby", "lobby": lobby})
}

func (h *Handlers) handleListLobbies(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	lobbies, err := h.Members.ListFor(ident.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lobbies)
}

func (h *Handlers) handleGetLobby(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	lobby, err := h.Members.Authorize(ident.UserID, domain.LobbyID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lobby)
}

func (h *Handlers) handleRenameLobby(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	var req renameLobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing lobby name"})
		return
	}
	lobby, err := h.Members.RenameLobby(ident.UserID, domain.LobbyID(c.Param("id")), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lobby)
}

func (h *Handlers) handleDeleteLobby(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	id := domain.LobbyID(c.Param("id"))
	if err := h.Members.DeleteLobby(ident.UserID, id); err != nil {
		writeError(c, err)
		return
	}
	h.Pipeline.Forget(id)
	c.Status(http.StatusNoContent)
}

// handleInviteLink builds a join link for the lobby. Anyone in the
// lobby may invite.
func (h *Handlers) handleInviteLink(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	lobby, err := h.Members.Authorize(ident.UserID, domain.LobbyID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	link := fmt.Sprintf("%s/api/lobbies/%s/join", h.BaseURL, lobby.ID)
	c.JSON(http.StatusOK, gin.H{"invite": link})
}
