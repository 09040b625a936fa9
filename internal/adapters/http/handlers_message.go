package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quentinlc/lobbychat/internal/auth"
	"github.com/quentinlc/lobbychat/internal/domain"
)

type sendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *Handlers) handleSendMessage(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing message body"})
		return
	}
	msg, err := h.Pipeline.Send(ident.UserID, domain.LobbyID(c.Param("id")), req.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "message sent", "saved": msg})
}

func (h *Handlers) handleListMessages(c *gin.Context) {
	ident, _ := auth.IdentityFrom(c)
	messages, err := h.Pipeline.History(ident.UserID, domain.LobbyID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
