package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quentinlc/lobbychat/internal/auth"
	"github.com/quentinlc/lobbychat/internal/domain"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,max=36"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handlers) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid email, username or password"})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	user, err := h.Users.Create(req.Email, req.Username, hash)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.Verifier.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setTokenCookie(c, token)
	log.Info().Str("module", "adapters.http").Str("user", string(user.ID)).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

func (h *Handlers) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email or password"})
		return
	}
	user, err := h.Users.GetByEmail(req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(c, fmt.Errorf("wrong password: %w", domain.ErrUnauthorized))
		return
	}
	token, err := h.Verifier.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setTokenCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

func (h *Handlers) handleMe(c *gin.Context) {
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		writeError(c, errors.New("no identity"))
		return
	}
	user, err := h.Users.GetByID(ident.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) setTokenCookie(c *gin.Context, token string) {
	c.SetCookie("token", token, int(h.TokenTTL.Seconds()), "/", "", false, true)
}
