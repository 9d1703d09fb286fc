package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
	usersvc "github.com/natededev/de-commerce/internal/service/user"
)

type authHandlers struct {
	svc         UserService
	revocations Revocations
	logger      *zap.Logger
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

func (h *authHandlers) register(c *gin.Context) {
	var req usersvc.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, userResponse{User: u}, "user registered")
}

func (h *authHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, session, "login successful")
}

func (h *authHandlers) validate(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, userResponse{User: u}, "")
}

func (h *authHandlers) me(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, u, "")
}

func (h *authHandlers) currentUser(c *gin.Context) (*domain.User, bool) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return nil, false
	}
	// Tokens from an external identity provider may name users that have
	// no local row; the token's own claims describe them.
	u, err := h.svc.Get(c.Request.Context(), id.UserID)
	if err != nil {
		u = &domain.User{ID: id.UserID, Email: id.Email, Name: id.Name, Role: id.Role}
	}
	return u, true
}

// logout denies the presented token for the rest of its lifetime. Without a
// denylist the client simply discards it.
func (h *authHandlers) logout(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	if h.revocations != nil {
		if err := h.revocations.Revoke(c.Request.Context(), c.GetString(string(tokenCtxKey)), id); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}
	respond(c, http.StatusOK, nil, "logged out successfully")
}

func (h *authHandlers) updateProfile(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	var req usersvc.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), id.UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, userResponse{User: u}, "profile updated")
}

func (h *authHandlers) changePassword(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		respondError(c, h.logger, domain.ErrNotAuthenticated)
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, nil, "password changed")
}
