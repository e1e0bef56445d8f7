package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"pgvplaning/backend/internal/service"
	"pgvplaning/backend/pkg/response"
)

type UserHandler struct {
	userSvc service.UserService
}

func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetCurrentUser GET /api/v1/users/me
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 20001, "utilisateur introuvable")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, user)
}
