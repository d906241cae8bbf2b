package handlers

import (
	"context"

	"github.com/college-admin/backend/internal/http/dto"
	"github.com/college-admin/backend/internal/middleware"
	"github.com/college-admin/backend/internal/models"
	"github.com/college-admin/backend/internal/rbac"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type UserHandler struct {
	users UserLookup
	log   *zap.Logger
}

func NewUserHandler(users UserLookup, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

type meResponse struct {
	*models.User
	Permissions []string `json:"permissions"`
}

func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	// The stored role wins over the token's; it may have changed since login.
	perms := rbac.RolePermissions[user.Role]
	if perms == nil {
		perms = []string{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: meResponse{User: user, Permissions: perms}})
}
