package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/domain/entity"
	"github.com/oksasatya/go-user-service/internal/interface/middleware"
	"github.com/oksasatya/go-user-service/pkg/apperr"
	"github.com/oksasatya/go-user-service/pkg/response"
	"github.com/oksasatya/go-user-service/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"omitempty,oneof=USER ADMIN"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	Name  string `json:"name" binding:"omitempty,min=2"`
	Email string `json:"email" binding:"omitempty,email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,pwd"`
}

// userJSON is the outward representation of an account. The password hash is
// never part of it.
func userJSON(u *entity.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"role":       u.Role,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

func callerFrom(c *gin.Context) userapp.Caller {
	return userapp.Caller{
		ID:   c.GetString(middleware.CtxUserIDKey),
		Role: entity.Role(c.GetString(middleware.CtxUserRoleKey)),
	}
}

// requestCtx attaches client IP and user agent for the audit trail.
func requestCtx(c *gin.Context) context.Context {
	ip := c.GetString("real_ip")
	if ip == "" {
		ip = c.ClientIP()
	}
	return userapp.WithRequestInfo(c.Request.Context(), userapp.RequestInfo{
		IP:        ip,
		UserAgent: c.GetHeader("User-Agent"),
	})
}

func invalidPayload(err error) error {
	return apperr.WithDetails(apperr.TypeValidation, "invalid payload", validation.ToDetails(err))
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, invalidPayload(err))
		return
	}

	u, token, err := h.Svc.Register(requestCtx(c), userapp.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     entity.Role(req.Role),
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": userJSON(u), "token": token})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, invalidPayload(err))
		return
	}

	u, token, err := h.Svc.Login(requestCtx(c), req.Email, req.Password)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": userJSON(u), "token": token})
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Svc.GetProfile(requestCtx(c), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": userJSON(u)})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, invalidPayload(err))
		return
	}

	u, err := h.Svc.UpdateProfile(requestCtx(c), c.GetString(middleware.CtxUserIDKey), userapp.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": userJSON(u)})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, invalidPayload(err))
		return
	}

	err := h.Svc.ChangePassword(requestCtx(c), c.GetString(middleware.CtxUserIDKey), req.CurrentPassword, req.NewPassword)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "password changed successfully"})
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.Svc.ListUsers(requestCtx(c), callerFrom(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON(u))
	}
	response.Success(c, http.StatusOK, gin.H{"users": out})
}

func (h *UserHandler) SearchUsers(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(requestCtx(c), callerFrom(c), c.Query("q"), size)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": hits})
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	err := h.Svc.DeleteUser(requestCtx(c), callerFrom(c), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "user deleted successfully"})
}
