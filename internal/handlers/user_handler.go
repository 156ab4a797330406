package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/respond"
	"github.com/harentsoaR/testmanager-api/internal/services"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

type UpdateUserRequest struct {
	FullName *string `json:"fullName" binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin collaborator client"`
	ClientID *string `json:"clientId"`
	IsActive *bool   `json:"isActive"`
	CpfCnpj  *string `json:"cpfCnpj"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
}

func (r UpdateUserRequest) patch() *models.UserPatch {
	p := &models.UserPatch{
		FullName: r.FullName,
		Email:    r.Email,
		ClientID: r.ClientID,
		IsActive: r.IsActive,
		CpfCnpj:  r.CpfCnpj,
		Address:  r.Address,
		Phone:    r.Phone,
	}
	if r.Role != nil {
		role := models.Role(*r.Role)
		p.Role = &role
	}
	return p
}

type UpdateProfileRequest struct {
	FullName *string `json:"fullName" binding:"omitempty,min=2,max=100"`
	CpfCnpj  *string `json:"cpfCnpj"`
	Address  *string `json:"address"`
	Phone    *string `json:"phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	f := store.UserFilter{
		Search:   c.Query("q"),
		Role:     models.Role(c.Query("role")),
		ClientID: c.Query("clientId"),
	}
	page, err := h.Svc.Users.List(c.Request.Context(), id, f, listOptions(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"users": page.Items, "pagination": pagination(page)})
}

func (h *Handler) CreateUser(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	u, err := h.Svc.Users.Create(c.Request.Context(), id, req.input())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusCreated, "user created successfully", gin.H{"user": u})
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	u, err := h.Svc.Users.Get(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"user": u})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	u, err := h.Svc.Users.Update(c.Request.Context(), id, c.Param("id"), req.patch())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "user updated successfully", gin.H{"user": u})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	target := c.Param("id")
	if err := h.Svc.Users.Delete(c.Request.Context(), id, target); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "user deleted successfully", gin.H{"id": target})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	err := h.Svc.Users.ChangePassword(c.Request.Context(), id, c.Param("id"), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "password changed successfully", nil)
}

// GetCurrentUser returns the caller's own profile.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	u, err := h.Svc.Users.Me(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"user": u})
}

// UpdateCurrentUser lets users edit their own profile fields.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	u, err := h.Svc.Users.UpdateMe(c.Request.Context(), id, services.ProfileUpdate{
		FullName: req.FullName,
		CpfCnpj:  req.CpfCnpj,
		Address:  req.Address,
		Phone:    req.Phone,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "profile updated successfully", gin.H{"user": u})
}
