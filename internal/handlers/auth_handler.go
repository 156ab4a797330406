package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/respond"
	"github.com/harentsoaR/testmanager-api/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
	FullName string `json:"fullName" binding:"required,min=2,max=100"`
	Role     string `json:"role" binding:"required,oneof=admin collaborator client"`
	ClientID string `json:"clientId"`
	IsActive *bool  `json:"isActive"`
	CpfCnpj  string `json:"cpfCnpj"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

func (r CreateUserRequest) input() services.NewUser {
	return services.NewUser{
		Email:    r.Email,
		Password: r.Password,
		FullName: r.FullName,
		Role:     models.Role(r.Role),
		ClientID: r.ClientID,
		IsActive: r.IsActive,
		CpfCnpj:  r.CpfCnpj,
		Address:  r.Address,
		Phone:    r.Phone,
	}
}

type SetClaimsRequest struct {
	Role     string `json:"role" binding:"required,oneof=admin collaborator client"`
	ClientID string `json:"clientId"`
}

// Login exchanges email and password for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	sess, err := h.Svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "login successful", sess)
}

// Me returns the resolved identity and the stored profile, if any.
func (h *Handler) Me(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	identity, profile, err := h.Svc.Auth.Me(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"user": identity, "profile": profile})
}

// Logout is stateless; clients drop their token.
func (h *Handler) Logout(c *gin.Context) {
	respond.OK(c, http.StatusOK, "logout successful", nil)
}

func (h *Handler) CreateUserAccount(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	u, err := h.Svc.Auth.CreateUser(c.Request.Context(), id, req.input())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusCreated, "user created successfully", gin.H{"user": u, "uid": u.ID})
}

func (h *Handler) SetClaims(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req SetClaimsRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	u, err := h.Svc.Auth.SetClaims(c.Request.Context(), id, c.Param("uid"), models.Role(req.Role), req.ClientID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "claims updated", gin.H{"user": u})
}
