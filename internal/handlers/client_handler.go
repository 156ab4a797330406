package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/respond"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

type CreateClientRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Address  string `json:"address"`
	CpfCnpj  string `json:"cpfCnpj"`
	Notes    string `json:"notes" binding:"max=1000"`
	IsActive *bool  `json:"isActive"`
}

type UpdateClientRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone"`
	Company  *string `json:"company"`
	Address  *string `json:"address"`
	CpfCnpj  *string `json:"cpfCnpj"`
	Notes    *string `json:"notes" binding:"omitempty,max=1000"`
	IsActive *bool   `json:"isActive"`
}

func (h *Handler) ListClients(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	page, err := h.Svc.Clients.List(c.Request.Context(), id, store.ClientFilter{Search: c.Query("q")}, listOptions(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"clients": page.Items, "pagination": pagination(page)})
}

func (h *Handler) CreateClient(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req CreateClientRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	client := &models.Client{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		Address:  req.Address,
		CpfCnpj:  req.CpfCnpj,
		Notes:    req.Notes,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	created, err := h.Svc.Clients.Create(c.Request.Context(), id, client)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusCreated, "client created successfully", gin.H{"client": created})
}

func (h *Handler) GetClient(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	client, err := h.Svc.Clients.Get(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"client": client})
}

func (h *Handler) UpdateClient(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateClientRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	patch := &models.ClientPatch{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
		Address:  req.Address,
		CpfCnpj:  req.CpfCnpj,
		Notes:    req.Notes,
		IsActive: req.IsActive,
	}
	client, err := h.Svc.Clients.Update(c.Request.Context(), id, c.Param("id"), patch)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "client updated successfully", gin.H{"client": client})
}

func (h *Handler) DeleteClient(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	target := c.Param("id")
	if err := h.Svc.Clients.Delete(c.Request.Context(), id, target); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "client deleted successfully", gin.H{"id": target})
}

func (h *Handler) ClientStats(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	stats, err := h.Svc.Clients.Stats(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", stats)
}
