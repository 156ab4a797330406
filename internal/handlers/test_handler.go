package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/respond"
)

type StepRequest struct {
	Description    string `json:"description" binding:"required"`
	ExpectedResult string `json:"expectedResult"`
	ActualResult   string `json:"actualResult"`
	Status         string `json:"status"`
}

type CreateTestRequest struct {
	Title       string        `json:"title" binding:"required,min=2,max=200"`
	Description string        `json:"description" binding:"max=5000"`
	Status      string        `json:"status" binding:"omitempty,oneof=todo pending in_progress passed failed blocked"`
	Steps       []StepRequest `json:"steps" binding:"dive"`
}

type UpdateTestRequest struct {
	Title       *string        `json:"title" binding:"omitempty,min=2,max=200"`
	Description *string        `json:"description" binding:"omitempty,max=5000"`
	Status      *string        `json:"status" binding:"omitempty,oneof=todo pending in_progress passed failed blocked"`
	Steps       *[]StepRequest `json:"steps" binding:"omitempty,dive"`
	RunBy       *string        `json:"runBy"`
}

func steps(in []StepRequest) []models.Step {
	out := make([]models.Step, 0, len(in))
	for _, s := range in {
		out = append(out, models.Step{
			Description:    s.Description,
			ExpectedResult: s.ExpectedResult,
			ActualResult:   s.ActualResult,
			Status:         s.Status,
		})
	}
	return out
}

func (h *Handler) ListTests(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	tests, err := h.Svc.Tests.List(c.Request.Context(), id, c.Param("projectId"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"tests": tests})
}

func (h *Handler) CreateTest(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req CreateTestRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	t := &models.Test{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TestStatus(req.Status),
		Steps:       steps(req.Steps),
	}
	created, err := h.Svc.Tests.Create(c.Request.Context(), id, c.Param("projectId"), t)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusCreated, "test created successfully", gin.H{"test": created})
}

func (h *Handler) GetTest(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	t, err := h.Svc.Tests.Get(c.Request.Context(), id, c.Param("projectId"), c.Param("testId"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"test": t})
}

func (h *Handler) UpdateTest(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateTestRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	patch := &models.TestPatch{Title: req.Title, Description: req.Description, RunBy: req.RunBy}
	if req.Status != nil {
		st := models.TestStatus(*req.Status)
		patch.Status = &st
	}
	if req.Steps != nil {
		s := steps(*req.Steps)
		patch.Steps = &s
	}
	t, err := h.Svc.Tests.Update(c.Request.Context(), id, c.Param("projectId"), c.Param("testId"), patch)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "test updated successfully", gin.H{"test": t})
}

// DeleteTest removes a test and, unless ?cascade=false, its evidence files.
func (h *Handler) DeleteTest(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	cascade := true
	if v := c.Query("cascade"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respond.Error(c, apperr.Validation([]apperr.FieldError{{Field: "cascade", Message: "cascade must be true or false", Value: v}}))
			return
		}
		cascade = b
	}
	testID := c.Param("testId")
	if err := h.Svc.Tests.Delete(c.Request.Context(), id, c.Param("projectId"), testID, cascade); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "test deleted successfully", gin.H{"id": testID})
}
