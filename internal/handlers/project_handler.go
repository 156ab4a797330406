package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/respond"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

type CreateProjectRequest struct {
	Name           string   `json:"name" binding:"required,min=2,max=200"`
	Description    string   `json:"description" binding:"max=2000"`
	Status         string   `json:"status" binding:"omitempty,oneof=planning in_progress paused completed cancelled"`
	Priority       string   `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	Clients        []string `json:"clients"`
	Members        []string `json:"members"`
	ResponsibleID  string   `json:"responsibleId"`
	EstimatedHours *float64 `json:"estimatedHours" binding:"omitempty,gte=0"`
	ActualHours    float64  `json:"actualHours" binding:"gte=0"`
	Notes          string   `json:"notes"`
	StartDate      *string  `json:"startDate"`
	EndDate        *string  `json:"endDate"`
}

type UpdateProjectRequest struct {
	Name           *string   `json:"name" binding:"omitempty,min=2,max=200"`
	Description    *string   `json:"description" binding:"omitempty,max=2000"`
	Status         *string   `json:"status" binding:"omitempty,oneof=planning in_progress paused completed cancelled"`
	Priority       *string   `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	Clients        *[]string `json:"clients"`
	Members        *[]string `json:"members"`
	ResponsibleID  *string   `json:"responsibleId"`
	EstimatedHours *float64  `json:"estimatedHours" binding:"omitempty,gte=0"`
	ActualHours    *float64  `json:"actualHours" binding:"omitempty,gte=0"`
	Notes          *string   `json:"notes"`
	StartDate      *string   `json:"startDate"`
	EndDate        *string   `json:"endDate"`
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Validation([]apperr.FieldError{{Field: field, Message: field + " must be a date", Value: *s}})
}

func (r CreateProjectRequest) project() (*models.Project, error) {
	start, err := parseDate("startDate", r.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("endDate", r.EndDate)
	if err != nil {
		return nil, err
	}
	return &models.Project{
		Name:           r.Name,
		Description:    r.Description,
		Status:         models.ProjectStatus(r.Status),
		Priority:       models.Priority(r.Priority),
		Clients:        r.Clients,
		Members:        r.Members,
		ResponsibleID:  r.ResponsibleID,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
		Notes:          r.Notes,
		StartDate:      start,
		EndDate:        end,
	}, nil
}

func (r UpdateProjectRequest) patch() (*models.ProjectPatch, error) {
	p := &models.ProjectPatch{
		Name:           r.Name,
		Description:    r.Description,
		Clients:        r.Clients,
		Members:        r.Members,
		ResponsibleID:  r.ResponsibleID,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
		Notes:          r.Notes,
	}
	if r.Status != nil {
		s := models.ProjectStatus(*r.Status)
		p.Status = &s
	}
	if r.Priority != nil {
		pr := models.Priority(*r.Priority)
		p.Priority = &pr
	}
	var err error
	if p.StartDate, err = parseDate("startDate", r.StartDate); err != nil {
		return nil, err
	}
	if p.EndDate, err = parseDate("endDate", r.EndDate); err != nil {
		return nil, err
	}
	return p, nil
}

func (h *Handler) ListProjects(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	f := store.ProjectFilter{
		Search:        c.Query("q"),
		Status:        models.ProjectStatus(c.Query("status")),
		Priority:      models.Priority(c.Query("priority")),
		ClientID:      c.Query("clientId"),
		MemberID:      c.Query("memberId"),
		ResponsibleID: c.Query("responsibleId"),
	}
	page, err := h.Svc.Projects.List(c.Request.Context(), id, f, listOptions(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"projects": page.Items, "pagination": pagination(page)})
}

func (h *Handler) CreateProject(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	p, err := req.project()
	if err != nil {
		respond.Error(c, err)
		return
	}
	created, err := h.Svc.Projects.Create(c.Request.Context(), id, p)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusCreated, "project created successfully", gin.H{"project": created})
}

func (h *Handler) GetProject(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.Svc.Projects.Get(c.Request.Context(), id, c.Param("projectId"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"project": p})
}

func (h *Handler) UpdateProject(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := respond.Bind(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		respond.Error(c, err)
		return
	}
	p, err := h.Svc.Projects.Update(c.Request.Context(), id, c.Param("projectId"), patch)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "project updated successfully", gin.H{"project": p})
}

func (h *Handler) DeleteProject(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	target := c.Param("projectId")
	if err := h.Svc.Projects.Delete(c.Request.Context(), id, target); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "project deleted successfully", gin.H{"id": target})
}

func (h *Handler) ProjectStats(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	stats, err := h.Svc.Projects.Stats(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "", stats)
}
