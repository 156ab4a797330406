package models

import (
	"slices"
	"time"
)

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectPaused     ProjectStatus = "paused"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectPaused, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Project struct {
	ID             string        `bson:"_id" json:"id"`
	Name           string        `bson:"name" json:"name"`
	Description    string        `bson:"description" json:"description"`
	Status         ProjectStatus `bson:"status" json:"status"`
	Priority       Priority      `bson:"priority" json:"priority"`
	Clients        []string      `bson:"clients" json:"clients"`
	Members        []string      `bson:"members" json:"members"`
	ResponsibleID  string        `bson:"responsibleId,omitempty" json:"responsibleId,omitempty"`
	EstimatedHours *float64      `bson:"estimatedHours,omitempty" json:"estimatedHours,omitempty"`
	ActualHours    float64       `bson:"actualHours" json:"actualHours"`
	Notes          string        `bson:"notes,omitempty" json:"notes,omitempty"`
	StartDate      *time.Time    `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate        *time.Time    `bson:"endDate,omitempty" json:"endDate,omitempty"`
	CreatedBy      string        `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy      string        `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// HasClient reports whether clientID is one of the project's clients.
func (p *Project) HasClient(clientID string) bool {
	return clientID != "" && slices.Contains(p.Clients, clientID)
}

// HasMember reports whether uid is one of the project's members.
func (p *Project) HasMember(uid string) bool {
	return uid != "" && slices.Contains(p.Members, uid)
}

// UserSummary is the slice of a user embedded in project responses.
type UserSummary struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// ProjectDetails is a project enriched with its responsible user and client
// summaries.
type ProjectDetails struct {
	*Project
	Responsible *UserSummary    `json:"responsible,omitempty"`
	ClientsData []ClientSummary `json:"clientsData"`
}

type ProjectPatch struct {
	Name           *string        `bson:"name,omitempty" json:"name,omitempty"`
	Description    *string        `bson:"description,omitempty" json:"description,omitempty"`
	Status         *ProjectStatus `bson:"status,omitempty" json:"status,omitempty"`
	Priority       *Priority      `bson:"priority,omitempty" json:"priority,omitempty"`
	Clients        *[]string      `bson:"clients,omitempty" json:"clients,omitempty"`
	Members        *[]string      `bson:"members,omitempty" json:"members,omitempty"`
	ResponsibleID  *string        `bson:"responsibleId,omitempty" json:"responsibleId,omitempty"`
	EstimatedHours *float64       `bson:"estimatedHours,omitempty" json:"estimatedHours,omitempty"`
	ActualHours    *float64       `bson:"actualHours,omitempty" json:"actualHours,omitempty"`
	Notes          *string        `bson:"notes,omitempty" json:"notes,omitempty"`
	StartDate      *time.Time     `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate        *time.Time     `bson:"endDate,omitempty" json:"endDate,omitempty"`
	UpdatedBy      *string        `bson:"updatedBy,omitempty" json:"-"`
}

func (p *ProjectPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.Clients == nil && p.Members == nil && p.ResponsibleID == nil && p.EstimatedHours == nil &&
		p.ActualHours == nil && p.Notes == nil && p.StartDate == nil && p.EndDate == nil
}

func (p *ProjectPatch) Apply(pr *Project) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.Status != nil {
		pr.Status = *p.Status
	}
	if p.Priority != nil {
		pr.Priority = *p.Priority
	}
	if p.Clients != nil {
		pr.Clients = slices.Clone(*p.Clients)
	}
	if p.Members != nil {
		pr.Members = slices.Clone(*p.Members)
	}
	if p.ResponsibleID != nil {
		pr.ResponsibleID = *p.ResponsibleID
	}
	if p.EstimatedHours != nil {
		v := *p.EstimatedHours
		pr.EstimatedHours = &v
	}
	if p.ActualHours != nil {
		pr.ActualHours = *p.ActualHours
	}
	if p.Notes != nil {
		pr.Notes = *p.Notes
	}
	if p.StartDate != nil {
		t := *p.StartDate
		pr.StartDate = &t
	}
	if p.EndDate != nil {
		t := *p.EndDate
		pr.EndDate = &t
	}
	if p.UpdatedBy != nil {
		pr.UpdatedBy = *p.UpdatedBy
	}
}

// ProjectStats counts projects by status and priority. Active covers
// planning and in_progress.
type ProjectStats struct {
	Total      int                   `json:"total"`
	ByStatus   map[ProjectStatus]int `json:"byStatus"`
	ByPriority map[Priority]int      `json:"byPriority"`
	Active     int                   `json:"active"`
	Completed  int                   `json:"completed"`
}

// ProjectStatuses and Priorities list every enum value in display order.
var (
	ProjectStatuses = []ProjectStatus{ProjectPlanning, ProjectInProgress, ProjectPaused, ProjectCompleted, ProjectCancelled}
	Priorities      = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
)

// UniqueIDs drops empty and repeated ids, keeping first-seen order.
func UniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
