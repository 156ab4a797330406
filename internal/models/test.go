package models

import (
	"slices"
	"time"
)

type TestStatus string

const (
	TestTodo       TestStatus = "todo"
	TestPending    TestStatus = "pending"
	TestInProgress TestStatus = "in_progress"
	TestPassed     TestStatus = "passed"
	TestFailed     TestStatus = "failed"
	TestBlocked    TestStatus = "blocked"
)

func (s TestStatus) Valid() bool {
	switch s {
	case TestTodo, TestPending, TestInProgress, TestPassed, TestFailed, TestBlocked:
		return true
	}
	return false
}

// Step is one ordered instruction of a test case.
type Step struct {
	Description    string `bson:"description" json:"description"`
	ExpectedResult string `bson:"expectedResult,omitempty" json:"expectedResult,omitempty"`
	ActualResult   string `bson:"actualResult,omitempty" json:"actualResult,omitempty"`
	Status         string `bson:"status,omitempty" json:"status,omitempty"`
}

// Evidence is a file attached to a test. Path is the blob key.
type Evidence struct {
	Path        string    `bson:"path" json:"path"`
	URL         string    `bson:"url" json:"url"`
	ContentType string    `bson:"contentType,omitempty" json:"contentType,omitempty"`
	Size        int64     `bson:"size,omitempty" json:"size,omitempty"`
	Name        string    `bson:"name,omitempty" json:"name,omitempty"`
	UploadedBy  string    `bson:"uploadedBy,omitempty" json:"uploadedBy,omitempty"`
	UploadedAt  time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

// Test belongs to exactly one project; (ProjectID, ID) is its key.
type Test struct {
	ID          string     `bson:"_id" json:"id"`
	ProjectID   string     `bson:"projectId" json:"projectId"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description" json:"description"`
	Status      TestStatus `bson:"status" json:"status"`
	Steps       []Step     `bson:"steps" json:"steps"`
	Evidences   []Evidence `bson:"evidences" json:"evidences"`
	RunBy       string     `bson:"runBy,omitempty" json:"runBy,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// FindEvidence returns the evidence stored under path, if any.
func (t *Test) FindEvidence(path string) (Evidence, bool) {
	i := slices.IndexFunc(t.Evidences, func(e Evidence) bool { return e.Path == path })
	if i < 0 {
		return Evidence{}, false
	}
	return t.Evidences[i], true
}

type TestPatch struct {
	Title       *string     `bson:"title,omitempty" json:"title,omitempty"`
	Description *string     `bson:"description,omitempty" json:"description,omitempty"`
	Status      *TestStatus `bson:"status,omitempty" json:"status,omitempty"`
	Steps       *[]Step     `bson:"steps,omitempty" json:"steps,omitempty"`
	RunBy       *string     `bson:"runBy,omitempty" json:"runBy,omitempty"`
}

func (p *TestPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Steps == nil && p.RunBy == nil
}

func (p *TestPatch) Apply(t *Test) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Steps != nil {
		t.Steps = slices.Clone(*p.Steps)
	}
	if p.RunBy != nil {
		t.RunBy = *p.RunBy
	}
}
