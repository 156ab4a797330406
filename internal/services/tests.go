package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/blob"
	"github.com/harentsoaR/testmanager-api/internal/models"
	"github.com/harentsoaR/testmanager-api/internal/policy"
	"github.com/harentsoaR/testmanager-api/internal/store"
)

// TestService manages tests and the evidence files attached to them.
type TestService struct {
	stores  store.Stores
	blobs   blob.Store
	log     logrus.FieldLogger
	now     func() time.Time
	baseURL string
}

// Upload is one evidence file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// project loads the owning project and checks act against the test resource.
func (s *TestService) project(ctx context.Context, caller *auth.Identity, projectID string, act policy.Action) (*models.Project, error) {
	p, err := s.stores.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.TestResource{Project: p}, act); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *TestService) List(ctx context.Context, caller *auth.Identity, projectID string) ([]models.Test, error) {
	if _, err := s.project(ctx, caller, projectID, policy.List); err != nil {
		return nil, err
	}
	return s.stores.Tests.List(ctx, projectID)
}

func (s *TestService) Create(ctx context.Context, caller *auth.Identity, projectID string, t *models.Test) (*models.Test, error) {
	if _, err := s.project(ctx, caller, projectID, policy.Create); err != nil {
		return nil, err
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "title", Message: "title is required"}})
	}
	if t.Status == "" {
		t.Status = models.TestTodo
	}
	if !t.Status.Valid() {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "status", Message: "invalid status", Value: t.Status}})
	}
	if t.Steps == nil {
		t.Steps = []models.Step{}
	}
	t.Evidences = []models.Evidence{}
	t.RunBy = caller.UID

	if err := s.stores.Tests.Create(ctx, projectID, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TestService) Get(ctx context.Context, caller *auth.Identity, projectID, testID string) (*models.Test, error) {
	if _, err := s.project(ctx, caller, projectID, policy.Read); err != nil {
		return nil, err
	}
	return s.stores.Tests.Get(ctx, projectID, testID)
}

func (s *TestService) Update(ctx context.Context, caller *auth.Identity, projectID, testID string, patch *models.TestPatch) (*models.Test, error) {
	if _, err := s.project(ctx, caller, projectID, policy.Update); err != nil {
		return nil, err
	}
	if patch == nil || patch.Empty() {
		return nil, apperr.InvalidArgumentf("no fields to update")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperr.Validation([]apperr.FieldError{{Field: "title", Message: "title cannot be empty"}})
		}
		patch.Title = &title
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "status", Message: "invalid status", Value: *patch.Status}})
	}
	return s.stores.Tests.Update(ctx, projectID, testID, patch)
}

// Delete removes a test. With cascade set, every evidence blob is deleted
// first on a best-effort basis; blob failures never block the delete.
func (s *TestService) Delete(ctx context.Context, caller *auth.Identity, projectID, testID string, cascade bool) error {
	if _, err := s.project(ctx, caller, projectID, policy.Delete); err != nil {
		return err
	}
	t, err := s.stores.Tests.Get(ctx, projectID, testID)
	if err != nil {
		return err
	}
	if cascade {
		for _, ev := range t.Evidences {
			s.deleteBlob(ctx, ev.Path)
		}
	}
	return s.stores.Tests.Delete(ctx, projectID, testID)
}

// AddEvidence appends an evidence record whose file is already stored.
func (s *TestService) AddEvidence(ctx context.Context, caller *auth.Identity, projectID, testID string, ev models.Evidence) (*models.Test, error) {
	if _, err := s.project(ctx, caller, projectID, policy.Update); err != nil {
		return nil, err
	}
	ev.Path = strings.TrimSpace(ev.Path)
	ev.URL = strings.TrimSpace(ev.URL)
	var fields []apperr.FieldError
	if ev.Path == "" {
		fields = append(fields, apperr.FieldError{Field: "path", Message: "path is required"})
	}
	if ev.URL == "" {
		fields = append(fields, apperr.FieldError{Field: "url", Message: "url is required"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	ev.UploadedAt = s.now().UTC()
	ev.UploadedBy = caller.UID
	return s.stores.Tests.AppendEvidence(ctx, projectID, testID, ev)
}

// RemoveEvidence detaches the evidence stored at path and deletes its blob.
// When the test has no such evidence it is returned unchanged.
func (s *TestService) RemoveEvidence(ctx context.Context, caller *auth.Identity, projectID, testID, evidencePath string) (*models.Test, error) {
	if _, err := s.project(ctx, caller, projectID, policy.Update); err != nil {
		return nil, err
	}
	t, err := s.stores.Tests.Get(ctx, projectID, testID)
	if err != nil {
		return nil, err
	}
	if _, ok := t.FindEvidence(evidencePath); !ok {
		return t, nil
	}
	s.deleteBlob(ctx, evidencePath)
	return s.stores.Tests.RemoveEvidence(ctx, projectID, testID, evidencePath)
}

// UploadEvidence stores the file under
// projects/{projectId}/tests/{testId}/{unixMillis}-{name} and appends the
// matching evidence record.
func (s *TestService) UploadEvidence(ctx context.Context, caller *auth.Identity, projectID, testID string, up Upload) (*models.Test, *models.Evidence, error) {
	if _, err := s.project(ctx, caller, projectID, policy.Update); err != nil {
		return nil, nil, err
	}
	if _, err := s.stores.Tests.Get(ctx, projectID, testID); err != nil {
		return nil, nil, err
	}
	if s.blobs == nil {
		return nil, nil, apperr.New(apperr.Internal, "file storage is not configured")
	}

	now := s.now().UTC()
	name := safeFileName(up.Name)
	key := fmt.Sprintf("projects/%s/tests/%s/%d-%s", projectID, testID, now.UnixMilli(), name)
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.blobs.Put(ctx, key, up.Body, contentType)
	if err != nil {
		if errors.Is(err, blob.ErrInvalidKey) {
			return nil, nil, apperr.InvalidArgumentf("invalid file name")
		}
		return nil, nil, apperr.Wrap(apperr.Internal, err, "failed to store file")
	}

	ev := models.Evidence{
		Path:        info.Key,
		URL:         s.evidenceURL(projectID, testID, info.Key),
		ContentType: contentType,
		Size:        info.Size,
		Name:        name,
		UploadedBy:  caller.UID,
		UploadedAt:  now,
	}
	t, err := s.stores.Tests.AppendEvidence(ctx, projectID, testID, ev)
	if err != nil {
		s.deleteBlob(ctx, info.Key)
		return nil, nil, err
	}
	return t, &ev, nil
}

// OpenEvidence streams an evidence file of the test. The caller closes the reader.
func (s *TestService) OpenEvidence(ctx context.Context, caller *auth.Identity, projectID, testID, evidencePath string) (io.ReadCloser, models.Evidence, error) {
	if _, err := s.project(ctx, caller, projectID, policy.Read); err != nil {
		return nil, models.Evidence{}, err
	}
	t, err := s.stores.Tests.Get(ctx, projectID, testID)
	if err != nil {
		return nil, models.Evidence{}, err
	}
	ev, ok := t.FindEvidence(evidencePath)
	if !ok {
		return nil, models.Evidence{}, apperr.NotFoundf("evidence not found")
	}
	if s.blobs == nil {
		return nil, models.Evidence{}, apperr.NotFoundf("evidence file not found")
	}
	rc, info, err := s.blobs.Open(ctx, ev.Path)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidKey) {
			return nil, models.Evidence{}, apperr.NotFoundf("evidence file not found")
		}
		return nil, models.Evidence{}, apperr.Wrap(apperr.Internal, err, "failed to open file")
	}
	if ev.ContentType == "" {
		ev.ContentType = info.ContentType
	}
	// Length always comes from the stored object, never the recorded metadata.
	ev.Size = info.Size
	return rc, ev, nil
}

func (s *TestService) evidenceURL(projectID, testID, key string) string {
	return fmt.Sprintf("%s/projects/%s/tests/%s/evidence/file?path=%s",
		s.baseURL, url.PathEscape(projectID), url.PathEscape(testID), url.QueryEscape(key))
}

// deleteBlob removes a blob, ignoring missing ones. Other failures are
// logged and swallowed.
func (s *TestService) deleteBlob(ctx context.Context, key string) {
	if s.blobs == nil || key == "" {
		return
	}
	err := s.blobs.Delete(ctx, key)
	if err == nil || errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidKey) {
		return
	}
	s.log.WithError(err).WithField("path", key).
		Warn("Event ID: EVIDENCE-001, Description: failed to delete evidence file")
}

func safeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	return name
}
