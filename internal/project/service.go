package project

import (
	"campus-project-hub/internal/domain"
	"campus-project-hub/internal/errors"
	"campus-project-hub/internal/files"
	"campus-project-hub/internal/membership"
	"campus-project-hub/internal/permission"
	"context"
	defError "errors"

	"gorm.io/gorm"
)

type Service interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProject(ctx context.Context, projectID uint64) (*domain.Project, error)
	ListProjects(ctx context.Context, page, pageSize int) (*PaginatedProjects, error)
	UpdateProject(ctx context.Context, projectID, userID uint64, cs domain.ChangeSet, expectedVersion uint64) (*domain.Project, error)
	UploadFile(ctx context.Context, projectID, userID uint64, up files.Upload) (*domain.ProjectFile, error)
	ListFiles(ctx context.Context, projectID uint64) ([]domain.ProjectFile, error)
}

// FileStore is the slice of the attachment binder the direct-upload path uses.
type FileStore interface {
	StoreDirect(ctx context.Context, projectID uint64, up files.Upload) (*domain.ProjectFile, error)
	ListForProject(ctx context.Context, projectID uint64) ([]domain.ProjectFile, error)
}

type DefaultService struct {
	repository Repository
	members    membership.Repository
	fileStore  FileStore
}

func NewService(repository Repository, members membership.Repository, fileStore FileStore) Service {
	return &DefaultService{
		repository: repository,
		members:    members,
		fileStore:  fileStore,
	}
}

func (s *DefaultService) CreateProject(ctx context.Context, project *domain.Project) error {
	if project.Title == "" {
		return errors.Validation("Title cannot be empty", nil)
	}
	return s.repository.Create(ctx, project)
}

func (s *DefaultService) GetProject(ctx context.Context, projectID uint64) (*domain.Project, error) {
	project, err := s.repository.FindByID(ctx, projectID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Project not found", err)
		}
		return nil, err
	}
	return project, nil
}

type PaginatedProjects struct {
	Data []domain.Project `json:"data"`
	Meta Meta             `json:"meta"`
}

func (s *DefaultService) ListProjects(ctx context.Context, page, pageSize int) (*PaginatedProjects, error) {
	projects, meta, err := s.repository.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PaginatedProjects{Data: projects, Meta: meta}, nil
}

// UpdateProject is the owner's direct-write path. A collaborator lands on the
// proposal_required error; the UI routes them into proposal creation.
func (s *DefaultService) UpdateProject(ctx context.Context, projectID, userID uint64, cs domain.ChangeSet, expectedVersion uint64) (*domain.Project, error) {
	role, err := s.members.RoleOf(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if err := permission.CheckDirectWrite(role); err != nil {
		return nil, err
	}

	if len(cs) == 0 {
		return nil, errors.Validation("No changes to apply", nil)
	}
	if err := cs.Validate(); err != nil {
		return nil, errors.Validation(err.Error(), err)
	}

	project, err := s.repository.ApplyChangeSet(ctx, projectID, cs, expectedVersion)
	if err != nil {
		switch {
		case defError.Is(err, ErrVersionConflict):
			return nil, errors.Conflict("Project changed since you loaded it", err)
		case defError.Is(err, gorm.ErrRecordNotFound):
			return nil, errors.NotFound("Project not found", err)
		}
		return nil, err
	}

	return project, nil
}

// UploadFile stores a file straight into the permanent set; same gate as
// field writes.
func (s *DefaultService) UploadFile(ctx context.Context, projectID, userID uint64, up files.Upload) (*domain.ProjectFile, error) {
	role, err := s.members.RoleOf(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if err := permission.CheckDirectWrite(role); err != nil {
		return nil, err
	}

	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	return s.fileStore.StoreDirect(ctx, projectID, up)
}

func (s *DefaultService) ListFiles(ctx context.Context, projectID uint64) ([]domain.ProjectFile, error) {
	return s.fileStore.ListForProject(ctx, projectID)
}
