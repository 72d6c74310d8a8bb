package files

import (
	"campus-project-hub/internal/domain"
	"context"

	"gorm.io/gorm"
)

// FileRepository persists attachment refs and permanent project files.
type FileRepository interface {
	AttachedNameExists(ctx context.Context, proposalID uint64, name string) (bool, error)
	CreateAttached(ctx context.Context, ref *domain.AttachedFile) error
	ListAttached(ctx context.Context, proposalID uint64) ([]domain.AttachedFile, error)
	DeleteAttached(ctx context.Context, id uint64) error
	CreateProjectFile(ctx context.Context, file *domain.ProjectFile) error
	ListProjectFiles(ctx context.Context, projectID uint64) ([]domain.ProjectFile, error)
	ProjectFileNames(ctx context.Context, projectID uint64) ([]string, error)
}

type FileRepositoryImpl struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &FileRepositoryImpl{db: db}
}

func (r *FileRepositoryImpl) AttachedNameExists(ctx context.Context, proposalID uint64, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.AttachedFile{}).
		Where("proposal_id = ? AND name = ?", proposalID, name).
		Count(&count).Error
	return count > 0, err
}

func (r *FileRepositoryImpl) CreateAttached(ctx context.Context, ref *domain.AttachedFile) error {
	return r.db.WithContext(ctx).Create(ref).Error
}

func (r *FileRepositoryImpl) ListAttached(ctx context.Context, proposalID uint64) ([]domain.AttachedFile, error) {
	var refs []domain.AttachedFile
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("id ASC").
		Find(&refs).Error
	return refs, err
}

func (r *FileRepositoryImpl) DeleteAttached(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&domain.AttachedFile{}, id).Error
}

func (r *FileRepositoryImpl) CreateProjectFile(ctx context.Context, file *domain.ProjectFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *FileRepositoryImpl) ListProjectFiles(ctx context.Context, projectID uint64) ([]domain.ProjectFile, error) {
	var files []domain.ProjectFile
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&files).Error
	return files, err
}

func (r *FileRepositoryImpl) ProjectFileNames(ctx context.Context, projectID uint64) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&domain.ProjectFile{}).
		Where("project_id = ?", projectID).
		Pluck("name", &names).Error
	return names, err
}
