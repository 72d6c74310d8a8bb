package project

import (
	"campus-project-hub/internal/domain"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrVersionConflict signals that the record's version moved past the
// expected one; the caller maps it onto the conflict error kind.
var ErrVersionConflict = errors.New("project version conflict")

type Repository interface {
	Create(ctx context.Context, project *domain.Project) error
	FindByID(ctx context.Context, id uint64) (*domain.Project, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Project, Meta, error)
	ApplyChangeSet(ctx context.Context, projectID uint64, cs domain.ChangeSet, expectedVersion uint64) (*domain.Project, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// Create inserts the project together with its owner role row.
func (r *RepositoryImpl) Create(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project.Version = 1
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		return tx.Create(&domain.CollaboratorRole{
			UserID:    project.OwnerID,
			ProjectID: project.ID,
			Role:      domain.RoleOwner,
		}).Error
	})
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).First(&project, id).Error
	return &project, err
}

type Meta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

func (r *RepositoryImpl) List(ctx context.Context, page, pageSize int) ([]domain.Project, Meta, error) {
	var projects []domain.Project
	var totalRecords int64

	// Count total records
	if err := r.db.WithContext(ctx).Model(&domain.Project{}).Count(&totalRecords).Error; err != nil {
		return projects, Meta{}, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&projects).Error

	totalPages := int((totalRecords + int64(pageSize) - 1) / int64(pageSize))

	return projects, Meta{
		Total:       totalRecords,
		PerPage:     pageSize,
		TotalPage:   totalPages,
		CurrentPage: page,
	}, err
}

// ApplyChangeSet writes every entry's new value and bumps the version by one,
// guarded by a compare-and-swap on the expected version. All-or-nothing: a
// stale version leaves the record untouched and returns ErrVersionConflict.
func (r *RepositoryImpl) ApplyChangeSet(ctx context.Context, projectID uint64, cs domain.ChangeSet, expectedVersion uint64) (*domain.Project, error) {
	var updated domain.Project

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := cs.ColumnUpdates()
		updates["version"] = gorm.Expr("version + 1")
		updates["updated_at"] = time.Now().UTC()

		res := tx.Model(&domain.Project{}).
			Where("id = ? AND version = ?", projectID, expectedVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// distinguish a missing record from a moved version
			var count int64
			if err := tx.Model(&domain.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrVersionConflict
		}

		return tx.First(&updated, projectID).Error
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}
