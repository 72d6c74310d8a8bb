package membership

import (
	"campus-project-hub/internal/domain"
	"context"

	"gorm.io/gorm"
)

// Repository reads the collaborator role relation. The rows are owned by the
// identity system; this service never writes them outside the dev seed.
type Repository interface {
	RoleOf(ctx context.Context, userID, projectID uint64) (domain.Role, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// RoleOf returns the user's role on the project, RoleNone for non-members.
func (r *RepositoryImpl) RoleOf(ctx context.Context, userID, projectID uint64) (domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).
		Model(&domain.CollaboratorRole{}).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Select("role").
		Scan(&role).Error
	if err != nil || role == "" {
		return domain.RoleNone, err
	}

	return role, nil
}
