package proposal

import (
	"campus-project-hub/internal/domain"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrBaselineMoved signals that the project version no longer matches the
// proposal's baseline; the merge touched nothing.
var ErrBaselineMoved = errors.New("project moved past proposal baseline")

// ErrStatusMoved signals a lost race on a conditional status update.
var ErrStatusMoved = errors.New("proposal status changed concurrently")

type ProposalRepository interface {
	Create(ctx context.Context, proposal *domain.Proposal) error
	FindByID(ctx context.Context, id uint64) (*domain.Proposal, error)
	ListByProject(ctx context.Context, projectID uint64) ([]domain.Proposal, error)
	UpdateStatus(ctx context.Context, proposalID uint64, from, to domain.ProposalStatus) error
	Merge(ctx context.Context, proposal *domain.Proposal) error
}

type ProposalRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ProposalRepository {
	return &ProposalRepositoryImpl{db: db}
}

func (r *ProposalRepositoryImpl) Create(ctx context.Context, proposal *domain.Proposal) error {
	now := time.Now().UTC()
	proposal.Status = domain.StatusOpen
	proposal.CreatedAt = now
	proposal.UpdatedAt = now
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *ProposalRepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Proposal, error) {
	var proposal domain.Proposal
	err := r.db.WithContext(ctx).
		Preload("AttachedFiles").
		First(&proposal, id).Error
	return &proposal, err
}

// ListByProject returns proposals newest first; id breaks creation-time ties
// so the ordering is deterministic.
func (r *ProposalRepositoryImpl) ListByProject(ctx context.Context, projectID uint64) ([]domain.Proposal, error) {
	var proposals []domain.Proposal
	err := r.db.WithContext(ctx).
		Preload("AttachedFiles").
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&proposals).Error
	return proposals, err
}

// UpdateStatus moves a proposal along one edge, conditional on its current
// status so concurrent reviews cannot double-apply a transition.
func (r *ProposalRepositoryImpl) UpdateStatus(ctx context.Context, proposalID uint64, from, to domain.ProposalStatus) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Proposal{}).
		Where("id = ? AND status = ?", proposalID, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusMoved
	}
	return nil
}

// Merge applies the proposal's changeset to the canonical record and flips
// the proposal to merged, in one transaction. The project update is a
// compare-and-swap on the baseline version: two approved proposals computed
// against the same baseline cannot both land; the second sees
// ErrBaselineMoved and nothing is mutated.
func (r *ProposalRepositoryImpl) Merge(ctx context.Context, proposal *domain.Proposal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		updates := proposal.ChangeSet.ColumnUpdates()
		updates["version"] = gorm.Expr("version + 1")
		updates["updated_at"] = now

		res := tx.Model(&domain.Project{}).
			Where("id = ? AND version = ?", proposal.ProjectID, proposal.BaselineVersion).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBaselineMoved
		}

		res = tx.Model(&domain.Proposal{}).
			Where("id = ? AND status = ?", proposal.ID, domain.StatusApproved).
			Updates(map[string]any{
				"status":     domain.StatusMerged,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusMoved
		}

		return nil
	})
}
