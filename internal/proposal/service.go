package proposal

import (
	"campus-project-hub/internal/domain"
	"campus-project-hub/internal/errors"
	"campus-project-hub/internal/files"
	"campus-project-hub/internal/membership"
	"campus-project-hub/internal/notify"
	"campus-project-hub/internal/worker"
	"campus-project-hub/redis"
	"context"
	defError "errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	CreateProposal(ctx context.Context, projectID, authorID uint64, input CreateInput) (*domain.Proposal, []files.AttachResult, error)
	Transition(ctx context.Context, proposalID, requesterID uint64, target domain.ProposalStatus) (*domain.Proposal, error)
	ListForProject(ctx context.Context, projectID uint64) ([]domain.Proposal, error)
	GetProposal(ctx context.Context, proposalID uint64) (*domain.Proposal, error)
	ListAttachments(ctx context.Context, proposalID, requesterID uint64) ([]domain.AttachedFile, error)
}

// ProjectStore is the slice of the canonical store this service reads.
type ProjectStore interface {
	FindByID(ctx context.Context, id uint64) (*domain.Project, error)
}

// AttachmentBinder moves files through the proposal lifecycle.
type AttachmentBinder interface {
	AttachBatch(ctx context.Context, proposalID uint64, ups []files.Upload) []files.AttachResult
	ListForProposal(ctx context.Context, proposalID uint64) ([]domain.AttachedFile, error)
	Promote(ctx context.Context, projectID, proposalID uint64) error
	Discard(ctx context.Context, proposalID uint64) error
}

// Notifier is the fire-and-forget event sink; failures never affect the
// request outcome.
type Notifier interface {
	Send(ctx context.Context, event notify.Event) error
}

type CreateInput struct {
	Title       string
	Description string
	Comment     string
	Changes     domain.ChangeSet
	Files       []files.Upload
}

type DefaultService struct {
	repository ProposalRepository
	projects   ProjectStore
	members    membership.Repository
	binder     AttachmentBinder
	cache      *redis.Cache
	pool       *worker.WorkerPool
	notifier   Notifier
}

func NewService(
	repository ProposalRepository,
	projects ProjectStore,
	members membership.Repository,
	binder AttachmentBinder,
	cache *redis.Cache,
	pool *worker.WorkerPool,
	notifier Notifier,
) Service {
	return &DefaultService{
		repository: repository,
		projects:   projects,
		members:    members,
		binder:     binder,
		cache:      cache,
		pool:       pool,
		notifier:   notifier,
	}
}

// CreateProposal stages a collaborator's changeset for review. Attachments
// are bound per file: a failed upload is reported in the results without
// aborting the rest of the batch or the proposal itself.
func (s *DefaultService) CreateProposal(ctx context.Context, projectID, authorID uint64, input CreateInput) (*domain.Proposal, []files.AttachResult, error) {
	role, err := s.members.RoleOf(ctx, authorID, projectID)
	if err != nil {
		return nil, nil, err
	}
	switch role {
	case domain.RoleCollaborator:
		// proposal flow is exactly for collaborators
	case domain.RoleOwner:
		return nil, nil, errors.Forbidden("Owners edit the project directly", nil)
	default:
		return nil, nil, errors.Forbidden("Not a member of this project", nil)
	}

	if len(input.Changes) == 0 {
		return nil, nil, errors.Validation("Proposal has no changes", nil)
	}
	if err := input.Changes.Validate(); err != nil {
		return nil, nil, errors.Validation(err.Error(), err)
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.NotFound("Project not found", err)
		}
		return nil, nil, err
	}

	title := input.Title
	if title == "" {
		title = autoTitle(input.Changes)
	}
	description := input.Description
	if description == "" {
		description = autoDescription(input.Changes)
	}

	proposal := &domain.Proposal{
		ProjectID:       projectID,
		AuthorID:        authorID,
		Title:           title,
		Description:     description,
		Comment:         input.Comment,
		ChangeSet:       input.Changes,
		BaselineVersion: project.Version,
	}
	if err := s.repository.Create(ctx, proposal); err != nil {
		return nil, nil, err
	}

	results := s.binder.AttachBatch(ctx, proposal.ID, input.Files)
	for _, res := range results {
		if res.Err == nil && res.Ref != nil {
			proposal.AttachedFiles = append(proposal.AttachedFiles, *res.Ref)
		}
	}

	s.bumpListVersion(ctx, projectID)
	s.sendEvent("proposal.created", proposal)

	return proposal, results, nil
}

// Transition moves a proposal along one review edge. Only the project owner
// may transition; a merge is guarded by the baseline version so concurrently
// approved proposals cannot overwrite each other.
func (s *DefaultService) Transition(ctx context.Context, proposalID, requesterID uint64, target domain.ProposalStatus) (*domain.Proposal, error) {
	if !domain.ValidStatus(target) {
		return nil, errors.Validation(fmt.Sprintf("Unknown status %q", target), nil)
	}

	proposal, err := s.repository.FindByID(ctx, proposalID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Proposal not found", err)
		}
		return nil, err
	}

	role, err := s.members.RoleOf(ctx, requesterID, proposal.ProjectID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner {
		return nil, errors.Forbidden("Only the project owner can review proposals", nil)
	}

	if !domain.CanTransition(proposal.Status, target) {
		if proposal.Status.Terminal() {
			return nil, errors.InvalidTransition(
				fmt.Sprintf("Proposal is already %s", proposal.Status), nil)
		}
		return nil, errors.InvalidTransition(
			fmt.Sprintf("Cannot move proposal from %s to %s", proposal.Status, target), nil)
	}

	switch target {
	case domain.StatusApproved:
		if err := s.applyStatus(ctx, proposal, target); err != nil {
			return nil, err
		}

	case domain.StatusRejected:
		if err := s.applyStatus(ctx, proposal, target); err != nil {
			return nil, err
		}
		if err := s.binder.Discard(ctx, proposal.ID); err != nil {
			log.Printf("Failed to discard attachments of proposal %d: %v", proposal.ID, err)
		}

	case domain.StatusMerged:
		if err := s.repository.Merge(ctx, proposal); err != nil {
			switch {
			case defError.Is(err, ErrBaselineMoved):
				return nil, errors.Conflict("Project changed since this proposal was created", err)
			case defError.Is(err, ErrStatusMoved):
				return nil, errors.InvalidTransition("Proposal is no longer approved", err)
			}
			return nil, err
		}
		// the changeset landed; a promotion failure must not report the
		// merge as failed, so it is retried in the background and the files
		// stay attached until a retry succeeds
		if err := s.binder.Promote(ctx, proposal.ProjectID, proposal.ID); err != nil {
			log.Printf("Failed to promote attachments of proposal %d, retrying: %v", proposal.ID, err)
			s.retryPromote(proposal.ProjectID, proposal.ID)
		}
	}

	s.bumpListVersion(ctx, proposal.ProjectID)

	updated, err := s.repository.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	s.sendEvent("proposal."+string(target), updated)

	return updated, nil
}

func (s *DefaultService) applyStatus(ctx context.Context, proposal *domain.Proposal, target domain.ProposalStatus) error {
	err := s.repository.UpdateStatus(ctx, proposal.ID, proposal.Status, target)
	if defError.Is(err, ErrStatusMoved) {
		return errors.InvalidTransition(
			fmt.Sprintf("Proposal is no longer %s", proposal.Status), err)
	}
	return err
}

// ListForProject returns proposals newest first, via the version-keyed cache.
func (s *DefaultService) ListForProject(ctx context.Context, projectID uint64) ([]domain.Proposal, error) {
	versionKey := fmt.Sprintf("project:%d:proposals:version", projectID)
	v := s.cache.GetVersion(ctx, versionKey)

	cacheKey := fmt.Sprintf("proposals:p:%d:v:%d", projectID, v)

	var cached []domain.Proposal
	found, _ := s.cache.Get(ctx, cacheKey, &cached)
	if found {
		return cached, nil
	}

	proposals, err := s.repository.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.pool.Submit(func(ctx context.Context) error {
		return s.cache.Set(ctx, cacheKey, proposals, 24*time.Hour)
	})

	return proposals, nil
}

func (s *DefaultService) GetProposal(ctx context.Context, proposalID uint64) (*domain.Proposal, error) {
	proposal, err := s.repository.FindByID(ctx, proposalID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Proposal not found", err)
		}
		return nil, err
	}
	return proposal, nil
}

// ListAttachments exposes a proposal's files to its reviewer (the owner) and
// its author while the proposal is active.
func (s *DefaultService) ListAttachments(ctx context.Context, proposalID, requesterID uint64) ([]domain.AttachedFile, error) {
	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	role, err := s.members.RoleOf(ctx, requesterID, proposal.ProjectID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner && requesterID != proposal.AuthorID {
		return nil, errors.Forbidden("Only the owner or the author can view attachments", nil)
	}

	return s.binder.ListForProposal(ctx, proposalID)
}

// retryPromote re-runs attachment promotion off the request path. Promotion
// is idempotent over the remaining attached rows, so a repeat after a partial
// failure only moves what is still attached.
func (s *DefaultService) retryPromote(projectID, proposalID uint64) {
	s.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.binder.Promote(ctx, projectID, proposalID); err != nil {
			log.Printf("Retry promotion of proposal %d failed, files remain attached: %v", proposalID, err)
		}
		return nil
	})
}

func (s *DefaultService) bumpListVersion(ctx context.Context, projectID uint64) {
	versionKey := fmt.Sprintf("project:%d:proposals:version", projectID)
	s.cache.IncrementVersion(ctx, versionKey)
}

func (s *DefaultService) sendEvent(eventType string, proposal *domain.Proposal) {
	if s.notifier == nil {
		return
	}
	event := notify.Event{
		Type:       eventType,
		ProjectID:  proposal.ProjectID,
		ProposalID: proposal.ID,
		ActorID:    proposal.AuthorID,
		At:         time.Now().UTC(),
	}
	s.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, event); err != nil {
			log.Printf("[NOTIFY ERROR] Failed to send %s for proposal %d: %v", eventType, proposal.ID, err)
		}
		return nil
	})
}

func autoTitle(cs domain.ChangeSet) string {
	if len(cs) == 1 {
		return "Update " + domain.FieldLabel(cs[0].Field)
	}
	return fmt.Sprintf("Update %d project fields", len(cs))
}

func autoDescription(cs domain.ChangeSet) string {
	lines := make([]string, 0, len(cs))
	for _, c := range cs {
		lines = append(lines, fmt.Sprintf("%s: %s → %s",
			domain.FieldLabel(c.Field), c.Old.Render(), c.New.Render()))
	}
	return strings.Join(lines, "\n")
}
