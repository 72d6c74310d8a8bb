package files

import (
	"campus-project-hub/internal/domain"
	"campus-project-hub/internal/errors"
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Upload is one incoming file from a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// AttachResult reports one file of a batch. A failed file never aborts the
// rest of the batch or the proposal creation that carries it.
type AttachResult struct {
	Name string               `json:"name"`
	Ref  *domain.AttachedFile `json:"ref,omitempty"`
	Err  error                `json:"-"`
}

// Binder scopes uploaded blobs to a proposal until review resolves them:
// promoted into the project's permanent file set on merge, discarded on
// rejection.
type Binder struct {
	repository FileRepository
	store      BlobStore
}

func NewBinder(repository FileRepository, store BlobStore) *Binder {
	return &Binder{repository: repository, store: store}
}

// Attach stores one blob under a proposal-scoped key and records the ref.
// A name already attached to the same proposal is an upload error.
func (b *Binder) Attach(ctx context.Context, proposalID uint64, up Upload) (*domain.AttachedFile, error) {
	if up.Name == "" {
		return nil, errors.Upload("File name is empty", nil)
	}

	exists, err := b.repository.AttachedNameExists(ctx, proposalID, up.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Upload(fmt.Sprintf("File %q already attached", up.Name), nil)
	}

	key := fmt.Sprintf("proposals/%d/%s", proposalID, uuid.NewString())
	if err := b.store.Put(ctx, key, up.Reader, up.Size, up.ContentType); err != nil {
		return nil, errors.Upload(fmt.Sprintf("Failed to store %q", up.Name), err)
	}

	ref := &domain.AttachedFile{
		ProposalID:  proposalID,
		Name:        up.Name,
		ObjectKey:   key,
		Size:        up.Size,
		ContentType: up.ContentType,
	}
	if err := b.repository.CreateAttached(ctx, ref); err != nil {
		// keep the bucket consistent with the table
		if rmErr := b.store.Remove(ctx, key); rmErr != nil {
			log.Printf("Failed to remove orphan blob %s: %v", key, rmErr)
		}
		return nil, errors.Upload(fmt.Sprintf("Failed to record %q", up.Name), err)
	}

	return ref, nil
}

// AttachBatch attaches each upload independently and reports per-file results.
func (b *Binder) AttachBatch(ctx context.Context, proposalID uint64, ups []Upload) []AttachResult {
	results := make([]AttachResult, 0, len(ups))
	for _, up := range ups {
		ref, err := b.Attach(ctx, proposalID, up)
		results = append(results, AttachResult{Name: up.Name, Ref: ref, Err: err})
	}
	return results
}

// ListForProposal returns the refs still bound to a proposal.
func (b *Binder) ListForProposal(ctx context.Context, proposalID uint64) ([]domain.AttachedFile, error) {
	return b.repository.ListAttached(ctx, proposalID)
}

// Promote copies every attached ref into the project's permanent file set.
// A name colliding with an existing permanent file is renamed with the first
// free numeric suffix, e.g. "report.pdf" -> "report (1).pdf"; rejecting the
// file instead would fail the merge for a reason the author could not have
// seen at submit time.
func (b *Binder) Promote(ctx context.Context, projectID, proposalID uint64) error {
	refs, err := b.repository.ListAttached(ctx, proposalID)
	if err != nil {
		return err
	}

	existing, err := b.permanentNames(ctx, projectID)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		name := resolveCollision(ref.Name, existing)
		key := fmt.Sprintf("projects/%d/%s", projectID, uuid.NewString())

		if err := b.store.Copy(ctx, ref.ObjectKey, key); err != nil {
			return fmt.Errorf("promote %q: %w", ref.Name, err)
		}

		file := &domain.ProjectFile{
			ProjectID:   projectID,
			Name:        name,
			ObjectKey:   key,
			Size:        ref.Size,
			ContentType: ref.ContentType,
		}
		if err := b.repository.CreateProjectFile(ctx, file); err != nil {
			return fmt.Errorf("promote %q: %w", ref.Name, err)
		}
		existing[name] = true

		if err := b.repository.DeleteAttached(ctx, ref.ID); err != nil {
			return err
		}
		if err := b.store.Remove(ctx, ref.ObjectKey); err != nil {
			log.Printf("Failed to remove promoted blob %s: %v", ref.ObjectKey, err)
		}
	}

	return nil
}

// Discard releases every ref bound to a rejected proposal.
func (b *Binder) Discard(ctx context.Context, proposalID uint64) error {
	refs, err := b.repository.ListAttached(ctx, proposalID)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		if err := b.repository.DeleteAttached(ctx, ref.ID); err != nil {
			return err
		}
		if err := b.store.Remove(ctx, ref.ObjectKey); err != nil {
			log.Printf("Failed to remove discarded blob %s: %v", ref.ObjectKey, err)
		}
	}

	return nil
}

// StoreDirect puts a blob straight into the project's permanent set. Only the
// owner path reaches here; collaborator uploads travel with proposals.
func (b *Binder) StoreDirect(ctx context.Context, projectID uint64, up Upload) (*domain.ProjectFile, error) {
	if up.Name == "" {
		return nil, errors.Upload("File name is empty", nil)
	}

	existing, err := b.permanentNames(ctx, projectID)
	if err != nil {
		return nil, err
	}
	name := resolveCollision(up.Name, existing)

	key := fmt.Sprintf("projects/%d/%s", projectID, uuid.NewString())
	if err := b.store.Put(ctx, key, up.Reader, up.Size, up.ContentType); err != nil {
		return nil, errors.Upload(fmt.Sprintf("Failed to store %q", up.Name), err)
	}

	file := &domain.ProjectFile{
		ProjectID:   projectID,
		Name:        name,
		ObjectKey:   key,
		Size:        up.Size,
		ContentType: up.ContentType,
	}
	if err := b.repository.CreateProjectFile(ctx, file); err != nil {
		return nil, err
	}

	return file, nil
}

// ListForProject returns the project's permanent file set.
func (b *Binder) ListForProject(ctx context.Context, projectID uint64) ([]domain.ProjectFile, error) {
	return b.repository.ListProjectFiles(ctx, projectID)
}

func (b *Binder) permanentNames(ctx context.Context, projectID uint64) (map[string]bool, error) {
	names, err := b.repository.ProjectFileNames(ctx, projectID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}
	return existing, nil
}

// resolveCollision finds the first free "name (n).ext" for a taken name.
func resolveCollision(name string, existing map[string]bool) string {
	if !existing[name] {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if !existing[candidate] {
			return candidate
		}
	}
}
