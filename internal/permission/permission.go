package permission

import (
	"campus-project-hub/internal/domain"
	"campus-project-hub/internal/errors"
)

// Decision says whether a mutation may hit the canonical record directly or
// must be staged as a proposal.
type Decision int

const (
	DirectWriteAllowed Decision = iota
	ProposalRequired
	Denied
)

// Classify maps a role onto a write decision. Owners write directly,
// collaborators go through the proposal flow, everyone else is denied.
func Classify(role domain.Role) Decision {
	switch role {
	case domain.RoleOwner:
		return DirectWriteAllowed
	case domain.RoleCollaborator:
		return ProposalRequired
	}
	return Denied
}

// CheckDirectWrite returns nil when role may mutate the canonical record or
// its permanent files directly. A collaborator gets the distinct
// proposal_required error so the caller can redirect into the proposal flow.
func CheckDirectWrite(role domain.Role) error {
	switch Classify(role) {
	case DirectWriteAllowed:
		return nil
	case ProposalRequired:
		return errors.ProposalRequired("Direct edits require a proposal", nil)
	}
	return errors.Forbidden("Not a member of this project", nil)
}
