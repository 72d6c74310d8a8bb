package domain

import (
	"time"
)

// ProposalStatus is the closed review state of a proposal.
type ProposalStatus string

const (
	StatusOpen     ProposalStatus = "open"
	StatusApproved ProposalStatus = "approved"
	StatusRejected ProposalStatus = "rejected"
	StatusMerged   ProposalStatus = "merged"
)

// transitions is the full set of legal review edges. Anything absent is an
// invalid transition, which makes terminal states (rejected, merged)
// inescapable without an explicit check.
var transitions = map[ProposalStatus][]ProposalStatus{
	StatusOpen:     {StatusApproved, StatusRejected},
	StatusApproved: {StatusMerged},
}

// CanTransition reports whether the edge from → to is legal.
func CanTransition(from, to ProposalStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is one of the four known statuses.
func ValidStatus(s ProposalStatus) bool {
	switch s {
	case StatusOpen, StatusApproved, StatusRejected, StatusMerged:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ProposalStatus) Terminal() bool {
	return len(transitions[s]) == 0 && ValidStatus(s)
}

// Proposal is a staged ChangeSet plus attached files awaiting owner review.
// BaselineVersion records the project version the diff was computed against
// and guards the merge against concurrent canonical writes.
type Proposal struct {
	ID              uint64         `gorm:"primaryKey" json:"id"`
	ProjectID       uint64         `gorm:"index" json:"project_id"`
	AuthorID        uint64         `json:"author_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Status          ProposalStatus `gorm:"default:open" json:"status"`
	ChangeSet       ChangeSet      `gorm:"type:jsonb" json:"change_set"`
	BaselineVersion uint64         `json:"baseline_version"`
	Comment         string         `json:"comment,omitempty"`
	AttachedFiles   []AttachedFile `gorm:"foreignKey:ProposalID" json:"attached_files"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// AttachedFile is a blob handle scoped to one proposal. It becomes a
// ProjectFile only when the proposal merges, and is deleted on rejection.
type AttachedFile struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	ProposalID  uint64    `gorm:"index" json:"proposal_id"`
	Name        string    `json:"name"`
	ObjectKey   string    `json:"-"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectFile is a member of a project's permanent file set.
type ProjectFile struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	ProjectID   uint64    `gorm:"index" json:"project_id"`
	Name        string    `json:"name"`
	ObjectKey   string    `json:"-"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
