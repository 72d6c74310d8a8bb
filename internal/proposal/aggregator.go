package proposal

import (
	"campus-project-hub/internal/domain"
	"campus-project-hub/internal/files"
	"fmt"
	"strings"
	"sync"
)

// ChangeKind tags what a pending entry carries.
type ChangeKind string

const (
	ChangeDetails  ChangeKind = "details"
	ChangeFiles    ChangeKind = "files"
	ChangeComments ChangeKind = "comments"
)

type pendingEntry struct {
	kind    ChangeKind
	details domain.ChangeSet
	file    files.Upload
	comment string
}

// PendingChanges accumulates a collaborator's staged edits for one editing
// session until they are bundled into a single proposal. It is an explicit
// handle owned by the session, never process-wide state.
type PendingChanges struct {
	mu      sync.Mutex
	entries []pendingEntry
	pending map[ChangeKind]bool
}

func NewPendingChanges() *PendingChanges {
	return &PendingChanges{pending: make(map[ChangeKind]bool)}
}

func (p *PendingChanges) RecordDetails(cs domain.ChangeSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, pendingEntry{kind: ChangeDetails, details: cs})
	p.pending[ChangeDetails] = true
}

func (p *PendingChanges) RecordFile(up files.Upload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, pendingEntry{kind: ChangeFiles, file: up})
	p.pending[ChangeFiles] = true
}

func (p *PendingChanges) RecordComment(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, pendingEntry{kind: ChangeComments, comment: text})
	p.pending[ChangeComments] = true
}

// Pending lists the kinds recorded so far, in a fixed order.
func (p *PendingChanges) Pending() []ChangeKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var kinds []ChangeKind
	for _, k := range []ChangeKind{ChangeDetails, ChangeFiles, ChangeComments} {
		if p.pending[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (p *PendingChanges) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries) == 0
}

// Submission is the flushed content of a session, ready for proposal
// creation.
type Submission struct {
	Changes domain.ChangeSet
	Files   []files.Upload
	Comment string
}

// Flush merges every recorded details entry into one ChangeSet (a later edit
// of the same field wins) and collects files and comments. State is NOT
// cleared here: a failed submission must lose nothing, so callers Clear only
// after the proposal was created.
func (p *PendingChanges) Flush() Submission {
	p.mu.Lock()
	defer p.mu.Unlock()

	merged := make(map[domain.Field]domain.FieldChange)
	var order []domain.Field
	var uploads []files.Upload
	var comments []string

	for _, e := range p.entries {
		switch e.kind {
		case ChangeDetails:
			for _, c := range e.details {
				if _, seen := merged[c.Field]; !seen {
					order = append(order, c.Field)
				}
				merged[c.Field] = c
			}
		case ChangeFiles:
			uploads = append(uploads, e.file)
		case ChangeComments:
			comments = append(comments, e.comment)
		}
	}

	var cs domain.ChangeSet
	for _, f := range order {
		cs = append(cs, merged[f])
	}

	return Submission{
		Changes: cs,
		Files:   uploads,
		Comment: strings.Join(comments, "\n"),
	}
}

// Clear drops all recorded state. Called only after a confirmed successful
// proposal creation.
func (p *PendingChanges) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = nil
	p.pending = make(map[ChangeKind]bool)
}

// Sessions hands out one PendingChanges per active editing session, keyed by
// user and project. Dropping a session leaves no server-side residue.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*PendingChanges
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*PendingChanges)}
}

func sessionKey(userID, projectID uint64) string {
	return fmt.Sprintf("%d:%d", userID, projectID)
}

// Get returns the session's aggregator, creating it on first use.
func (s *Sessions) Get(userID, projectID uint64) *PendingChanges {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(userID, projectID)
	if p, ok := s.sessions[key]; ok {
		return p
	}
	p := NewPendingChanges()
	s.sessions[key] = p
	return p
}

// Drop tears the session down (submission confirmed, navigation, logout).
func (s *Sessions) Drop(userID, projectID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(userID, projectID))
}
