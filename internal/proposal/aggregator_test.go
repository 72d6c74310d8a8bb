package proposal

import (
	"campus-project-hub/internal/domain"
	"campus-project-hub/internal/files"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingChanges_RecordAndPending(t *testing.T) {
	p := NewPendingChanges()
	assert.True(t, p.Empty())
	assert.Empty(t, p.Pending())

	p.RecordDetails(domain.ChangeSet{
		{Field: domain.FieldTitle, Old: domain.StringValue("A"), New: domain.StringValue("B")},
	})
	p.RecordComment("please review")

	assert.False(t, p.Empty())
	assert.Equal(t, []ChangeKind{ChangeDetails, ChangeComments}, p.Pending())
}

// flushing must not clear state: a failed submission retries from the same
// aggregator without losing anything
func TestPendingChanges_FlushRetainsState(t *testing.T) {
	p := NewPendingChanges()
	p.RecordDetails(domain.ChangeSet{
		{Field: domain.FieldTitle, Old: domain.StringValue("A"), New: domain.StringValue("B")},
	})
	p.RecordFile(files.Upload{Name: "report.pdf", Reader: strings.NewReader("data")})

	first := p.Flush()
	assert.Len(t, first.Changes, 1)
	assert.Len(t, first.Files, 1)

	// simulate a failed submission: flush again, everything is still there
	second := p.Flush()
	assert.Equal(t, first.Changes, second.Changes)
	assert.Len(t, second.Files, 1)
	assert.False(t, p.Empty())
}

func TestPendingChanges_ClearAfterConfirmedSubmission(t *testing.T) {
	p := NewPendingChanges()
	p.RecordDetails(domain.ChangeSet{
		{Field: domain.FieldTitle, Old: domain.StringValue("A"), New: domain.StringValue("B")},
	})

	p.Clear()

	assert.True(t, p.Empty())
	assert.Empty(t, p.Pending())
	assert.Empty(t, p.Flush().Changes)
}

// a later edit of the same field wins when details entries merge
func TestPendingChanges_FlushMergesDetails(t *testing.T) {
	p := NewPendingChanges()
	p.RecordDetails(domain.ChangeSet{
		{Field: domain.FieldTitle, Old: domain.StringValue("A"), New: domain.StringValue("B")},
		{Field: domain.FieldCategory, Old: domain.StringValue("Web"), New: domain.StringValue("Mobile")},
	})
	p.RecordDetails(domain.ChangeSet{
		{Field: domain.FieldTitle, Old: domain.StringValue("A"), New: domain.StringValue("C")},
	})

	submission := p.Flush()

	assert.Len(t, submission.Changes, 2)
	assert.Equal(t, []domain.Field{domain.FieldTitle, domain.FieldCategory}, submission.Changes.Fields())
	assert.Equal(t, domain.StringValue("C"), submission.Changes[0].New)
}

func TestPendingChanges_FlushJoinsComments(t *testing.T) {
	p := NewPendingChanges()
	p.RecordComment("first")
	p.RecordComment("second")

	assert.Equal(t, "first\nsecond", p.Flush().Comment)
}

func TestSessions_HandlePerSession(t *testing.T) {
	sessions := NewSessions()

	a := sessions.Get(1, 10)
	b := sessions.Get(1, 10)
	other := sessions.Get(2, 10)

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
}

// abandoning an edit leaves no residue: the next Get starts fresh
func TestSessions_DropDiscardsState(t *testing.T) {
	sessions := NewSessions()

	p := sessions.Get(1, 10)
	p.RecordComment("draft thought")
	sessions.Drop(1, 10)

	fresh := sessions.Get(1, 10)
	assert.NotSame(t, p, fresh)
	assert.True(t, fresh.Empty())
}
